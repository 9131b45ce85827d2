package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps a raw database connection used for the audit and reporting
// queries that bypass the ORM.
type DB struct {
	conn *sql.DB
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// NewConnection creates a new raw database connection
func NewConnection(cfg Config) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Audit queries are infrequent, keep the pool small
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(2 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		log.Println("📡 Closing database connection...")
		return db.conn.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// GetConn returns the underlying sql.DB connection
func (db *DB) GetConn() *sql.DB {
	return db.conn
}

// ProvenanceGap is a persisted fact with no provenance edge attached.
type ProvenanceGap struct {
	FactID     string
	EntityType string
}

// ProvenanceGaps reports persisted graph nodes that have no provenance edge.
// Registered documents are provenance roots and are excluded.
func (db *DB) ProvenanceGaps() ([]ProvenanceGap, error) {
	query := `
		SELECT n.node_id, n.entity_type
		FROM graph_nodes n
		LEFT JOIN provenance_edges p ON p.fact_id = n.node_id
		WHERE p.fact_id IS NULL
		  AND n.entity_type != 'Document'
		ORDER BY n.node_id
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query provenance gaps: %w", err)
	}
	defer rows.Close()

	var gaps []ProvenanceGap
	for rows.Next() {
		var gap ProvenanceGap
		if err := rows.Scan(&gap.FactID, &gap.EntityType); err != nil {
			return nil, fmt.Errorf("failed to scan provenance gap: %w", err)
		}
		gaps = append(gaps, gap)
	}

	return gaps, rows.Err()
}

// ActionCount is one bucket of the triage decision distribution.
type ActionCount struct {
	Scanner string
	Action  string
	Count   int64
}

// DecisionDistribution aggregates decision counts per scanner and action
// over the lookback window.
func (db *DB) DecisionDistribution(daysBack int) ([]ActionCount, error) {
	query := `
		SELECT scanner, action, COUNT(*) AS decision_count
		FROM decision_records
		WHERE decided_at >= NOW() - INTERVAL '1 day' * $1
		GROUP BY scanner, action
		ORDER BY scanner, action
	`

	rows, err := db.conn.Query(query, daysBack)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision distribution: %w", err)
	}
	defer rows.Close()

	var counts []ActionCount
	for rows.Next() {
		var c ActionCount
		if err := rows.Scan(&c.Scanner, &c.Action, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan decision count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}
