package database

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"deskgraph/graph"
	"deskgraph/triage"
)

// Database holds the GORM database connection and provides access to the underlying DB instance.
// It serves as the central connection point for all database operations in the application.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// KnowledgeRepository handles database operations for the knowledge graph,
// the provenance ledger, and triage decision history.
type KnowledgeRepository struct {
	db *Database
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(db *Database) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// InitSchema performs auto-migration and TimescaleDB setup
func (r *KnowledgeRepository) InitSchema() error {
	fmt.Println("🔄 Starting database schema initialization...")

	err := r.db.db.AutoMigrate(
		&GraphNodeRecord{},
		&GraphRelationshipRecord{},
		&ProvenanceEdgeRecord{},
		&DocumentRecord{},
		&ScanRunRecord{},
		&DecisionRecord{},
		&DeskWebhook{},
		&DeskWebhookLog{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	if err := r.setupTimescaleDB(); err != nil {
		return err
	}

	fmt.Println("✅ Database schema initialization completed successfully")
	return nil
}

// setupTimescaleDB creates hypertables and policies for time-series tables.
// Hypertable failures are warnings, not fatal: the schema still works as
// plain Postgres tables when the extension is unavailable.
func (r *KnowledgeRepository) setupTimescaleDB() error {
	fmt.Println("⏰ Setting up TimescaleDB extension and hypertables...")

	if err := r.db.db.Exec("CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE").Error; err != nil {
		fmt.Printf("⚠️ Warning: Failed to create TimescaleDB extension: %v\n", err)
		return nil
	}
	fmt.Println("✅ TimescaleDB extension enabled")

	// Scan run history, partitioned on run time
	if err := r.db.db.Exec(`
		SELECT create_hypertable('scan_runs', 'run_at',
			chunk_time_interval => INTERVAL '7 days',
			if_not_exists => TRUE,
			migrate_data => TRUE
		)
	`).Error; err != nil {
		fmt.Printf("⚠️ Warning: Failed to create hypertable for scan_runs: %v\n", err)
	}

	// Retention: 1 year of run history
	r.db.db.Exec(`
		SELECT add_retention_policy('scan_runs', INTERVAL '1 year', if_not_exists => TRUE)
	`)

	// Per-candidate decisions, partitioned on decision time
	if err := r.db.db.Exec(`
		SELECT create_hypertable('decision_records', 'decided_at',
			chunk_time_interval => INTERVAL '7 days',
			if_not_exists => TRUE,
			migrate_data => TRUE
		)
	`).Error; err != nil {
		fmt.Printf("⚠️ Warning: Failed to create hypertable for decision_records: %v\n", err)
	}

	// Retention: 2 years of decision history for outcome review
	r.db.db.Exec(`
		SELECT add_retention_policy('decision_records', INTERVAL '2 years', if_not_exists => TRUE)
	`)

	// Webhook delivery logs age out quickly
	r.db.db.Exec(`
		SELECT create_hypertable('desk_webhook_logs', 'created_at',
			chunk_time_interval => INTERVAL '7 days',
			if_not_exists => TRUE,
			migrate_data => TRUE
		)
	`)
	r.db.db.Exec(`
		SELECT add_retention_policy('desk_webhook_logs', INTERVAL '30 days', if_not_exists => TRUE)
	`)

	return nil
}

// ============================================================================
// Graph write-through persistence
// ============================================================================

// PersistNode saves a graph node record. Upserts on the canonical node ID so
// attribute merges on an existing node overwrite the stored row.
func (r *KnowledgeRepository) PersistNode(node *graph.Node) error {
	attrs, err := json.Marshal(node.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode node attributes: %w", err)
	}

	record := &GraphNodeRecord{
		NodeID:     string(node.ID),
		EntityType: string(node.Type),
		Key:        node.Key,
		Attributes: string(attrs),
		CreatedAt:  node.CreatedAt,
		UpdatedAt:  node.UpdatedAt,
	}
	return r.db.db.Save(record).Error
}

// PersistRelationship saves a graph relationship record, upserting on the
// canonical relationship ID.
func (r *KnowledgeRepository) PersistRelationship(rel *graph.Relationship) error {
	attrs, err := json.Marshal(rel.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode relationship attributes: %w", err)
	}

	record := &GraphRelationshipRecord{
		RelID:      string(rel.ID),
		RelType:    string(rel.Type),
		SourceID:   string(rel.SourceID),
		TargetID:   string(rel.TargetID),
		Attributes: string(attrs),
		CreatedAt:  rel.CreatedAt,
	}
	return r.db.db.Save(record).Error
}

// PersistProvenance saves one provenance edge.
func (r *KnowledgeRepository) PersistProvenance(edge *graph.ProvenanceEdge) error {
	record := &ProvenanceEdgeRecord{
		EdgeID:     edge.ID,
		FactID:     edge.FactID,
		DocumentID: edge.DocumentID,
		FieldPath:  edge.FieldPath,
		Confidence: edge.Confidence,
		RecordedAt: edge.ExtractedAt,
	}
	return r.db.db.Save(record).Error
}

// PersistDocument registers a source document in the ledger.
func (r *KnowledgeRepository) PersistDocument(id string, attrs map[string]any, registeredAt time.Time) error {
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to encode document attributes: %w", err)
	}

	record := &DocumentRecord{
		DocumentID:   id,
		Attributes:   string(encoded),
		RegisteredAt: registeredAt,
	}
	return r.db.db.Save(record).Error
}

// RestoreGraph replays all persisted graph records into an in-memory store.
// Called once at startup before the store accepts writes.
func (r *KnowledgeRepository) RestoreGraph(store *graph.Store) error {
	var nodeRecords []GraphNodeRecord
	if err := r.db.db.Order("created_at ASC").Find(&nodeRecords).Error; err != nil {
		return WrapDBError("load graph nodes", err)
	}

	var relRecords []GraphRelationshipRecord
	if err := r.db.db.Order("created_at ASC").Find(&relRecords).Error; err != nil {
		return WrapDBError("load graph relationships", err)
	}

	var edgeRecords []ProvenanceEdgeRecord
	if err := r.db.db.Order("edge_id ASC").Find(&edgeRecords).Error; err != nil {
		return WrapDBError("load provenance edges", err)
	}

	var docRecords []DocumentRecord
	if err := r.db.db.Find(&docRecords).Error; err != nil {
		return WrapDBError("load documents", err)
	}

	nodes := make([]*graph.Node, 0, len(nodeRecords))
	for _, rec := range nodeRecords {
		attrs, err := decodeAttributes(rec.Attributes)
		if err != nil {
			return fmt.Errorf("node %s: %w", rec.NodeID, err)
		}
		nodes = append(nodes, &graph.Node{
			ID:         graph.NodeID(rec.NodeID),
			Type:       graph.EntityType(rec.EntityType),
			Key:        rec.Key,
			Attributes: attrs,
			CreatedAt:  rec.CreatedAt,
			UpdatedAt:  rec.UpdatedAt,
		})
	}

	rels := make([]*graph.Relationship, 0, len(relRecords))
	for _, rec := range relRecords {
		attrs, err := decodeAttributes(rec.Attributes)
		if err != nil {
			return fmt.Errorf("relationship %s: %w", rec.RelID, err)
		}
		rels = append(rels, &graph.Relationship{
			ID:         graph.RelID(rec.RelID),
			Type:       graph.RelType(rec.RelType),
			SourceID:   graph.NodeID(rec.SourceID),
			TargetID:   graph.NodeID(rec.TargetID),
			Attributes: attrs,
			CreatedAt:  rec.CreatedAt,
		})
	}

	edges := make([]*graph.ProvenanceEdge, 0, len(edgeRecords))
	for _, rec := range edgeRecords {
		edges = append(edges, &graph.ProvenanceEdge{
			ID:          rec.EdgeID,
			FactID:      rec.FactID,
			DocumentID:  rec.DocumentID,
			FieldPath:   rec.FieldPath,
			Confidence:  rec.Confidence,
			ExtractedAt: rec.RecordedAt,
		})
	}

	docs := make([]graph.DocumentSnapshot, 0, len(docRecords))
	for _, rec := range docRecords {
		attrs, err := decodeAttributes(rec.Attributes)
		if err != nil {
			return fmt.Errorf("document %s: %w", rec.DocumentID, err)
		}
		docs = append(docs, graph.DocumentSnapshot{
			DocumentID:   rec.DocumentID,
			Attributes:   attrs,
			RegisteredAt: rec.RegisteredAt,
		})
	}

	if err := store.Restore(nodes, rels, edges, docs); err != nil {
		return fmt.Errorf("failed to restore graph state: %w", err)
	}

	fmt.Printf("📊 Restored graph state: %d nodes, %d relationships, %d provenance edges\n",
		len(nodes), len(rels), len(edges))
	return nil
}

func decodeAttributes(encoded string) (map[string]any, error) {
	if encoded == "" {
		return map[string]any{}, nil
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(encoded), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return attrs, nil
}

// ============================================================================
// Scan run and decision history
// ============================================================================

// SaveRun persists one scanner run summary and its per-candidate decisions
// in a single transaction.
func (r *KnowledgeRepository) SaveRun(run *triage.RunRecord) error {
	return r.db.db.Transaction(func(tx *gorm.DB) error {
		runRecord := &ScanRunRecord{
			ID:            run.RunID(),
			RunAt:         run.Timestamp,
			Scanner:       run.Scanner,
			Regime:        run.Regime,
			TotalScanned:  run.Summary.TotalScanned,
			PassedFilters: run.Summary.PassedFilters,
			FullAnalysis:  run.Summary.FullAnalysis,
			Watchlist:     run.Summary.Watchlist,
			Monitor:       run.Summary.Monitor,
			Skipped:       run.Summary.Skipped,
			HighScore:     run.Summary.HighScore,
		}
		if err := tx.Create(runRecord).Error; err != nil {
			return fmt.Errorf("failed to save scan run: %w", err)
		}

		for _, cd := range run.Candidates {
			breakdown, err := json.Marshal(cd.Breakdown)
			if err != nil {
				return fmt.Errorf("failed to encode breakdown for %s: %w", cd.Ticker, err)
			}
			keyData, err := json.Marshal(cd.KeyData)
			if err != nil {
				return fmt.Errorf("failed to encode key data for %s: %w", cd.Ticker, err)
			}

			record := &DecisionRecord{
				DecidedAt: run.Timestamp,
				RunID:     run.RunID(),
				Scanner:   run.Scanner,
				Ticker:    cd.Ticker,
				Score:     cd.Score,
				Action:    string(cd.Action),
				Regime:    run.Regime,
				Breakdown: string(breakdown),
				KeyData:   string(keyData),
			}
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to save decision for %s: %w", cd.Ticker, err)
			}
		}

		return nil
	})
}

// GetRecentDecisions retrieves recent decisions with filters
func (r *KnowledgeRepository) GetRecentDecisions(scanner string, action string, limit int) ([]DecisionRecord, error) {
	var decisions []DecisionRecord
	query := r.db.db.Order("decided_at DESC")

	if scanner != "" {
		query = query.Where("scanner = ?", scanner)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&decisions).Error
	return decisions, err
}

// GetRecentRuns retrieves recent scan run summaries for a scanner
func (r *KnowledgeRepository) GetRecentRuns(scanner string, limit int) ([]ScanRunRecord, error) {
	var runs []ScanRunRecord
	query := r.db.db.Order("run_at DESC")

	if scanner != "" {
		query = query.Where("scanner = ?", scanner)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&runs).Error
	return runs, err
}

// ============================================================================
// Webhook management
// ============================================================================

// GetActiveWebhooks retrieves all enabled webhooks
func (r *KnowledgeRepository) GetActiveWebhooks() ([]DeskWebhook, error) {
	var webhooks []DeskWebhook
	err := r.db.db.Where("enabled = ?", true).Find(&webhooks).Error
	return webhooks, err
}

// GetWebhooks retrieves all webhooks (enabled and disabled)
func (r *KnowledgeRepository) GetWebhooks() ([]DeskWebhook, error) {
	var webhooks []DeskWebhook
	err := r.db.db.Order("id ASC").Find(&webhooks).Error
	return webhooks, err
}

// GetWebhookByName retrieves a specific webhook by its registered name
func (r *KnowledgeRepository) GetWebhookByName(name string) (*DeskWebhook, error) {
	var webhook DeskWebhook
	err := r.db.db.Where("name = ?", name).First(&webhook).Error
	if err == gorm.ErrRecordNotFound {
		return nil, NewNotFoundErrorWithID("webhook", name)
	}
	if err != nil {
		return nil, WrapDBError("get webhook", err)
	}
	return &webhook, nil
}

// SaveWebhook creates or updates a webhook registration
func (r *KnowledgeRepository) SaveWebhook(webhook *DeskWebhook) error {
	return r.db.db.Save(webhook).Error
}

// DeleteWebhook deletes a webhook registration
func (r *KnowledgeRepository) DeleteWebhook(id uint) error {
	return r.db.db.Delete(&DeskWebhook{}, id).Error
}

// LogWebhookDelivery saves a new webhook delivery log
func (r *KnowledgeRepository) LogWebhookDelivery(log *DeskWebhookLog) error {
	return r.db.db.Create(log).Error
}

// UpdateWebhookStats updates delivery counters after an attempt
func (r *KnowledgeRepository) UpdateWebhookStats(id uint, success bool) error {
	now := time.Now()
	updates := map[string]any{}
	if success {
		updates["success_count"] = gorm.Expr("success_count + 1")
		updates["last_success"] = now
	} else {
		updates["failure_count"] = gorm.Expr("failure_count + 1")
		updates["last_failure"] = now
	}
	return r.db.db.Model(&DeskWebhook{}).Where("id = ?", id).Updates(updates).Error
}
