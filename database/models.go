// Package database provides database connection management for the deskgraph
// knowledge system.
//
// This package includes:
//   - Database connection management using GORM and PostgreSQL
//   - Support for TimescaleDB hypertables for time-series decision history
//   - Write-through persistence records for the in-memory knowledge graph
//   - Webhook registrations for routing triage decisions to desk tooling
//
// Key Concepts:
//   - TimescaleDB hypertables for scan run and decision history
//   - Composite primary keys for hypertable compatibility
//   - JSON-encoded attribute maps mirroring the in-memory graph
//   - Automatic retention policies for data lifecycle management
package database

import (
	"time"

	"gorm.io/gorm"
)

// GraphNodeRecord is the persisted form of a knowledge graph node.
//
// Key Fields:
//   - NodeID: canonical "Type:key" identifier, primary key
//   - EntityType: entity family (Ticker, Company, Analysis, ...)
//   - Key: natural or system key within the entity family
//   - Attributes: JSON-encoded attribute map
type GraphNodeRecord struct {
	NodeID     string    `gorm:"primaryKey;size:512" json:"node_id"`
	EntityType string    `gorm:"size:64;index:idx_graph_nodes_type" json:"entity_type"`
	Key        string    `gorm:"size:256" json:"key"`
	Attributes string    `gorm:"type:jsonb" json:"attributes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (GraphNodeRecord) TableName() string {
	return "graph_nodes"
}

// GraphRelationshipRecord is the persisted form of a typed edge between
// two graph nodes.
//
// Key Fields:
//   - RelID: canonical "src|TYPE|dst" identifier, primary key
//   - RelType: relationship type (ISSUED, SIGNALS, ...)
//   - SourceID / TargetID: endpoint node identifiers
//   - Attributes: JSON-encoded attribute map
type GraphRelationshipRecord struct {
	RelID      string    `gorm:"primaryKey;size:1024" json:"rel_id"`
	RelType    string    `gorm:"size:64;index:idx_graph_rels_type" json:"rel_type"`
	SourceID   string    `gorm:"size:512;index:idx_graph_rels_source" json:"source_id"`
	TargetID   string    `gorm:"size:512;index:idx_graph_rels_target" json:"target_id"`
	Attributes string    `gorm:"type:jsonb" json:"attributes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (GraphRelationshipRecord) TableName() string {
	return "graph_relationships"
}

// ProvenanceEdgeRecord links a persisted fact back to the source document
// and field it was extracted from.
//
// Key Fields:
//   - EdgeID: monotonically increasing edge sequence, primary key
//   - FactID: node or relationship identifier the edge attaches to
//   - DocumentID: source document identifier
//   - FieldPath: dotted path into the document body
//   - Confidence: extraction confidence in [0, 1]
type ProvenanceEdgeRecord struct {
	EdgeID     int64     `gorm:"primaryKey;autoIncrement:false" json:"edge_id"`
	FactID     string    `gorm:"size:1024;index:idx_provenance_fact" json:"fact_id"`
	DocumentID string    `gorm:"size:256;index:idx_provenance_document" json:"document_id"`
	FieldPath  string    `gorm:"size:512" json:"field_path"`
	Confidence float64   `json:"confidence"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TableName specifies the table name for GORM
func (ProvenanceEdgeRecord) TableName() string {
	return "provenance_edges"
}

// DocumentRecord registers a source document in the provenance ledger.
type DocumentRecord struct {
	DocumentID   string    `gorm:"primaryKey;size:256" json:"document_id"`
	Attributes   string    `gorm:"type:jsonb" json:"attributes"`
	RegisteredAt time.Time `json:"registered_at"`
}

// TableName specifies the table name for GORM
func (DocumentRecord) TableName() string {
	return "documents"
}

// ScanRunRecord stores one scanner run summary. The table is a TimescaleDB
// hypertable partitioned on RunAt.
//
// Key Fields:
//   - ID: run identifier ("{scanner}_{timestamp}")
//   - Scanner: scanner configuration name
//   - Regime: market regime detected for the run (RISK_ON, NEUTRAL, RISK_OFF)
//   - TotalScanned / PassedFilters: funnel counts for the run
type ScanRunRecord struct {
	ID            string    `gorm:"primaryKey;size:256" json:"id"`
	RunAt         time.Time `gorm:"primaryKey" json:"run_at"`
	Scanner       string    `gorm:"size:128;index:idx_scan_runs_scanner" json:"scanner"`
	Regime        string    `gorm:"size:32" json:"regime"`
	TotalScanned  int       `json:"total_scanned"`
	PassedFilters int       `json:"passed_filters"`
	FullAnalysis  int       `json:"full_analysis"`
	Watchlist     int       `json:"watchlist"`
	Monitor       int       `json:"monitor"`
	Skipped       int       `json:"skipped"`
	HighScore     float64   `json:"high_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ScanRunRecord) TableName() string {
	return "scan_runs"
}

// DecisionRecord stores one routed candidate decision from a scanner run.
// The table is a TimescaleDB hypertable partitioned on DecidedAt.
//
// Key Fields:
//   - RunID: owning scan run identifier
//   - Ticker: candidate symbol
//   - Score: composite score on the 0-10 scale
//   - Action: routed action (FULL_ANALYSIS, WATCHLIST, MONITOR, SKIP)
//   - Breakdown / KeyData: JSON-encoded score breakdown and feature snapshot
type DecisionRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DecidedAt time.Time `gorm:"primaryKey" json:"decided_at"`
	RunID     string    `gorm:"size:256;index:idx_decisions_run" json:"run_id"`
	Scanner   string    `gorm:"size:128;index:idx_decisions_scanner,priority:1" json:"scanner"`
	Ticker    string    `gorm:"size:32;index:idx_decisions_scanner,priority:2" json:"ticker"`
	Score     float64   `json:"score"`
	Action    string    `gorm:"size:32;index:idx_decisions_action" json:"action"`
	Regime    string    `gorm:"size:32" json:"regime"`
	Breakdown string    `gorm:"type:jsonb" json:"breakdown"`
	KeyData   string    `gorm:"type:jsonb" json:"key_data"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (DecisionRecord) TableName() string {
	return "decision_records"
}

// DeskWebhook is a registered endpoint that receives triage decisions.
//
// Key Fields:
//   - URL: delivery endpoint
//   - Actions: JSON array of actions to deliver (empty = FULL_ANALYSIS only)
//   - Scanners: JSON array of scanner names to deliver for (empty = all)
//   - Symbols: JSON array of tickers to deliver for (empty = all)
//   - MinScore: minimum composite score for delivery
type DeskWebhook struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string         `gorm:"size:128;uniqueIndex" json:"name"`
	URL          string         `gorm:"size:512" json:"url"`
	Secret       string         `gorm:"size:256" json:"-"`
	Actions      string         `gorm:"type:jsonb;default:'[]'" json:"actions"`
	Scanners     string         `gorm:"type:jsonb;default:'[]'" json:"scanners"`
	Symbols      string         `gorm:"type:jsonb;default:'[]'" json:"symbols"`
	MinScore     float64        `json:"min_score"`
	Enabled      bool           `gorm:"default:true;index:idx_desk_webhooks_enabled" json:"enabled"`
	SuccessCount int            `gorm:"default:0" json:"success_count"`
	FailureCount int            `gorm:"default:0" json:"failure_count"`
	LastSuccess  *time.Time     `json:"last_success,omitempty"`
	LastFailure  *time.Time     `json:"last_failure,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (DeskWebhook) TableName() string {
	return "desk_webhooks"
}

// DeskWebhookLog records one delivery attempt to a registered webhook.
type DeskWebhookLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	WebhookID  uint      `gorm:"index:idx_webhook_logs_webhook" json:"webhook_id"`
	RunID      string    `gorm:"size:256" json:"run_id"`
	Ticker     string    `gorm:"size:32" json:"ticker"`
	StatusCode int       `json:"status_code"`
	Success    bool      `json:"success"`
	Error      string    `gorm:"size:1024" json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (DeskWebhookLog) TableName() string {
	return "desk_webhook_logs"
}
