// Package ingest turns finalized desk documents into knowledge graph facts
// with provenance. Each document is a transactional unit: either every
// derived node, relationship, and provenance edge commits, or none do.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DocumentTimeLayout is the timestamp portion of a document identifier.
const DocumentTimeLayout = "20060102T1504"

// Document type directories.
const (
	DocTypeAnalysis = "analysis"
	DocTypeTrade    = "trade"
	DocTypeLearning = "learning"
	DocTypeScanRun  = "scan_run"
)

// MalformedDocumentError reports a document that cannot be ingested because a
// required field is missing or unparseable.
type MalformedDocumentError struct {
	DocumentID string
	Field      string
	Reason     string
}

// Error implements the error interface
func (e *MalformedDocumentError) Error() string {
	id := e.DocumentID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("malformed document %s: field %q %s", id, e.Field, e.Reason)
}

// ParseDocumentID splits a document identifier of the form
// {TICKER_OR_TOPIC}_{YYYYMMDDTHHMM} into its topic and timestamp.
func ParseDocumentID(id string) (topic string, at time.Time, err error) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 || idx == len(id)-1 {
		return "", time.Time{}, &MalformedDocumentError{DocumentID: id, Field: "id", Reason: "must be {TICKER_OR_TOPIC}_{YYYYMMDDTHHMM}"}
	}
	topic = id[:idx]
	at, err = time.Parse(DocumentTimeLayout, id[idx+1:])
	if err != nil {
		return "", time.Time{}, &MalformedDocumentError{DocumentID: id, Field: "id", Reason: fmt.Sprintf("timestamp %q is not %s", id[idx+1:], DocumentTimeLayout)}
	}
	return topic, at, nil
}

// FormatDocumentID builds a document identifier from a topic and timestamp.
func FormatDocumentID(topic string, at time.Time) string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(topic), at.Format(DocumentTimeLayout))
}

// Mention is a reference to any graph entity inside an analysis document.
type Mention struct {
	Type string `yaml:"type" json:"type"`
	Name string `yaml:"name" json:"name"`
}

// AnalysisDocument is the structured portion of an authored analysis report.
type AnalysisDocument struct {
	ID         string    `yaml:"id"`
	Ticker     string    `yaml:"ticker"`
	CreatedAt  time.Time `yaml:"created_at"`
	Strategy   string    `yaml:"strategy,omitempty"`
	Bias       string    `yaml:"bias,omitempty"`
	Timeframe  string    `yaml:"timeframe,omitempty"`
	Summary    string    `yaml:"summary,omitempty"`
	Confidence float64   `yaml:"confidence,omitempty"`
	Risks      []string  `yaml:"risks,omitempty"`
	Mentions   []Mention `yaml:"mentions,omitempty"`
}

// TradeDocument is the structured portion of a finalized trade record.
type TradeDocument struct {
	ID        string    `yaml:"id"`
	Ticker    string    `yaml:"ticker"`
	Timestamp time.Time `yaml:"timestamp"`
	Strategy  string    `yaml:"strategy,omitempty"`
	Direction string    `yaml:"direction,omitempty"` // LONG, SHORT
	Outcome   string    `yaml:"outcome,omitempty"`   // WIN, LOSS, BREAKEVEN
}

// LearningDocument captures a lesson distilled from a closed trade.
type LearningDocument struct {
	ID        string    `yaml:"id"`
	TradeKey  string    `yaml:"trade_key"`
	Timestamp time.Time `yaml:"timestamp"`
	Lesson    string    `yaml:"lesson"`
}

// ParseAnalysisDocument decodes a YAML analysis document.
func ParseAnalysisDocument(data []byte) (*AnalysisDocument, error) {
	var doc AnalysisDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse analysis document: %w", err)
	}
	return &doc, nil
}

// ParseTradeDocument decodes a YAML trade document.
func ParseTradeDocument(data []byte) (*TradeDocument, error) {
	var doc TradeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse trade document: %w", err)
	}
	return &doc, nil
}
