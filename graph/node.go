package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NodeID is a stable node identifier of the form "Type:key".
type NodeID string

// MakeNodeID builds the identifier for an entity type and natural key.
func MakeNodeID(t EntityType, key string) NodeID {
	return NodeID(fmt.Sprintf("%s:%s", t, key))
}

// Type returns the entity type encoded in the identifier.
func (id NodeID) Type() EntityType {
	parts := strings.SplitN(string(id), ":", 2)
	return EntityType(parts[0])
}

// Key returns the natural key encoded in the identifier.
func (id NodeID) Key() string {
	parts := strings.SplitN(string(id), ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// NewSystemKey generates a key for system-keyed entity types
// (Analysis, Trade, Learning).
func NewSystemKey() string {
	return uuid.New().String()
}

// RelID is a stable relationship identifier of the form "source|TYPE|target".
type RelID string

// MakeRelID builds the identifier for a directed relationship. Identical
// (source, type, target) triples map to the same identifier, which is what
// makes duplicate relationship creation an attribute merge rather than a
// second edge.
func MakeRelID(source NodeID, rt RelType, target NodeID) RelID {
	return RelID(fmt.Sprintf("%s|%s|%s", source, rt, target))
}

// Node is a typed entity in the knowledge graph.
type Node struct {
	ID         NodeID         `json:"id"`
	Type       EntityType     `json:"type"`
	Key        string         `json:"key"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Attr returns a string attribute, or "" if absent.
func (n *Node) Attr(name string) string {
	if n.Attributes == nil {
		return ""
	}
	if v, ok := n.Attributes[name].(string); ok {
		return v
	}
	return ""
}

// Relationship is a directed, typed edge between two nodes.
type Relationship struct {
	ID         RelID          `json:"id"`
	Type       RelType        `json:"type"`
	SourceID   NodeID         `json:"source_id"`
	TargetID   NodeID         `json:"target_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Provenance is the mandatory document reference attached to every graph
// mutation. A mutation cannot be constructed without one.
type Provenance struct {
	DocumentID string  `json:"document_id"`
	FieldPath  string  `json:"field_path"`
	Confidence float64 `json:"confidence"`
}

// Validate checks the provenance reference for a given fact ID.
func (p Provenance) Validate(factID string) error {
	if p.DocumentID == "" {
		return NewSchemaViolation(EntityDocument, "", fmt.Sprintf("fact %s requires a source document reference", factID))
	}
	if p.Confidence < 0.0 || p.Confidence > 1.0 {
		return &InvalidConfidenceError{FactID: factID, Confidence: p.Confidence}
	}
	return nil
}

// ProvenanceEdge records that a fact was extracted from a document.
type ProvenanceEdge struct {
	ID          int64     `json:"id"`
	FactID      string    `json:"fact_id"` // NodeID or RelID of the derived fact
	DocumentID  string    `json:"document_id"`
	FieldPath   string    `json:"field_path"`
	Confidence  float64   `json:"confidence"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// SearchHit is one full-text search result.
type SearchHit struct {
	Node      *Node   `json:"node"`
	Relevance float64 `json:"relevance"`
}
