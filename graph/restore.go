package graph

import (
	"fmt"
	"sort"
	"time"
)

// DocumentSnapshot is a persisted document registration used when rebuilding
// the in-memory graph at startup.
type DocumentSnapshot struct {
	DocumentID   string
	Attributes   map[string]any
	RegisteredAt time.Time
}

// Restore bulk-loads persisted state into an empty store, rebuilding every
// index. It is intended for startup replay only and fails if the store has
// already accepted writes.
func (s *Store) Restore(nodes []*Node, rels []*Relationship, edges []*ProvenanceEdge, docs []DocumentSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.nodes) > 0 || len(s.rels) > 0 {
		return fmt.Errorf("restore requires an empty store (%d nodes, %d relationships present)", len(s.nodes), len(s.rels))
	}

	for _, doc := range docs {
		if doc.DocumentID == "" {
			return NewSchemaViolation(EntityDocument, "", "persisted document has empty id")
		}
		s.restoreNode(&Node{
			ID:         MakeNodeID(EntityDocument, doc.DocumentID),
			Type:       EntityDocument,
			Key:        doc.DocumentID,
			Attributes: doc.Attributes,
			CreatedAt:  doc.RegisteredAt,
			UpdatedAt:  doc.RegisteredAt,
		})
	}

	for _, n := range nodes {
		if !KnownEntityType(n.Type) {
			return NewSchemaViolation(n.Type, n.Key, "persisted node has unknown entity type")
		}
		if n.Key == "" {
			return NewSchemaViolation(n.Type, n.Key, "persisted node has empty key")
		}
		if _, exists := s.nodes[n.ID]; exists {
			continue
		}
		s.restoreNode(n.clone())
	}

	for _, rel := range rels {
		if !KnownRelType(rel.Type) {
			return NewUnknownRelType(rel.Type)
		}
		if _, ok := s.nodes[rel.SourceID]; !ok {
			return NewNotFound(rel.SourceID.Type(), rel.SourceID.Key())
		}
		if _, ok := s.nodes[rel.TargetID]; !ok {
			return NewNotFound(rel.TargetID.Type(), rel.TargetID.Key())
		}
		if _, exists := s.rels[rel.ID]; exists {
			continue
		}
		c := rel.clone()
		s.rels[c.ID] = c
		if s.outgoing[c.SourceID] == nil {
			s.outgoing[c.SourceID] = make(map[RelType][]RelID)
		}
		s.outgoing[c.SourceID][c.Type] = append(s.outgoing[c.SourceID][c.Type], c.ID)
	}

	for _, e := range edges {
		copied := *e
		s.prov[e.FactID] = append(s.prov[e.FactID], &copied)
		if e.ID > s.provSeq {
			s.provSeq = e.ID
		}
	}
	for _, factEdges := range s.prov {
		sort.Slice(factEdges, func(i, j int) bool { return factEdges[i].ID < factEdges[j].ID })
	}

	sort.Slice(s.created, func(i, j int) bool { return s.created[i].At.Before(s.created[j].At) })

	return nil
}

// restoreNode registers a node in every index, preserving its timestamps.
func (s *Store) restoreNode(n *Node) {
	if n.Attributes == nil {
		n.Attributes = map[string]any{}
	}
	s.nodes[n.ID] = n
	if s.byKey[n.Type] == nil {
		s.byKey[n.Type] = make(map[string]NodeID)
	}
	s.byKey[n.Type][n.Key] = n.ID
	s.created = append(s.created, temporalEntry{At: n.CreatedAt, ID: n.ID})
	s.addToPostings(n)
}
