package graph

import (
	"log"
	"sort"
	"time"
)

// recordProvenance appends an extraction edge for a committed fact. Caller
// holds the write lock and has validated the provenance reference.
func (s *Store) recordProvenance(factID string, prov Provenance) *ProvenanceEdge {
	s.provSeq++
	edge := &ProvenanceEdge{
		ID:          s.provSeq,
		FactID:      factID,
		DocumentID:  prov.DocumentID,
		FieldPath:   prov.FieldPath,
		Confidence:  prov.Confidence,
		ExtractedAt: time.Now(),
	}
	s.prov[factID] = append(s.prov[factID], edge)

	if s.persist != nil {
		if err := s.persist.PersistProvenance(edge); err != nil {
			log.Printf("⚠️  Failed to persist provenance edge for %s: %v", factID, err)
		}
	}
	return edge
}

// RecordExtraction attaches an additional provenance edge to an existing fact
// (node or relationship). Fails with InvalidConfidenceError if confidence is
// outside [0, 1].
func (s *Store) RecordExtraction(factID, documentID, fieldPath string, confidence float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prov := Provenance{DocumentID: documentID, FieldPath: fieldPath, Confidence: confidence}
	if err := prov.Validate(factID); err != nil {
		return 0, err
	}
	if !s.factExists(factID) {
		return 0, &NotFoundError{Key: factID}
	}

	edge := s.recordProvenance(factID, prov)
	return edge.ID, nil
}

// ProvenanceOf returns the provenance edges for a fact, most recent first.
func (s *Store) ProvenanceOf(factID string) ([]*ProvenanceEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.factExists(factID) {
		return nil, &NotFoundError{Key: factID}
	}

	edges := s.prov[factID]
	out := make([]*ProvenanceEdge, len(edges))
	for i, e := range edges {
		copied := *e
		out[len(edges)-1-i] = &copied
	}
	return out, nil
}

// Audit returns the IDs of facts with zero provenance edges. Document nodes
// are exempt: they are the roots of the provenance chain. A non-empty result
// indicates an invariant violation somewhere in the write path.
func (s *Store) Audit() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var gaps []string
	for id := range s.nodes {
		if id.Type() == EntityDocument {
			continue
		}
		if len(s.prov[string(id)]) == 0 {
			gaps = append(gaps, string(id))
		}
	}
	for id := range s.rels {
		if len(s.prov[string(id)]) == 0 {
			gaps = append(gaps, string(id))
		}
	}
	sort.Strings(gaps)
	return gaps
}

func (s *Store) factExists(factID string) bool {
	if _, ok := s.nodes[NodeID(factID)]; ok {
		return true
	}
	_, ok := s.rels[RelID(factID)]
	return ok
}
