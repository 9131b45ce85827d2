package graph

import (
	"testing"
	"time"
)

// capturePersister records write-through calls so tests can replay them into
// a fresh store.
type capturePersister struct {
	nodes []*Node
	rels  []*Relationship
	edges []*ProvenanceEdge
	docs  []DocumentSnapshot
}

func (p *capturePersister) PersistNode(n *Node) error {
	p.nodes = append(p.nodes, n.clone())
	return nil
}

func (p *capturePersister) PersistRelationship(rel *Relationship) error {
	p.rels = append(p.rels, rel.clone())
	return nil
}

func (p *capturePersister) PersistProvenance(edge *ProvenanceEdge) error {
	copied := *edge
	p.edges = append(p.edges, &copied)
	return nil
}

func (p *capturePersister) PersistDocument(id string, attrs map[string]any, registeredAt time.Time) error {
	p.docs = append(p.docs, DocumentSnapshot{DocumentID: id, Attributes: attrs, RegisteredAt: registeredAt})
	return nil
}

func TestRestoreRoundTrip(t *testing.T) {
	source := NewStore()
	persister := &capturePersister{}
	source.SetPersister(persister)

	source.RegisterDocument("NVDA_20250110T0930", map[string]any{"doc_type": "analysis"})
	companyID, _ := source.UpsertEntity(EntityCompany, "NVIDIA Corp", map[string]any{"description": "chip designer"}, testProv())
	tickerID, _ := source.UpsertEntity(EntityTicker, "NVDA", nil, testProv())
	source.CreateRelationship(companyID, tickerID, RelIssued, nil, testProv())

	// Nodes are persisted on every upsert, so replay may contain duplicates.
	// Restore must tolerate them.
	restored := NewStore()
	if err := restored.Restore(persister.nodes, persister.rels, persister.edges, persister.docs); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	wantNodes, wantRels := source.Counts()
	gotNodes, gotRels := restored.Counts()
	if gotNodes != wantNodes || gotRels != wantRels {
		t.Errorf("counts diverged after restore: %d/%d nodes, %d/%d relationships",
			gotNodes, wantNodes, gotRels, wantRels)
	}

	if !restored.HasDocument("NVDA_20250110T0930") {
		t.Error("document registration lost in restore")
	}

	node, err := restored.FindByKey(EntityCompany, "NVIDIA Corp")
	if err != nil {
		t.Fatalf("restored lookup failed: %v", err)
	}
	if node.Attr("description") != "chip designer" {
		t.Errorf("restored attributes diverged: %q", node.Attr("description"))
	}

	// Token index is rebuilt, not persisted.
	if hits := restored.Search("chip", nil); len(hits) != 1 {
		t.Errorf("expected search to work after restore, got %v", hits)
	}

	// Provenance survives with ordering intact.
	edges, err := restored.ProvenanceOf(string(tickerID))
	if err != nil {
		t.Fatalf("restored provenance lookup failed: %v", err)
	}
	if len(edges) == 0 {
		t.Error("provenance edges lost in restore")
	}
	if gaps := restored.Audit(); len(gaps) != 0 {
		t.Errorf("restore introduced provenance gaps: %v", gaps)
	}
}

func TestRestoreSequenceContinues(t *testing.T) {
	edge := &ProvenanceEdge{ID: 42, FactID: "Ticker:NVDA", DocumentID: "NVDA_20250110T0930", Confidence: 1.0, ExtractedAt: time.Now()}
	node := &Node{ID: MakeNodeID(EntityTicker, "NVDA"), Type: EntityTicker, Key: "NVDA", CreatedAt: time.Now(), UpdatedAt: time.Now()}

	s := NewStore()
	if err := s.Restore([]*Node{node}, nil, []*ProvenanceEdge{edge}, nil); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// New edges must not collide with replayed ids.
	id, err := s.RecordExtraction("Ticker:NVDA", "NVDA_20250111T1600", "ticker", 1.0)
	if err != nil {
		t.Fatalf("RecordExtraction failed: %v", err)
	}
	if id <= 42 {
		t.Errorf("expected new edge id above restored sequence, got %d", id)
	}
}

func TestRestoreRequiresEmptyStore(t *testing.T) {
	s := NewStore()
	s.UpsertEntity(EntityTicker, "NVDA", nil, testProv())

	if err := s.Restore(nil, nil, nil, nil); err == nil {
		t.Error("expected restore into non-empty store to fail")
	}
}

func TestRestoreRejectsDanglingRelationship(t *testing.T) {
	rel := &Relationship{
		ID:       MakeRelID(MakeNodeID(EntityCompany, "NVIDIA Corp"), RelIssued, MakeNodeID(EntityTicker, "NVDA")),
		Type:     RelIssued,
		SourceID: MakeNodeID(EntityCompany, "NVIDIA Corp"),
		TargetID: MakeNodeID(EntityTicker, "NVDA"),
	}

	s := NewStore()
	if err := s.Restore(nil, []*Relationship{rel}, nil, nil); !IsNotFound(err) {
		t.Errorf("expected NotFoundError for dangling endpoints, got %v", err)
	}
}
