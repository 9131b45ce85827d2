package graph

import (
	"testing"
)

func seedTraverseStore(t *testing.T) (*Store, NodeID) {
	t.Helper()
	s := NewStore()

	strategyID, _ := s.UpsertEntity(EntityStrategy, "breakout momentum", nil, testProv())
	for _, ticker := range []string{"NVDA", "AMD", "TSM"} {
		tickerID, _ := s.UpsertEntity(EntityTicker, ticker, nil, testProv())
		if _, err := s.CreateRelationship(strategyID, tickerID, RelWorksFor, nil, testProv()); err != nil {
			t.Fatalf("seed relationship failed: %v", err)
		}
	}
	return s, strategyID
}

func TestTraverseWorksForTickers(t *testing.T) {
	s, strategyID := seedTraverseStore(t)

	nodes, err := s.Traverse(strategyID, RelWorksFor, 1)
	if err != nil {
		t.Fatalf("traverse failed: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 reachable tickers, got %d", len(nodes))
	}
	// Results come back in key order.
	want := []string{"AMD", "NVDA", "TSM"}
	for i, node := range nodes {
		if node.Key != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], node.Key)
		}
	}
}

func TestTraverseMultiHop(t *testing.T) {
	s := NewStore()

	a, _ := s.UpsertEntity(EntityTicker, "NVDA", nil, testProv())
	b, _ := s.UpsertEntity(EntityTicker, "AMD", nil, testProv())
	c, _ := s.UpsertEntity(EntityTicker, "TSM", nil, testProv())
	s.CreateRelationship(a, b, RelCorrelatedWith, nil, testProv())
	s.CreateRelationship(b, c, RelCorrelatedWith, nil, testProv())

	nodes, err := s.Traverse(a, RelCorrelatedWith, 1)
	if err != nil {
		t.Fatalf("traverse failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("depth 1 should reach only AMD, got %d nodes", len(nodes))
	}

	nodes, _ = s.Traverse(a, RelCorrelatedWith, 2)
	if len(nodes) != 2 {
		t.Errorf("depth 2 should reach AMD and TSM, got %d nodes", len(nodes))
	}
}

func TestTraverseNodeCap(t *testing.T) {
	s, strategyID := seedTraverseStore(t)
	s.SetQueryBounds(0, 0, 2)

	nodes, err := s.Traverse(strategyID, RelWorksFor, 1)
	if err != nil {
		t.Fatalf("traverse failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("expected working-set cap at 2 nodes, got %d", len(nodes))
	}
}

func TestTraverseErrors(t *testing.T) {
	s, strategyID := seedTraverseStore(t)

	if _, err := s.Traverse(strategyID, RelType("RIVALS"), 1); err == nil {
		t.Error("expected error for unknown relationship type")
	}
	if _, err := s.Traverse(MakeNodeID(EntityStrategy, "missing"), RelWorksFor, 1); !IsNotFound(err) {
		t.Errorf("expected NotFoundError for missing start node, got %v", err)
	}
}

func TestNeighbors(t *testing.T) {
	s := NewStore()

	companyID, _ := s.UpsertEntity(EntityCompany, "NVIDIA Corp", nil, testProv())
	tickerID, _ := s.UpsertEntity(EntityTicker, "NVDA", nil, testProv())
	sectorID, _ := s.UpsertEntity(EntitySector, "Technology", nil, testProv())
	s.CreateRelationship(companyID, tickerID, RelIssued, nil, testProv())
	s.CreateRelationship(companyID, sectorID, RelBelongsTo, nil, testProv())

	neighbors, err := s.Neighbors(companyID)
	if err != nil {
		t.Fatalf("Neighbors failed: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 relationship types, got %d", len(neighbors))
	}
	if len(neighbors[RelIssued]) != 1 || neighbors[RelIssued][0].Key != "NVDA" {
		t.Errorf("expected ISSUED -> NVDA, got %v", neighbors[RelIssued])
	}
	if len(neighbors[RelBelongsTo]) != 1 || neighbors[RelBelongsTo][0].Key != "Technology" {
		t.Errorf("expected BELONGS_TO -> Technology, got %v", neighbors[RelBelongsTo])
	}
}
