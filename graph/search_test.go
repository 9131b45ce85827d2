package graph

import (
	"testing"
)

func seedSearchStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()

	seeds := []struct {
		entityType EntityType
		key        string
		attrs      map[string]any
	}{
		{EntityTicker, "NVDA", map[string]any{"name": "NVIDIA"}},
		{EntityTicker, "AMD", nil},
		{EntityCompany, "NVIDIA Corp", map[string]any{"description": "designs graphics processors"}},
		{EntityStrategy, "breakout momentum", map[string]any{"description": "volume breakout entries"}},
		{EntitySector, "Technology", nil}, // not searchable
	}
	for _, seed := range seeds {
		if _, err := s.UpsertEntity(seed.entityType, seed.key, seed.attrs, testProv()); err != nil {
			t.Fatalf("seed %s %q failed: %v", seed.entityType, seed.key, err)
		}
	}
	return s
}

func TestSearchMatchesKeyField(t *testing.T) {
	s := seedSearchStore(t)

	// A Ticker with no attributes is still findable by symbol.
	hits := s.Search("amd", nil)
	if len(hits) != 1 || hits[0].Node.Key != "AMD" {
		t.Fatalf("expected AMD hit, got %v", hits)
	}
}

func TestSearchRelevanceAndTieBreak(t *testing.T) {
	s := seedSearchStore(t)

	hits := s.Search("nvidia graphics", nil)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	// The company matches both tokens, the ticker only one.
	if hits[0].Node.Key != "NVIDIA Corp" || hits[0].Relevance != 2 {
		t.Errorf("expected NVIDIA Corp first with relevance 2, got %s (%.0f)", hits[0].Node.Key, hits[0].Relevance)
	}
	if hits[1].Node.Key != "NVDA" || hits[1].Relevance != 1 {
		t.Errorf("expected NVDA second with relevance 1, got %s (%.0f)", hits[1].Node.Key, hits[1].Relevance)
	}
}

func TestSearchTypeRestriction(t *testing.T) {
	s := seedSearchStore(t)

	hits := s.Search("nvidia", []EntityType{EntityTicker})
	if len(hits) != 1 || hits[0].Node.Type != EntityTicker {
		t.Errorf("expected only Ticker hits, got %v", hits)
	}

	// Non-searchable types are ignored even when requested.
	hits = s.Search("technology", []EntityType{EntitySector})
	if len(hits) != 0 {
		t.Errorf("expected no hits for non-searchable type, got %v", hits)
	}
}

func TestSearchReflectsAttributeMerge(t *testing.T) {
	s := seedSearchStore(t)

	if _, err := s.UpsertEntity(EntityCompany, "NVIDIA Corp", map[string]any{"description": "accelerated computing"}, testProv()); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	// Old description tokens must be gone from the index.
	if hits := s.Search("graphics", []EntityType{EntityCompany}); len(hits) != 0 {
		t.Errorf("stale postings survived attribute merge: %v", hits)
	}
	if hits := s.Search("accelerated", []EntityType{EntityCompany}); len(hits) != 1 {
		t.Errorf("merged description not indexed: %v", hits)
	}
}

func TestSearchLimit(t *testing.T) {
	s := seedSearchStore(t)
	s.SetQueryBounds(1, 0, 0)

	hits := s.Search("nvidia graphics", nil)
	if len(hits) != 1 {
		t.Fatalf("expected limit to cap results at 1, got %d", len(hits))
	}
	// Highest relevance survives the cut.
	if hits[0].Node.Key != "NVIDIA Corp" {
		t.Errorf("expected best hit kept under limit, got %s", hits[0].Node.Key)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := seedSearchStore(t)

	if hits := s.Search("   ", nil); hits != nil {
		t.Errorf("expected nil for empty query, got %v", hits)
	}
}
