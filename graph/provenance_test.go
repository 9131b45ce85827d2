package graph

import (
	"testing"
)

func TestProvenanceConfidenceBounds(t *testing.T) {
	s := NewStore()

	tests := []struct {
		name       string
		confidence float64
		wantErr    bool
	}{
		{"zero", 0.0, false},
		{"one", 1.0, false},
		{"mid", 0.85, false},
		{"negative", -0.1, true},
		{"above one", 1.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpsertEntity(EntityTicker, "NVDA", nil, Provenance{
				DocumentID: "NVDA_20250110T0930",
				FieldPath:  "ticker",
				Confidence: tt.confidence,
			})
			if tt.wantErr {
				if _, ok := err.(*InvalidConfidenceError); !ok {
					t.Errorf("expected InvalidConfidenceError, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestProvenanceOfOrdering(t *testing.T) {
	s := NewStore()

	id, _ := s.UpsertEntity(EntityTicker, "NVDA", nil, Provenance{
		DocumentID: "NVDA_20250110T0930", FieldPath: "ticker", Confidence: 0.7,
	})
	if _, err := s.RecordExtraction(string(id), "NVDA_20250111T1600", "candidates[0]", 0.9); err != nil {
		t.Fatalf("RecordExtraction failed: %v", err)
	}

	edges, err := s.ProvenanceOf(string(id))
	if err != nil {
		t.Fatalf("ProvenanceOf failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 provenance edges, got %d", len(edges))
	}
	// Most recent first.
	if edges[0].DocumentID != "NVDA_20250111T1600" {
		t.Errorf("expected newest edge first, got %s", edges[0].DocumentID)
	}
	if edges[1].DocumentID != "NVDA_20250110T0930" {
		t.Errorf("expected oldest edge last, got %s", edges[1].DocumentID)
	}
	if edges[0].ID <= edges[1].ID {
		t.Errorf("edge ids must increase with recording order: %d then %d", edges[1].ID, edges[0].ID)
	}
}

func TestRecordExtractionUnknownFact(t *testing.T) {
	s := NewStore()

	_, err := s.RecordExtraction("Ticker:NVDA", "NVDA_20250110T0930", "ticker", 1.0)
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError for unknown fact, got %v", err)
	}
}

func TestAuditCleanAfterWrites(t *testing.T) {
	s := NewStore()

	companyID, _ := s.UpsertEntity(EntityCompany, "NVIDIA Corp", nil, testProv())
	tickerID, _ := s.UpsertEntity(EntityTicker, "NVDA", nil, testProv())
	s.CreateRelationship(companyID, tickerID, RelIssued, nil, testProv())
	s.RegisterDocument("NVDA_20250110T0930", nil)

	// Every fact carries provenance; documents are exempt as chain roots.
	if gaps := s.Audit(); len(gaps) != 0 {
		t.Errorf("expected no provenance gaps, got %v", gaps)
	}
}
