package triage

import (
	"testing"
	"time"

	"deskgraph/scanner"
)

func TestRouteBands(t *testing.T) {
	tests := []struct {
		score float64
		want  Action
	}{
		{10, ActionFullAnalysis},
		{8.6, ActionFullAnalysis},
		{7.5, ActionFullAnalysis}, // boundary is inclusive
		{7.49, ActionWatchlist},
		{6.5, ActionWatchlist},
		{6.49, ActionMonitor},
		{5.5, ActionMonitor},
		{5.49, ActionSkip},
		{0, ActionSkip},
	}
	for _, tt := range tests {
		if got := Route(tt.score); got != tt.want {
			t.Errorf("Route(%.2f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func sampleResult() *scanner.Result {
	return &scanner.Result{
		Scanner:       "volume-breakout",
		TotalScanned:  10,
		PassedFilters: 5,
		HighScore:     8.6,
		Candidates: []scanner.ScoredCandidate{
			{Ticker: "NVDA", Score: 8.6, Breakdown: map[string]float64{"momentum": 9}},
			{Ticker: "AMD", Score: 7.0},
			{Ticker: "TSM", Score: 6.8},
			{Ticker: "INTC", Score: 5.9},
			{Ticker: "MU", Score: 4.2},
		},
	}
}

func TestBuildRunRecord(t *testing.T) {
	at := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	record := BuildRunRecord(sampleResult(), scanner.RegimeRiskOn, at)

	if record.Scanner != "volume-breakout" || record.Regime != scanner.RegimeRiskOn {
		t.Errorf("unexpected record header: %s %s", record.Scanner, record.Regime)
	}

	// Evaluator ordering is preserved.
	want := []struct {
		ticker string
		action Action
	}{
		{"NVDA", ActionFullAnalysis},
		{"AMD", ActionWatchlist},
		{"TSM", ActionWatchlist},
		{"INTC", ActionMonitor},
		{"MU", ActionSkip},
	}
	if len(record.Candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(record.Candidates))
	}
	for i, w := range want {
		c := record.Candidates[i]
		if c.Ticker != w.ticker || c.Action != w.action {
			t.Errorf("position %d: got %s/%s, want %s/%s", i, c.Ticker, c.Action, w.ticker, w.action)
		}
	}

	s := record.Summary
	if s.TotalScanned != 10 || s.PassedFilters != 5 || s.HighScore != 8.6 {
		t.Errorf("batch context lost in summary: %+v", s)
	}
	if s.FullAnalysis != 1 || s.Watchlist != 2 || s.Monitor != 1 || s.Skipped != 1 {
		t.Errorf("unexpected action counts: %+v", s)
	}
}

func TestRunID(t *testing.T) {
	record := &RunRecord{
		Scanner:   "volume-breakout",
		Timestamp: time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC),
	}
	if got := record.RunID(); got != "volume-breakout_20250110T0930" {
		t.Errorf("unexpected run id: %s", got)
	}

	// Non-UTC timestamps normalize to the same id.
	jakarta := time.FixedZone("WIB", 7*3600)
	record.Timestamp = time.Date(2025, 1, 10, 16, 30, 0, 0, jakarta)
	if got := record.RunID(); got != "volume-breakout_20250110T0930" {
		t.Errorf("expected UTC-normalized run id, got %s", got)
	}
}

func TestDecisions(t *testing.T) {
	at := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	record := BuildRunRecord(sampleResult(), scanner.RegimeNeutral, at)

	decisions := record.Decisions()
	if len(decisions) != 5 {
		t.Fatalf("expected 5 decisions, got %d", len(decisions))
	}
	for _, d := range decisions {
		if d.Scanner != "volume-breakout" || !d.Timestamp.Equal(at) {
			t.Errorf("decision lost run context: %+v", d)
		}
	}
}

func TestFullAnalysisCandidates(t *testing.T) {
	record := BuildRunRecord(sampleResult(), scanner.RegimeNeutral, time.Now())

	full := record.FullAnalysisCandidates()
	if len(full) != 1 || full[0].Ticker != "NVDA" {
		t.Errorf("expected only NVDA at FULL_ANALYSIS, got %v", full)
	}
}
