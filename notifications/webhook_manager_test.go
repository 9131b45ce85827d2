package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"deskgraph/cache"
	"deskgraph/database"
	"deskgraph/graph"
	"deskgraph/triage"
)

func testRun() *triage.RunRecord {
	return &triage.RunRecord{
		Scanner:   "volume-breakout",
		Timestamp: time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC),
		Regime:    "RISK_ON",
	}
}

func TestShouldSendDefaultsToFullAnalysis(t *testing.T) {
	wm := &WebhookManager{}
	run := testRun()
	hook := database.DeskWebhook{Actions: "[]"}

	if !wm.shouldSend(hook, run, triage.CandidateDecision{Ticker: "NVDA", Score: 8.6, Action: triage.ActionFullAnalysis}) {
		t.Error("FULL_ANALYSIS should pass the default action filter")
	}
	if wm.shouldSend(hook, run, triage.CandidateDecision{Ticker: "AMD", Score: 7.0, Action: triage.ActionWatchlist}) {
		t.Error("WATCHLIST must not pass the default action filter")
	}
}

func TestShouldSendFilters(t *testing.T) {
	wm := &WebhookManager{}
	run := testRun()
	cd := triage.CandidateDecision{Ticker: "NVDA", Score: 8.6, Action: triage.ActionFullAnalysis}

	tests := []struct {
		name string
		hook database.DeskWebhook
		want bool
	}{
		{"explicit action list", database.DeskWebhook{Actions: `["FULL_ANALYSIS","WATCHLIST"]`}, true},
		{"action not listed", database.DeskWebhook{Actions: `["WATCHLIST"]`}, false},
		{"scanner match", database.DeskWebhook{Scanners: `["volume-breakout"]`}, true},
		{"scanner mismatch", database.DeskWebhook{Scanners: `["gap-scanner"]`}, false},
		{"symbol match", database.DeskWebhook{Symbols: `["NVDA","AMD"]`}, true},
		{"symbol mismatch", database.DeskWebhook{Symbols: `["AMD"]`}, false},
		{"min score met", database.DeskWebhook{MinScore: 8.0}, true},
		{"min score unmet", database.DeskWebhook{MinScore: 9.0}, false},
		{"null list treated as empty", database.DeskWebhook{Actions: "null"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wm.shouldSend(tt.hook, run, cd); got != tt.want {
				t.Errorf("shouldSend = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmptyJSONList(t *testing.T) {
	for _, raw := range []string{"", "null", "[]", "  []  "} {
		if !emptyJSONList(raw) {
			t.Errorf("expected %q to read as empty", raw)
		}
	}
	if emptyJSONList(`["FULL_ANALYSIS"]`) {
		t.Error("non-empty list misread as empty")
	}
}

func TestCreatePayload(t *testing.T) {
	wm := &WebhookManager{}
	run := testRun()
	cd := triage.CandidateDecision{
		Ticker:  "NVDA",
		Score:   8.6,
		Action:  triage.ActionFullAnalysis,
		KeyData: map[string]float64{"price": 142.5},
	}

	payload := wm.CreatePayload(run, cd, nil)
	if payload.RunID != "volume-breakout_20250110T0930" {
		t.Errorf("unexpected run id: %s", payload.RunID)
	}
	if payload.Ticker != "NVDA" || payload.Score != 8.6 || payload.Action != "FULL_ANALYSIS" {
		t.Errorf("payload lost decision fields: %+v", payload)
	}
	if !strings.Contains(payload.Message, "NVDA scored 8.6") || !strings.Contains(payload.Message, "RISK_ON") {
		t.Errorf("unexpected message: %s", payload.Message)
	}
	if payload.KeyData["price"] != 142.5 {
		t.Errorf("key data dropped: %v", payload.KeyData)
	}
}

func TestTickerContextFromGraph(t *testing.T) {
	store := graph.NewStore()
	prov := graph.Provenance{DocumentID: "NVDA_20250110T0930", FieldPath: "bias", Confidence: 1.0}
	tickerID, err := store.UpsertEntity(graph.EntityTicker, "NVDA", nil, prov)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	biasID, _ := store.UpsertEntity(graph.EntityBias, "bullish", nil, prov)
	riskID, _ := store.UpsertEntity(graph.EntityRisk, "semiconductor cycle", nil, prov)
	if _, err := store.CreateRelationship(tickerID, biasID, graph.RelHasBias, nil, prov); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := store.CreateRelationship(tickerID, riskID, graph.RelHasRisk, nil, prov); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	wm := &WebhookManager{store: store, decisions: cache.NewDecisionCache(nil)}

	known := wm.tickerContext(context.Background(), "NVDA")
	want := []string{"bias: bullish", "risk: semiconductor cycle"}
	if len(known) != len(want) {
		t.Fatalf("expected %v, got %v", want, known)
	}
	for i := range want {
		if known[i] != want[i] {
			t.Errorf("context[%d] = %q, want %q", i, known[i], want[i])
		}
	}

	// The context rides on the payload.
	payload := wm.CreatePayload(testRun(), triage.CandidateDecision{Ticker: "NVDA", Score: 8.6, Action: triage.ActionFullAnalysis}, known)
	if len(payload.Context) != 2 {
		t.Errorf("payload lost ticker context: %v", payload.Context)
	}

	// Unknown tickers produce no context rather than an error.
	if got := wm.tickerContext(context.Background(), "ZZZZ"); got != nil {
		t.Errorf("expected nil context for unknown ticker, got %v", got)
	}
}
