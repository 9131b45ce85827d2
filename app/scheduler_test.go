package app

import (
	"testing"
	"time"

	"deskgraph/feed"
	"deskgraph/graph"
	"deskgraph/ingest"
	"deskgraph/scanner"
)

func TestSchedulerScansOnStart(t *testing.T) {
	store := graph.NewStore()
	batches := &BatchCache{}
	batches.Put(&feed.CandidateBatch{
		Source: "test",
		SentAt: time.Now(),
		Candidates: []scanner.RawCandidate{
			{Ticker: "NVDA", Price: 142.5, Features: map[string]float64{"momentum_score": 9, "change_pct": 2.1}},
		},
	})

	sched := NewScanScheduler(NewPipeline(nil, ingest.NewIngester(store), nil, batches, nil), testEvaluator(t))
	go sched.Start()
	defer sched.Stop()

	// The first scan fires at startup, not after the first interval.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := store.FindByKey(graph.EntitySignal, "volume-breakout"); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no scan ran at scheduler startup")
}
