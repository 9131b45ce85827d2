package app

import (
	"log"
	"time"

	"deskgraph/database"
	"deskgraph/graph"
	"deskgraph/triage"
)

// AuditRefresher periodically cross-checks provenance coverage: the in-memory
// graph audit against the persisted records, plus decision and webhook
// delivery summaries for the desk.
type AuditRefresher struct {
	store *graph.Store
	repo  *database.KnowledgeRepository
	raw   *database.DB
	done  chan bool
}

// NewAuditRefresher creates a new audit refresher
func NewAuditRefresher(store *graph.Store, repo *database.KnowledgeRepository, raw *database.DB) *AuditRefresher {
	return &AuditRefresher{
		store: store,
		repo:  repo,
		raw:   raw,
		done:  make(chan bool),
	}
}

// Start begins the audit loop
func (ar *AuditRefresher) Start() {
	log.Println("🔄 Provenance audit refresher started")

	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	// Initial run
	ar.runAudit()

	for {
		select {
		case <-ticker.C:
			ar.runAudit()
		case <-ar.done:
			log.Println("🔄 Provenance audit refresher stopped")
			return
		}
	}
}

// Stop stops the audit loop
func (ar *AuditRefresher) Stop() {
	ar.done <- true
}

// runAudit checks provenance coverage in memory and in the database.
func (ar *AuditRefresher) runAudit() {
	unsourced := ar.store.Audit()
	if len(unsourced) > 0 {
		log.Printf("⚠️  Provenance audit: %d facts without a source document (first: %s)",
			len(unsourced), unsourced[0])
	} else {
		log.Println("✅ Provenance audit: every fact traces to a source document")
	}

	if ar.raw != nil {
		gaps, err := ar.raw.ProvenanceGaps()
		if err != nil {
			log.Printf("⚠️  Failed to query persisted provenance gaps: %v", err)
		} else if len(gaps) > 0 {
			log.Printf("⚠️  Persisted provenance gaps: %d nodes (first: %s)", len(gaps), gaps[0].FactID)
		}

		counts, err := ar.raw.DecisionDistribution(7)
		if err != nil {
			log.Printf("⚠️  Failed to query decision distribution: %v", err)
		} else {
			for _, c := range counts {
				log.Printf("📊 Last 7d: %s %s = %d", c.Scanner, c.Action, c.Count)
			}
		}
	}

	if ar.repo != nil {
		ar.logRecentActivity()
	}
}

// logRecentActivity summarizes the latest runs, full-analysis decisions, and
// webhook delivery stats.
func (ar *AuditRefresher) logRecentActivity() {
	runs, err := ar.repo.GetRecentRuns("", 5)
	if err != nil {
		log.Printf("⚠️  Failed to query recent runs: %v", err)
	} else {
		for _, r := range runs {
			log.Printf("📈 Run %s: %d scanned, %d full analysis, high %.1f",
				r.ID, r.TotalScanned, r.FullAnalysis, r.HighScore)
		}
	}

	decisions, err := ar.repo.GetRecentDecisions("", string(triage.ActionFullAnalysis), 10)
	if err != nil {
		log.Printf("⚠️  Failed to query recent decisions: %v", err)
	} else if len(decisions) > 0 {
		log.Printf("🧠 %d recent FULL_ANALYSIS decisions (latest: %s at %.1f)",
			len(decisions), decisions[0].Ticker, decisions[0].Score)
	}

	hooks, err := ar.repo.GetWebhooks()
	if err != nil {
		log.Printf("⚠️  Failed to query webhooks: %v", err)
		return
	}
	for _, h := range hooks {
		log.Printf("📡 Webhook %s: %d delivered, %d failed", h.Name, h.SuccessCount, h.FailureCount)
	}
}
