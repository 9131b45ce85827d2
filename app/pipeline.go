package app

import (
	"context"
	"log"
	"sync"
	"time"

	"deskgraph/cache"
	"deskgraph/database"
	"deskgraph/feed"
	"deskgraph/ingest"
	"deskgraph/notifications"
	"deskgraph/scanner"
	"deskgraph/triage"
)

// BatchCache holds the most recent candidate batch from the feed. Scanners
// run on a schedule, not per message, so only the latest snapshot matters.
type BatchCache struct {
	mu     sync.RWMutex
	latest *feed.CandidateBatch
}

// Put replaces the cached batch.
func (bc *BatchCache) Put(batch *feed.CandidateBatch) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.latest = batch
}

// Latest returns the cached batch, or nil if nothing has arrived yet.
func (bc *BatchCache) Latest() *feed.CandidateBatch {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.latest
}

// Pipeline runs one scanner over the latest candidate batch and fans the run
// record out: decision history, webhook notifications, and the knowledge
// graph. Each stage logs its own failures; a broken sink never blocks the
// others.
type Pipeline struct {
	repo     *database.KnowledgeRepository
	ingester *ingest.Ingester
	webhooks *notifications.WebhookManager
	batches  *BatchCache
	redis    *cache.RedisClient
}

// NewPipeline creates a pipeline over the shared batch cache.
func NewPipeline(repo *database.KnowledgeRepository, ingester *ingest.Ingester, webhooks *notifications.WebhookManager, batches *BatchCache, redis *cache.RedisClient) *Pipeline {
	return &Pipeline{
		repo:     repo,
		ingester: ingester,
		webhooks: webhooks,
		batches:  batches,
		redis:    redis,
	}
}

// RunScan executes one scheduled scan for an evaluator.
func (p *Pipeline) RunScan(ev *scanner.Evaluator) {
	batch := p.batches.Latest()
	if batch == nil || len(batch.Candidates) == 0 {
		log.Printf("ℹ️  Scanner %s: no candidate batch available, skipping run", ev.Config().Name)
		return
	}

	result := ev.Evaluate(batch.Candidates)
	regime := scanner.DetectRegime(batch.Candidates)
	run := triage.BuildRunRecord(result, regime, time.Now())

	if p.repo != nil {
		if err := p.repo.SaveRun(run); err != nil {
			log.Printf("⚠️  Failed to persist run %s: %v", run.RunID(), err)
		}
	}

	if p.webhooks != nil {
		p.webhooks.NotifyRun(run)
	}

	if p.ingester != nil {
		if _, err := p.ingester.IngestScanRun(run); err != nil {
			log.Printf("⚠️  Failed to ingest run %s into knowledge graph: %v", run.RunID(), err)
		}
	}

	// Live subscribers (desk dashboards) get the full run record.
	if p.redis != nil {
		if err := p.redis.Publish(context.Background(), "triage:runs", run); err != nil {
			log.Printf("⚠️  Failed to publish run %s: %v", run.RunID(), err)
		}
	}

	log.Printf("📊 Run %s (%s): %d scanned, %d passed, %d full analysis, high %.1f",
		run.RunID(), regime, run.Summary.TotalScanned, run.Summary.PassedFilters,
		run.Summary.FullAnalysis, run.Summary.HighScore)
}
