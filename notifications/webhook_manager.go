package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"deskgraph/cache"
	"deskgraph/database"
	"deskgraph/graph"
	"deskgraph/triage"
)

const (
	maxDeliveryAttempts = 3
	retryDelay          = 2 * time.Second
	cooldownTTL         = 30 * time.Minute
	contextTTL          = 10 * time.Minute

	// defaultWebhookName is the reserved name of the env-configured webhook.
	defaultWebhookName = "default"
)

// contextTypes are the entity types surfaced as known context on a payload.
var contextTypes = []string{string(graph.EntityBias), string(graph.EntityRisk)}

// WebhookManager delivers triage decisions to registered desk endpoints
type WebhookManager struct {
	repo      *database.KnowledgeRepository
	decisions *cache.DecisionCache
	redis     *cache.RedisClient
	store     *graph.Store
	client    *http.Client
}

// WebhookPayload represents the JSON payload sent to webhooks
type WebhookPayload struct {
	RunID     string             `json:"RunID"`
	Scanner   string             `json:"Scanner"`
	Ticker    string             `json:"Ticker"`
	Score     float64            `json:"Score"`
	Action    string             `json:"Action"`
	Regime    string             `json:"Regime"`
	Timestamp time.Time          `json:"Timestamp"`
	KeyData   map[string]float64 `json:"KeyData,omitempty"`
	Context   []string           `json:"Context,omitempty"`
	Message   string             `json:"Message"`
}

// NewWebhookManager creates a new webhook manager
func NewWebhookManager(repo *database.KnowledgeRepository, redis *cache.RedisClient, store *graph.Store) *WebhookManager {
	return &WebhookManager{
		repo:      repo,
		decisions: cache.NewDecisionCache(redis),
		redis:     redis,
		store:     store,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyRun delivers every matching decision from a run to the registered
// webhooks. Deliveries run async; a slow endpoint never blocks the pipeline.
func (wm *WebhookManager) NotifyRun(run *triage.RunRecord) {
	webhooks, err := wm.getActiveWebhooks()
	if err != nil {
		log.Printf("⚠️  Failed to load webhooks: %v", err)
		return
	}

	if len(webhooks) == 0 {
		return
	}

	ctx := context.Background()
	for _, cd := range run.Candidates {
		// Repeated hits for the same candidate across consecutive runs
		// are suppressed until the cooldown expires.
		if wm.decisions.IsInCooldown(ctx, run.Scanner, cd.Ticker) {
			continue
		}

		known := wm.tickerContext(ctx, cd.Ticker)

		delivered := false
		for _, hook := range webhooks {
			if !wm.shouldSend(hook, run, cd) {
				continue
			}

			payload := wm.CreatePayload(run, cd, known)
			payloadBytes, err := json.Marshal(payload)
			if err != nil {
				log.Printf("⚠️  Failed to marshal webhook payload: %v", err)
				continue
			}

			delivered = true
			go wm.deliverWebhook(hook, run.RunID(), cd.Ticker, payloadBytes)
		}

		if delivered {
			_ = wm.decisions.SetCooldown(ctx, run.Scanner, cd.Ticker, cooldownTTL)
		}
	}
}

func (wm *WebhookManager) getActiveWebhooks() ([]database.DeskWebhook, error) {
	// Try cache first
	cacheKey := "active_webhooks"
	if wm.redis != nil {
		var cached []database.DeskWebhook
		if err := wm.redis.Get(context.Background(), cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	webhooks, err := wm.repo.GetActiveWebhooks()
	if err != nil {
		return nil, err
	}

	// Update cache (expire 1 hour)
	if wm.redis != nil {
		_ = wm.redis.Set(context.Background(), cacheKey, webhooks, 1*time.Hour)
	}

	return webhooks, err
}

// CreatePayload generates the webhook payload for one routed candidate
func (wm *WebhookManager) CreatePayload(run *triage.RunRecord, cd triage.CandidateDecision, known []string) WebhookPayload {
	// Example: "🚨 FULL_ANALYSIS: NVDA scored 8.6 (momentum-scan, RISK_ON)"
	message := fmt.Sprintf("🚨 %s: %s scored %.1f (%s, %s)",
		cd.Action, cd.Ticker, cd.Score, run.Scanner, run.Regime)

	return WebhookPayload{
		RunID:     run.RunID(),
		Scanner:   run.Scanner,
		Ticker:    cd.Ticker,
		Score:     cd.Score,
		Action:    string(cd.Action),
		Regime:    run.Regime,
		Timestamp: run.Timestamp,
		KeyData:   cd.KeyData,
		Context:   known,
		Message:   message,
	}
}

// tickerContext returns the biases and risks already on file for a ticker, so
// a webhook consumer sees what the desk knows about the candidate. Lookups
// are cached behind the query hash.
func (wm *WebhookManager) tickerContext(ctx context.Context, ticker string) []string {
	if wm.store == nil {
		return nil
	}

	hash := cache.GenerateQueryHash(ticker, contextTypes)
	var known []string
	if wm.decisions != nil && wm.decisions.GetLookup(ctx, hash, &known) {
		return known
	}

	node, err := wm.store.FindByKey(graph.EntityTicker, ticker)
	if err != nil {
		return nil
	}
	neighbors, err := wm.store.Neighbors(node.ID)
	if err != nil {
		return nil
	}
	for _, n := range neighbors[graph.RelHasBias] {
		known = append(known, "bias: "+n.Key)
	}
	for _, n := range neighbors[graph.RelHasRisk] {
		known = append(known, "risk: "+n.Key)
	}

	if wm.decisions != nil && len(known) > 0 {
		_ = wm.decisions.SetLookup(ctx, hash, known, contextTTL)
	}
	return known
}

func (wm *WebhookManager) shouldSend(hook database.DeskWebhook, run *triage.RunRecord, cd triage.CandidateDecision) bool {
	// Action filter; an empty list means FULL_ANALYSIS only
	if emptyJSONList(hook.Actions) {
		if cd.Action != triage.ActionFullAnalysis {
			return false
		}
	} else if !strings.Contains(hook.Actions, string(cd.Action)) {
		return false
	}

	// Scanner filter
	if !emptyJSONList(hook.Scanners) && !strings.Contains(hook.Scanners, run.Scanner) {
		return false
	}

	// Symbol filter
	if !emptyJSONList(hook.Symbols) && !strings.Contains(hook.Symbols, cd.Ticker) {
		return false
	}

	return cd.Score >= hook.MinScore
}

// emptyJSONList reports whether a stored JSON array column has no entries.
// Lenient on purpose: the columns are written by desk tooling.
func emptyJSONList(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || trimmed == "null" || trimmed == "[]"
}

func (wm *WebhookManager) deliverWebhook(hook database.DeskWebhook, runID, ticker string, payload []byte) {
	var resp *http.Response
	var err error
	start := time.Now()

	for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
		req, reqErr := http.NewRequest(http.MethodPost, hook.URL, bytes.NewBuffer(payload))
		if reqErr != nil {
			err = reqErr
			break
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Deskgraph-Triage/1.0")
		if hook.Secret != "" {
			req.Header.Set("Authorization", "Bearer "+hook.Secret)
		}

		log.Printf("🔹 Sending webhook to %s (Attempt %d/%d)", hook.URL, attempt, maxDeliveryAttempts)

		resp, err = wm.client.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			wm.logDelivery(hook.ID, runID, ticker, resp.StatusCode, "", time.Since(start))
			resp.Body.Close()
			return
		}
		if err == nil {
			resp.Body.Close()
		}

		if attempt < maxDeliveryAttempts {
			time.Sleep(retryDelay)
		}
	}

	errMsg := ""
	statusCode := 0
	if err != nil {
		errMsg = err.Error()
	} else if resp != nil {
		statusCode = resp.StatusCode
		errMsg = fmt.Sprintf("endpoint returned status %d", statusCode)
	}

	wm.logDelivery(hook.ID, runID, ticker, statusCode, errMsg, time.Since(start))
}

func (wm *WebhookManager) logDelivery(webhookID uint, runID, ticker string, code int, errMsg string, duration time.Duration) {
	success := errMsg == ""

	logEntry := &database.DeskWebhookLog{
		WebhookID:  webhookID,
		RunID:      runID,
		Ticker:     ticker,
		StatusCode: code,
		Success:    success,
		Error:      errMsg,
		DurationMs: duration.Milliseconds(),
	}

	if dbErr := wm.repo.LogWebhookDelivery(logEntry); dbErr != nil {
		log.Printf("⚠️  Failed to save webhook log: %v", dbErr)
	}
	if dbErr := wm.repo.UpdateWebhookStats(webhookID, success); dbErr != nil {
		log.Printf("⚠️  Failed to update webhook stats: %v", dbErr)
	}
}

// RefreshCache reloads webhook configurations
func (wm *WebhookManager) RefreshCache() {
	if wm.redis != nil {
		_ = wm.redis.Delete(context.Background(), "active_webhooks")
		log.Println("🔄 Webhook cache invalidated")
	}
}

// SyncDefaultWebhook reconciles the env-configured "default" webhook with the
// registry: an empty URL removes it, otherwise it is created or updated in
// place. Webhooks registered under other names are untouched.
func (wm *WebhookManager) SyncDefaultWebhook(url, secret string, minScore float64) error {
	hook, err := wm.repo.GetWebhookByName(defaultWebhookName)
	if err != nil {
		var notFound *database.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		hook = nil
	}

	if url == "" {
		if hook == nil {
			return nil
		}
		if err := wm.repo.DeleteWebhook(hook.ID); err != nil {
			return err
		}
		wm.RefreshCache()
		log.Println("🔄 Default webhook removed")
		return nil
	}

	if hook == nil {
		hook = &database.DeskWebhook{Name: defaultWebhookName}
	}
	hook.URL = url
	hook.Secret = secret
	hook.MinScore = minScore
	hook.Enabled = true
	if err := wm.repo.SaveWebhook(hook); err != nil {
		return err
	}
	wm.RefreshCache()
	log.Printf("✅ Default webhook registered: %s", url)
	return nil
}
