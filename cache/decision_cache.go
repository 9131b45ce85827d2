package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"
)

// DecisionCache provides short-lived caching around the triage pipeline:
// notification cooldowns per ticker and cached graph lookups keyed on a
// query hash.
type DecisionCache struct {
	redis *RedisClient
}

// NewDecisionCache creates a new decision cache instance
func NewDecisionCache(redis *RedisClient) *DecisionCache {
	return &DecisionCache{
		redis: redis,
	}
}

// SetCooldown sets a cooldown period for a ticker to suppress repeated
// notifications for the same candidate across consecutive runs.
func (c *DecisionCache) SetCooldown(ctx context.Context, scanner, ticker string, ttl time.Duration) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	cooldownKey := fmt.Sprintf("triage:cooldown:%s:%s", scanner, ticker)
	return c.redis.Set(ctx, cooldownKey, time.Now().Unix(), ttl)
}

// IsInCooldown checks if a ticker is in cooldown period for a scanner
func (c *DecisionCache) IsInCooldown(ctx context.Context, scanner, ticker string) bool {
	if c.redis == nil {
		return false
	}

	cooldownKey := fmt.Sprintf("triage:cooldown:%s:%s", scanner, ticker)
	var timestamp int64

	if err := c.redis.Get(ctx, cooldownKey, &timestamp); err != nil {
		return false
	}

	return timestamp > 0
}

// GetLookup retrieves a cached graph lookup result set for a query hash.
// Returns false on a miss; dest is only populated on a hit.
func (c *DecisionCache) GetLookup(ctx context.Context, queryHash string, dest interface{}) bool {
	if c.redis == nil {
		return false
	}

	cacheKey := fmt.Sprintf("graph:lookup:%s", queryHash)
	return c.redis.Get(ctx, cacheKey, dest) == nil
}

// SetLookup caches a graph lookup result set for a query hash
func (c *DecisionCache) SetLookup(ctx context.Context, queryHash string, results interface{}, ttl time.Duration) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	cacheKey := fmt.Sprintf("graph:lookup:%s", queryHash)
	return c.redis.Set(ctx, cacheKey, results, ttl)
}

// GenerateQueryHash creates a stable hash for a graph query and its type
// filter, used as the cache key.
func GenerateQueryHash(query string, types []string) string {
	payload, _ := json.Marshal(struct {
		Query string   `json:"query"`
		Types []string `json:"types"`
	}{query, types})
	hash := md5.Sum(payload)
	return fmt.Sprintf("%x", hash[:8]) // Use first 8 bytes for shorter hash
}
