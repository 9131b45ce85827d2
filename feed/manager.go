package feed

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ConnectionManager handles feed connection lifecycle, health monitoring,
// and reconnection.
type ConnectionManager struct {
	client      *Client
	url         string
	apiToken    string
	channels    []string
	lastMsgTime time.Time
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager(url, apiToken string, channels []string) *ConnectionManager {
	return &ConnectionManager{
		url:         url,
		apiToken:    apiToken,
		channels:    channels,
		lastMsgTime: time.Now(),
	}
}

// Connect establishes the initial feed connection and subscribes.
func (cm *ConnectionManager) Connect() error {
	fmt.Println("🔌 Connecting to candidate feed...")
	cm.client = NewClient(cm.url, cm.apiToken)

	if err := cm.client.Connect(); err != nil {
		return fmt.Errorf("candidate feed connection failed: %w", err)
	}
	fmt.Println("✅ Candidate feed connected!")

	return cm.client.Subscribe(cm.channels)
}

// StartPing starts the keep-alive pinger.
func (cm *ConnectionManager) StartPing(interval time.Duration) {
	if cm.client != nil {
		cm.client.StartPing(interval)
	}
}

// ReadBatch reads the next candidate batch from the feed.
func (cm *ConnectionManager) ReadBatch() (*CandidateBatch, error) {
	if cm.client == nil {
		return nil, fmt.Errorf("client not connected")
	}
	batch, err := cm.client.ReadBatch()
	if err == nil {
		cm.lastMsgTime = time.Now()
	}
	return batch, err
}

// Close closes the connection.
func (cm *ConnectionManager) Close() error {
	if cm.client != nil {
		return cm.client.Close()
	}
	return nil
}

// Reconnect attempts to reconnect the feed with exponential backoff.
func (cm *ConnectionManager) Reconnect() error {
	_ = cm.Close()

	backoff := 2 * time.Second
	for attempt := 1; attempt <= 5; attempt++ {
		cm.client = NewClient(cm.url, cm.apiToken)
		if err := cm.client.Connect(); err != nil {
			log.Printf("⚠️  Feed reconnect attempt %d failed: %v", attempt, err)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		if err := cm.client.Subscribe(cm.channels); err != nil {
			log.Printf("⚠️  Feed resubscribe failed: %v", err)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		cm.StartPing(25 * time.Second)
		log.Println("✅ Feed reconnection successful")
		return nil
	}

	return fmt.Errorf("feed reconnection failed after 5 attempts")
}

// RunHealthMonitor starts a background loop to check connection health.
func (cm *ConnectionManager) RunHealthMonitor(ctx context.Context) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	log.Println("💓 Feed health monitoring started")

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Feed health monitoring stopped")
			return
		case <-ticker.C:
			timeSinceLastMessage := time.Since(cm.lastMsgTime)

			// No batch for 5 minutes means the connection is stale
			if timeSinceLastMessage > 5*time.Minute {
				log.Printf("⚠️  No feed message received for %v, reconnecting...", timeSinceLastMessage.Round(time.Second))

				if err := cm.Reconnect(); err != nil {
					log.Printf("❌ Feed reconnection failed: %v", err)
				} else {
					cm.lastMsgTime = time.Now()
				}
			} else {
				log.Printf("💓 Feed healthy, last message %v ago", timeSinceLastMessage.Round(time.Second))
			}
		}
	}
}
