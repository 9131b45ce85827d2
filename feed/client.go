// Package feed receives candidate batches from an upstream market data
// service over WebSocket. Each batch carries the raw per-ticker feature
// snapshots the scanners evaluate.
package feed

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"deskgraph/scanner"
)

// CandidateBatch is one feed message: a snapshot of raw candidates.
type CandidateBatch struct {
	Source     string                 `json:"source"`
	SentAt     time.Time              `json:"sent_at"`
	Candidates []scanner.RawCandidate `json:"candidates"`
}

// envelope wraps every feed frame with a type discriminator.
type envelope struct {
	Type  string          `json:"type"`
	Batch *CandidateBatch `json:"batch,omitempty"`
}

// subscribeRequest asks the feed to start streaming batches.
type subscribeRequest struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// pingRequest is the keep-alive frame.
type pingRequest struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Client represents a WebSocket feed client
type Client struct {
	url        string
	conn       *websocket.Conn
	header     http.Header
	writeMu    sync.Mutex
	pingCancel context.CancelFunc // Cancel function for ping goroutine
}

// NewClient creates a new feed client
func NewClient(url string, apiToken string) *Client {
	header := make(http.Header)
	if apiToken != "" {
		header.Set("Authorization", "Bearer "+apiToken)
	}

	return &Client{
		url:    url,
		header: header,
	}
}

// Connect establishes the WebSocket connection
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, c.header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	c.conn = conn
	log.Printf("✅ Connected to %s", c.url)
	return nil
}

// Subscribe requests candidate batches for the given channels. An empty
// channel list subscribes to the full market snapshot.
func (c *Client) Subscribe(channels []string) error {
	if len(channels) == 0 {
		channels = []string{"*"}
	}

	req := subscribeRequest{
		Type:     "subscribe",
		Channels: channels,
	}
	if err := c.writeJSON(req); err != nil {
		return fmt.Errorf("failed to send subscription: %w", err)
	}

	log.Printf("📡 Subscribed to feed channels %v", channels)
	return nil
}

// StartPing starts periodic ping to keep connection alive
func (c *Client) StartPing(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	c.pingCancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ping := pingRequest{Type: "ping", Timestamp: time.Now()}
				if err := c.writeJSON(ping); err != nil {
					log.Println("Failed to send ping:", err)
					return
				}
			}
		}
	}()
}

// writeJSON sends a JSON frame to the WebSocket connection thread-safely
func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("connection is nil")
	}
	return c.conn.WriteJSON(v)
}

// ReadBatch reads frames until the next candidate batch arrives. Control
// frames (pongs, acks) are skipped.
func (c *Client) ReadBatch() (*CandidateBatch, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("connection is nil")
	}

	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return nil, err
		}

		switch env.Type {
		case "batch":
			if env.Batch == nil {
				return nil, fmt.Errorf("batch frame without body")
			}
			return env.Batch, nil
		case "pong", "ack":
			continue
		default:
			log.Printf("⚠️  Ignoring unknown feed frame type %q", env.Type)
		}
	}
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	if c.pingCancel != nil {
		c.pingCancel()
	}

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
