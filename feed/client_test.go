package feed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

// feedServer upgrades the test connection, records the subscribe request, and
// plays the given frames back to the client.
func feedServer(t *testing.T, frames []string, gotSubscribe chan subscribeRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var sub subscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe failed: %v", err)
			return
		}
		if gotSubscribe != nil {
			gotSubscribe <- sub
		}

		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestReadBatchSkipsControlFrames(t *testing.T) {
	frames := []string{
		`{"type":"ack"}`,
		`{"type":"pong"}`,
		`{"type":"batch","batch":{"source":"test","candidates":[{"ticker":"NVDA","price":142.5,"features":{"momentum_score":9}}]}}`,
	}
	server := feedServer(t, frames, nil)
	defer server.Close()

	client := NewClient(wsURL(server), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()
	if err := client.Subscribe(nil); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	batch, err := client.ReadBatch()
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	if batch.Source != "test" || len(batch.Candidates) != 1 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	c := batch.Candidates[0]
	if c.Ticker != "NVDA" || c.Price != 142.5 || c.Features["momentum_score"] != 9 {
		t.Errorf("candidate fields lost in decode: %+v", c)
	}
}

func TestSubscribeDefaultsToAllChannels(t *testing.T) {
	gotSubscribe := make(chan subscribeRequest, 1)
	server := feedServer(t, nil, gotSubscribe)
	defer server.Close()

	client := NewClient(wsURL(server), "secret-token")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()
	if err := client.Subscribe(nil); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	select {
	case sub := <-gotSubscribe:
		if sub.Type != "subscribe" {
			t.Errorf("unexpected frame type %q", sub.Type)
		}
		if len(sub.Channels) != 1 || sub.Channels[0] != "*" {
			t.Errorf("expected wildcard subscription, got %v", sub.Channels)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received subscribe frame")
	}
}

func TestReadBatchRejectsEmptyBatchFrame(t *testing.T) {
	server := feedServer(t, []string{`{"type":"batch"}`}, nil)
	defer server.Close()

	client := NewClient(wsURL(server), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()
	if err := client.Subscribe(nil); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if _, err := client.ReadBatch(); err == nil {
		t.Error("expected error for batch frame without body")
	}
}

func TestClientWithoutConnection(t *testing.T) {
	client := NewClient("ws://unused", "")

	if _, err := client.ReadBatch(); err == nil {
		t.Error("expected error reading before connect")
	}
	if err := client.Subscribe(nil); err == nil {
		t.Error("expected error subscribing before connect")
	}

	var env envelope
	if err := json.Unmarshal([]byte(`{"type":"pong"}`), &env); err != nil || env.Type != "pong" {
		t.Errorf("envelope decode broken: %v %+v", err, env)
	}
}
