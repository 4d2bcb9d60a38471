package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"lwar/server/internal/logging"
)

func TestHealthzReflectsReadiness(t *testing.T) {
	m := New(logging.NewTestLogger())
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	//1.- Before the first tick the probe reports starting.
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d before first publish", resp.StatusCode)
	}

	m.Publish(Status{TickMs: 1})
	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d after publish", resp.StatusCode)
	}
}

func TestStatsServesLatestSnapshot(t *testing.T) {
	m := New(logging.NewTestLogger())
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	m.Publish(Status{Clients: 3, Entities: 42, QueueDepth: 7})
	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer resp.Body.Close()
	var got Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Clients != 3 || got.Entities != 42 || got.QueueDepth != 7 {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
}

func TestStreamPushesSnapshots(t *testing.T) {
	m := New(logging.NewTestLogger())
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	m.Publish(Status{Clients: 2})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var got Status
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Clients != 2 {
		t.Fatalf("streamed snapshot %+v", got)
	}
}
