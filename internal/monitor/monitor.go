// Package monitor exposes the server's live status over HTTP: a readiness
// probe, a JSON stats snapshot, and a WebSocket stream pushing the snapshot
// once a second to connected observers.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lwar/server/internal/logging"
)

// Status is the immutable per-tick snapshot the tick loop publishes. The
// HTTP goroutines only ever read whole copies.
type Status struct {
	UptimeMs    int64  `json:"uptime_ms"`
	TickMs      int64  `json:"tick_ms"`
	Clients     int    `json:"clients"`
	Bots        int    `json:"bots"`
	Entities    int    `json:"entities"`
	QueueDepth  int    `json:"queue_depth"`
	RecvPackets uint64 `json:"recv_packets"`
	SentPackets uint64 `json:"sent_packets"`
	Resends     uint64 `json:"resends"`
	RecvMicros  int64  `json:"recv_micros"`
	SendMicros  int64  `json:"send_micros"`
	PhysMicros  int64  `json:"physics_micros"`
}

// streamInterval paces WebSocket pushes.
const streamInterval = time.Second

// Monitor serves the status surface.
type Monitor struct {
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	status Status
	ready  bool
}

// New builds a monitor; Publish makes it ready.
func New(log *logging.Logger) *Monitor {
	if log == nil {
		log = logging.L()
	}
	return &Monitor{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The monitor is an operator surface, not a player surface.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Publish stores the latest tick snapshot. Called from the tick loop.
func (m *Monitor) Publish(s Status) {
	m.mu.Lock()
	m.status = s
	m.ready = true
	m.mu.Unlock()
}

// Latest returns the most recent snapshot and whether one was published.
func (m *Monitor) Latest() (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, m.ready
}

// Handler returns the monitor mux with trace-id propagation.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", m.handleHealth)
	mux.HandleFunc("/stats", m.handleStats)
	mux.HandleFunc("/ws", m.handleStream)
	return logging.HTTPTraceMiddleware(m.log)(mux)
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, ready := m.Latest()
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "starting"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	status, ready := m.Latest()
	if !ready {
		http.Error(w, "no tick observed yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// handleStream upgrades to WebSocket and pushes snapshots until the peer
// goes away or a write stalls.
func (m *Monitor) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn("monitor upgrade failed", logging.Error(err))
		return
	}
	logger := logging.LoggerFromContext(r.Context())
	logger.Debug("monitor stream opened", logging.String("peer", conn.RemoteAddr().String()))

	//1.- Reads are only drained for control frames; observers never send.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()
	defer conn.Close()
	for range ticker.C {
		status, ready := m.Latest()
		if !ready {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(status); err != nil {
			//2.- A slow or gone observer is dropped, never waited on.
			logger.Debug("monitor stream closed", logging.Error(err))
			return
		}
	}
}
