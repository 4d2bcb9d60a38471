package server

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"lwar/server/internal/config"
	"lwar/server/internal/logging"
	"lwar/server/internal/transport"
	"lwar/server/internal/wire"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               0,
		UpdateInterval:     config.DefaultUpdateInterval,
		TimeoutInterval:    config.DefaultTimeoutInterval,
		RetransmitInterval: config.DefaultRetransmitInterval,
		DiscoveryInterval:  config.DefaultDiscoveryInterval,
		StatsInterval:      config.DefaultStatsInterval,
		MisbehaviorLimit:   config.DefaultMisbehaviorLimit,
		Planets:            3,
		Bots:               1,
		TracePath:          filepath.Join(t.TempDir(), "trace.snappy"),
	}
}

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := New(testConfig(t), logging.NewTestLogger(), nil)
	if err := srv.Init(); err != nil {
		t.Skipf("cannot bind sockets in this environment: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestServerEndToEndHandshake(t *testing.T) {
	srv := startServer(t)

	client, err := transport.Bind(0)
	if err != nil {
		t.Skipf("cannot bind client socket: %v", err)
	}
	defer client.Close()
	serverAddr := transport.FromUDPAddr(&net.UDPAddr{IP: net.IPv6loopback, Port: int(srv.Port())})

	//1.- First tick only establishes the clock base.
	now := int64(1)
	srv.Tick(now, true)

	var b wire.Buffer
	wire.PackHeader(&b, 0)
	wire.PackMessage(&b, 1, &wire.Connect{Rev: wire.NetworkRevision, Nick: "e2e"})
	if err := client.Send(b.Bytes(), serverAddr); err != nil {
		t.Fatalf("client send: %v", err)
	}

	//2.- Tick until the handshake burst arrives: JOIN, the world download,
	// and the SYNCED marker.
	seen := map[wire.Tag]int{}
	buf := make([]byte, 2048)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		now += 10
		srv.Tick(now, true)
		for {
			n, _, err := client.Recv(buf)
			if err != nil {
				t.Fatalf("client recv: %v", err)
			}
			if n == 0 {
				break
			}
			var in wire.Buffer
			in.SetPayload(buf[:n])
			if _, ok := wire.UnpackHeader(&in); !ok {
				t.Fatalf("server datagram with a foreign header")
			}
			for {
				m, _, ok := wire.UnpackMessage(&in)
				if !ok {
					break
				}
				seen[m.Tag()]++
				if m.Tag().IsUpdate() {
					break
				}
			}
		}
		if seen[wire.TagSynced] > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	if seen[wire.TagSynced] == 0 {
		t.Fatalf("handshake never completed: %v", seen)
	}
	//3.- The newcomer, the server slot, and the bot all join the roster.
	if seen[wire.TagJoin] < 3 {
		t.Fatalf("%d JOIN messages, want at least 3", seen[wire.TagJoin])
	}
	//4.- The populated world (sun + 3 planets) downloads as ADD messages.
	if seen[wire.TagAdd] < 4 {
		t.Fatalf("%d ADD messages, want at least the populated world", seen[wire.TagAdd])
	}
}

func TestTickPublishesMonitorStatus(t *testing.T) {
	srv := startServer(t)
	srv.Tick(1, false)
	srv.Tick(50, false)

	status, _ := srv.Monitor().Latest()
	if status.Entities < 4 {
		t.Fatalf("status reports %d entities, want the populated world", status.Entities)
	}
	if status.Bots != 1 {
		t.Fatalf("status reports %d bots, want 1", status.Bots)
	}
}
