package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("defaults must load cleanly: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Fatalf("port %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.MulticastPort() != DefaultPort+1 {
		t.Fatalf("multicast port %d, want %d", cfg.MulticastPort(), DefaultPort+1)
	}
	if cfg.UpdateInterval != 30*time.Millisecond {
		t.Fatalf("update interval %v", cfg.UpdateInterval)
	}
	if cfg.TimeoutInterval != 15*time.Second {
		t.Fatalf("timeout interval %v", cfg.TimeoutInterval)
	}
	if cfg.MisbehaviorLimit != 10 {
		t.Fatalf("misbehavior limit %d", cfg.MisbehaviorLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LWAR_PORT", "40000")
	t.Setenv("LWAR_UPDATE_INTERVAL", "50ms")
	t.Setenv("LWAR_BOTS", "3")
	t.Setenv("LWAR_LOG_COMPRESS", "false")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("overrides must load cleanly: %v", err)
	}
	if cfg.Port != 40000 || cfg.UpdateInterval != 50*time.Millisecond || cfg.Bots != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Logging.Compress {
		t.Fatalf("log compression override not applied")
	}
}

func TestLoadCollectsAllProblems(t *testing.T) {
	t.Setenv("LWAR_PORT", "not-a-port")
	t.Setenv("LWAR_TIMEOUT_INTERVAL", "-3s")
	t.Setenv("LWAR_BOTS", "-1")
	_, err := Load()
	if err == nil {
		t.Fatalf("invalid overrides must fail")
	}
	msg := err.Error()
	for _, key := range []string{"LWAR_PORT", "LWAR_TIMEOUT_INTERVAL", "LWAR_BOTS"} {
		if !strings.Contains(msg, key) {
			t.Fatalf("error does not name %s: %s", key, msg)
		}
	}
}
