package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SERVER_API", "api.example.org/api/v1")
	t.Setenv("SOCKET_URL", "wss://socket.example.org")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerAPI != "https://api.example.org/api/v1" {
		t.Fatalf("ServerAPI = %q, want scheme added", cfg.ServerAPI)
	}
	if cfg.GatewayAddr != "127.0.0.1:7860" {
		t.Fatalf("GatewayAddr = %q", cfg.GatewayAddr)
	}
	if cfg.ReconnectMaxAttempts != 8 || cfg.ReconnectCap != 30*time.Second {
		t.Fatalf("reconnect policy = %d attempts, cap %s", cfg.ReconnectMaxAttempts, cfg.ReconnectCap)
	}
}

func TestLoadMissingServerAPI(t *testing.T) {
	t.Setenv("SERVER_API", "")
	t.Setenv("SOCKET_URL", "wss://socket.example.org")
	if _, err := Load(); err == nil {
		t.Fatal("missing SERVER_API accepted")
	}
}

func TestLoadMissingSocketURL(t *testing.T) {
	t.Setenv("SERVER_API", "https://api.example.org")
	t.Setenv("SOCKET_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("missing SOCKET_URL accepted")
	}
}

func TestLoadReconnectOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "3")
	t.Setenv("RECONNECT_CAP_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReconnectMaxAttempts != 3 || cfg.ReconnectCap != 5*time.Second {
		t.Fatalf("overrides not applied: %d, %s", cfg.ReconnectMaxAttempts, cfg.ReconnectCap)
	}
}

func TestLoadRejectsBadReconnectValues(t *testing.T) {
	setRequired(t)
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("zero attempt budget accepted")
	}
}
