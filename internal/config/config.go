package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/carelink/carelink/internal/util"
)

// Config holds the application configuration, loaded from environment
// variables. SERVER_API and SOCKET_URL point at the platform backend and
// signaling service; everything else has a sensible default.
type Config struct {
	ServerAPI   string // base URL of the REST API
	SocketURL   string // ws:// or wss:// URL of the signaling service
	GatewayAddr string // local bind address for the UI gateway
	STUNURL     string

	// Reconnect policy for the realtime connection. Beyond MaxAttempts the
	// connection is reported down and a fresh session is required to retry.
	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
	ReconnectMaxAttempts uint64

	DevMode bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		GatewayAddr:          "127.0.0.1:7860",
		STUNURL:              "stun:stun.l.google.com:19302",
		ReconnectBase:        500 * time.Millisecond,
		ReconnectCap:         30 * time.Second,
		ReconnectMaxAttempts: 8,
	}

	serverAPI := os.Getenv("SERVER_API")
	if serverAPI == "" {
		return nil, fmt.Errorf("SERVER_API environment variable is required")
	}
	cfg.ServerAPI = util.NormalizeBaseURL(serverAPI)

	socketURL := os.Getenv("SOCKET_URL")
	if socketURL == "" {
		return nil, fmt.Errorf("SOCKET_URL environment variable is required")
	}
	cfg.SocketURL = socketURL

	if addr := os.Getenv("GATEWAY_ADDR"); addr != "" {
		cfg.GatewayAddr = addr
	}
	if stun := os.Getenv("STUN_URL"); stun != "" {
		cfg.STUNURL = stun
	}

	if v := os.Getenv("RECONNECT_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("RECONNECT_MAX_ATTEMPTS must be a positive integer, got %q", v)
		}
		cfg.ReconnectMaxAttempts = n
	}
	if v := os.Getenv("RECONNECT_CAP_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("RECONNECT_CAP_SECONDS must be a positive integer, got %q", v)
		}
		cfg.ReconnectCap = time.Duration(n) * time.Second
	}

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	return cfg, nil
}
