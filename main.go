// main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/carelink/carelink/internal/api"
	"github.com/carelink/carelink/internal/call"
	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/gateway"
	"github.com/carelink/carelink/internal/presence"
	"github.com/carelink/carelink/internal/session"
	"github.com/carelink/carelink/internal/socket"
)

func main() {
	envFile := flag.String("env", ".env", "path to env file (missing file is not an error)")
	addr := flag.String("addr", "", "override gateway listen address")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("MAIN: load env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("MAIN: config: %v", err)
	}
	if *addr != "" {
		cfg.GatewayAddr = *addr
	}

	sessions := session.NewStore()
	client := api.NewClient(cfg.ServerAPI, sessions)
	sock := socket.New(cfg, sessions)
	calls := call.New(sock, sessions, cfg.STUNURL)
	pres := presence.New(client, sessions, sock)

	gw := &gateway.Gateway{
		API:      client,
		Sessions: sessions,
		Socket:   sock,
		Calls:    calls,
		Presence: pres,
		Dev:      cfg.DevMode,
	}

	srv := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("MAIN: gateway listening on http://%s", cfg.GatewayAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("MAIN: received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("MAIN: server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("MAIN: shutdown: %v", err)
	}

	// Tear down in dependency order: stop accepting work, end any live
	// call, then drop the socket.
	pres.Close()
	calls.Close()
	sock.Close()
}
