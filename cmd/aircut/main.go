package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/furkanksl/aircut/internal/app"
	"github.com/furkanksl/aircut/internal/config"
	"github.com/furkanksl/aircut/internal/gesture"
	"github.com/furkanksl/aircut/internal/server"
	"github.com/furkanksl/aircut/internal/store"
	"github.com/furkanksl/aircut/internal/stream"
	"github.com/furkanksl/aircut/internal/tray"
)

func main() {
	fmt.Println("AirCut - Air Gesture Recognition")

	cfg := config.Load()

	dataDir := cfg.DataDir
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		dataDir = filepath.Join(homeDir, ".aircut")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "aircut.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	application := app.New(app.Config{
		Settings: cfg,
		Store:    st,
	})
	if err := application.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	defer application.Stop()

	srv := server.New(server.Config{
		Addr:  cfg.HTTPAddr,
		Store: st,
		App:   application,
	})
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Control server failed: %v", err)
		}
	}()

	// A backend that is not up yet is not fatal; the tray offers Reconnect.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := application.Connect(ctx); err != nil {
		log.Printf("Backend connect failed (attempt %d): %v", application.ReconnectAttempts(), err)
	}
	cancel()

	t := tray.New()
	t.OnTracking(func(enabled bool) {
		if err := application.SetTracking(enabled); err != nil {
			log.Printf("Failed to toggle tracking: %v", err)
		}
	})
	t.OnReconnect(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Connect(ctx); err != nil {
			log.Printf("Reconnect failed (attempt %d): %v", application.ReconnectAttempts(), err)
		}
	})
	t.OnQuit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	})

	application.OnRecognized(func(r gesture.MatchResult) {
		t.SetLastGesture(r.TemplateName)
	})
	application.OnSessionState(func(s stream.SessionState) {
		t.SetBackendState(s.String())
	})

	log.Printf("Control API on %s, backend %s", cfg.HTTPAddr, cfg.BackendURL)
	t.Run()
}
