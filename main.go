package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bryan-buckman/sentio/internal/authoring"
	"github.com/bryan-buckman/sentio/internal/config"
	"github.com/bryan-buckman/sentio/internal/database"
	"github.com/bryan-buckman/sentio/internal/detail"
	"github.com/bryan-buckman/sentio/internal/feed"
	"github.com/bryan-buckman/sentio/internal/gateway"
	"github.com/bryan-buckman/sentio/internal/i18n"
	"github.com/bryan-buckman/sentio/internal/prefs"
	"github.com/bryan-buckman/sentio/internal/push"
	"github.com/bryan-buckman/sentio/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if isFilePath(cfg.DatabaseURL) {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabaseURL), 0o700); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	store, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open preference store: %v", err)
	}
	defer store.Close()
	log.Printf("Preferences stored in %s", store.DatabaseType())

	p := prefs.New(store)
	device, err := p.DeviceID()
	if err != nil {
		log.Fatalf("Failed to load device id: %v", err)
	}
	log.Printf("Device id %s", device)

	gw := gateway.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout})
	log.Printf("Using API %s", gw.BaseURL())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		if _, err := push.Register(ctx, cfg.PushSource(), gw, device); err != nil {
			log.Printf("Push registration failed: %v", err)
		}
	}()

	ctrl, err := feed.NewController(gw, p, device, nil, nil)
	if err != nil {
		log.Fatalf("Failed to start feed: %v", err)
	}

	bundle, err := i18n.NewBundle()
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	srv, err := server.New(server.Options{
		Prefs:          p,
		Feed:           ctrl,
		Poller:         feed.NewPoller(ctrl, cfg.RefreshInterval),
		Detail:         detail.NewFlow(gw, device),
		Composer:       authoring.NewComposer(gw),
		Builder:        authoring.NewBuilder(gw),
		Bundle:         bundle,
		AllowedOrigins: cfg.AllowedOrigins,
		ContactEmail:   cfg.ContactEmail,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := srv.Start(cfg.Addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	<-stopped
}

func isFilePath(dsn string) bool {
	return !strings.Contains(dsn, "://")
}
