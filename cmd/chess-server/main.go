// Package main runs the arcade chess API server and its db maintenance commands.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcadechess/cmd/chess-server/cli"
	"arcadechess/internal/server/config"
	"arcadechess/internal/server/http"
	"arcadechess/internal/server/processor"
	"arcadechess/internal/server/proposer"
	"arcadechess/internal/server/service"
	"arcadechess/internal/server/storage"
)

const (
	gracefulShutdownTimeout = time.Second * 5
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:], os.Stdout); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		os.Exit(0)
	}

	cfg, err := config.Parse("chess-server", os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.PID.Path != "" {
		cleanup, err := managePIDFile(cfg.PID.Path, cfg.PID.Lock)
		if err != nil {
			log.Fatalf("Failed to manage PID file: %v", err)
		}
		defer cleanup()
		log.Printf("PID file created at: %s (lock: %v)", cfg.PID.Path, cfg.PID.Lock)
	}

	// 1. Storage (optional)
	var store *storage.Store
	if cfg.Storage.Path != "" {
		log.Printf("Initializing persistent storage at: %s", cfg.Storage.Path)
		store, err = storage.NewStore(cfg.Storage.Path, cfg.Dev)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		if err := store.InitDB(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
	} else {
		log.Printf("Persistent storage disabled (use -storage-path to enable)")
	}

	jwtSecret, err := newJWTSecret(cfg.Dev)
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}

	// 2. Service
	svc := service.New(store, jwtSecret)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go svc.RunCleanupJob(cleanupCtx, service.CleanupJobInterval)

	// 3. Proposers and processor
	proposers, err := buildProposers(cfg)
	if err != nil {
		log.Fatalf("Failed to configure proposers: %v", err)
	}
	proc := processor.New(svc, processor.Options{
		Proposers:       proposers,
		DefaultProposer: cfg.Proposer.Default,
		Workers:         cfg.Queue.Workers,
		ThinkTime:       cfg.ThinkTime(),
		Fallback:        proposer.NewRandom(cfg.Proposer.Seed),
	})

	// 4. HTTP
	app := http.NewFiberApp(proc, svc, cfg.Dev)
	apiAddr := cfg.APIAddr()

	go func() {
		log.Printf("Chess API Server listening on: http://%s", apiAddr)
		log.Printf("Default proposer: %s (remote available: %v)", cfg.Proposer.Default, cfg.RemoteEnabled())
		if cfg.Storage.Path != "" {
			log.Printf("Storage: Enabled (%s)", cfg.Storage.Path)
		} else {
			log.Printf("Storage: Disabled (auth features unavailable)")
		}
		log.Printf("API Endpoints: http://%s/api/v1/games", apiAddr)
		log.Printf("Health: http://%s/health", apiAddr)

		if err := app.Listen(apiAddr); err != nil {
			log.Printf("API server listen error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Pending proposals finish before the service stops accepting writes
	if err := proc.Close(); err != nil {
		log.Printf("Processor close error: %v", err)
	}

	cleanupCancel()

	// Service shutdown also flushes and closes the store
	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		log.Printf("Service shutdown error: %v", err)
	}

	log.Println("Server exited")
}

// newJWTSecret is fixed in dev mode so tokens survive restarts
func newJWTSecret(dev bool) ([]byte, error) {
	if dev {
		log.Printf("Using fixed JWT secret (dev mode)")
		return []byte("dev-secret-minimum-32-characters-long"), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	log.Printf("JWT secret generated (sessions valid until restart)")
	return secret, nil
}

func buildProposers(cfg *config.Config) (map[string]proposer.Proposer, error) {
	random, err := proposer.New(proposer.Config{Kind: proposer.KindRandom, Seed: cfg.Proposer.Seed})
	if err != nil {
		return nil, err
	}
	proposers := map[string]proposer.Proposer{proposer.KindRandom: random}

	if cfg.RemoteEnabled() {
		remote, err := proposer.New(proposer.Config{
			Kind:     proposer.KindRemote,
			Endpoint: cfg.Proposer.Endpoint,
			Model:    cfg.Proposer.Model,
			APIKey:   cfg.APIKey(),
			Timeout:  cfg.ProposerTimeout(),
		})
		if err != nil {
			return nil, err
		}
		proposers[proposer.KindRemote] = remote
	}
	return proposers, nil
}
