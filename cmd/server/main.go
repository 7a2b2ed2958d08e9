package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lhermoso/grid-vault/internal/api"
	"github.com/lhermoso/grid-vault/internal/config"
	"github.com/lhermoso/grid-vault/internal/db"
	"github.com/lhermoso/grid-vault/internal/engine"
	"github.com/lhermoso/grid-vault/internal/monitor"
	"github.com/lhermoso/grid-vault/internal/notifications"
	"github.com/lhermoso/grid-vault/internal/repository"
	"github.com/lhermoso/grid-vault/internal/stream"
	"github.com/lhermoso/grid-vault/internal/vault"
)

const banner = `
╔══════════════════════════════════════╗
║        Grid Vault Ledger v0.3        ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	if err := db.Migrate(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Migration failed: %v\n", err)
		os.Exit(1)
	}

	// Repos
	vaultRepo := repository.NewVaultRepo(pool)
	eventRepo := repository.NewEventRepo(pool)

	// Notifications and live stream
	notify := notifications.NewSender(cfg.WebhookURL, cfg.ServiceName)
	hub := stream.NewHub()

	// Accounting engine
	eng := engine.NewEngine(vaultRepo, notify, hub)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap the protocol from env when configured and not yet on record.
	if cfg.AutoInitialize {
		_, err := eng.Config(ctx)
		switch {
		case errors.Is(err, vault.ErrNotInitialized):
			if _, err := eng.Initialize(ctx, cfg.AdminIdentity, cfg.OperatorIdentity,
				cfg.FeeRecipientIdentity, uint16(cfg.PerformanceFeeBps)); err != nil && !errors.Is(err, vault.ErrAlreadyInitialized) {
				fmt.Fprintf(os.Stderr, "[INIT] Initialize failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("[INIT] Protocol initialized from environment")
		case err != nil:
			fmt.Fprintf(os.Stderr, "[INIT] Config read failed: %v\n", err)
			os.Exit(1)
		default:
			fmt.Println("[INIT] Protocol already initialized, skipping bootstrap")
		}
	}

	// 1. API server
	srv := api.NewServer(pool, eng, eventRepo, hub, cfg.APIPort, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Valuation staleness monitor
	staleness := monitor.NewStalenessMonitor(eng, notify)
	if err := staleness.Start(cfg.StalenessCron); err != nil {
		fmt.Fprintf(os.Stderr, "[MONITOR] Start failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	staleness.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
