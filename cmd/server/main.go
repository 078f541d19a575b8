// Package main runs the position service: the new-block tracker, watched
// position sessions, snapshot recording and the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vault-position-lab/internal/api"
	"vault-position-lab/internal/balance"
	"vault-position-lab/internal/cache"
	"vault-position-lab/internal/chainsync"
	"vault-position-lab/internal/config"
	"vault-position-lab/internal/deposit"
	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/indexer"
	"vault-position-lab/internal/period"
	"vault-position-lab/internal/position"
	"vault-position-lab/internal/preview"
	"vault-position-lab/internal/solana"
	"vault-position-lab/internal/storage"
	chstore "vault-position-lab/internal/storage/clickhouse"
	"vault-position-lab/internal/storage/memory"
	"vault-position-lab/internal/storage/migrations"
	pgstore "vault-position-lab/internal/storage/postgres"
)

// stores holds the persistence backends.
type stores struct {
	snapshots storage.PositionSnapshotStore
	samples   storage.ReportSampleStore
}

func newLogger(component string) *log.Logger {
	return log.New(os.Stdout, "["+component+"] ", log.LstdFlags|log.Lshortfile)
}

func main() {
	logger := newLogger("server")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}
	logger.Printf("Network: %s, RPC: %s, subgraph: %s", cfg.Network, cfg.Endpoints.RPC, cfg.Endpoints.Subgraph)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	var viewCache api.ViewCache
	hooks := []func(*domain.PositionView){}
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		vc := cache.NewViewCache(client, cfg.Redis.TTL)
		defer vc.Close()
		viewCache = vc
		hooks = append(hooks, vc.WarmHook(5*time.Second, newLogger("cache")))
	}

	rpc := solana.NewHTTPClient(cfg.Endpoints.RPC, solana.WithRateLimit(cfg.RateLimit.RPC, 1))
	idx := indexer.NewClient(cfg.Endpoints.Subgraph,
		indexer.WithAPIKey(cfg.Indexer.APIKey),
		indexer.WithPageSize(cfg.Indexer.PageSize),
		indexer.WithRateLimit(cfg.RateLimit.Indexer, 1),
	)

	resolver := period.NewResolver(rpc, period.Options{
		VaultProgram:    cfg.Endpoints.VaultProgram,
		StrategyProgram: cfg.Endpoints.StrategyProgram,
		Layout: period.Layout{
			AccountName:             cfg.Registry.StrategyLayout.Account,
			DepositPeriodEndsOffset: cfg.Registry.StrategyLayout.DepositPeriodEndsOffset,
			LockPeriodEndsOffset:    cfg.Registry.StrategyLayout.LockPeriodEndsOffset,
		},
		Logger: newLogger("period"),
	})
	calc := preview.NewCalculator(cfg.Registry.PreviewDivisors())

	aggregator := position.NewAggregator(position.Options{
		Network:  cfg.Network,
		Registry: cfg.Registry,
		Indexer:  idx,
		Balances: balance.NewReader(rpc, balance.Options{Logger: newLogger("balance")}),
		Preview:  calc,
		Periods:  resolver,
		Logger:   newLogger("aggregator"),
	})

	trackerOpts := chainsync.Options{
		PollInterval: cfg.Sync.PollInterval,
		Programs:     []string{cfg.Endpoints.VaultProgram, cfg.Endpoints.StrategyProgram},
		Logger:       newLogger("chainsync"),
	}
	if cfg.Sync.UseWebsocket && cfg.Endpoints.WS != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = newLogger("ws")
		ws, err := solana.NewWSClient(ctx, cfg.Endpoints.WS, &wsCfg)
		if err != nil {
			// Polling still advances the signal.
			logger.Printf("WebSocket unavailable, polling only: %v", err)
		} else {
			defer ws.Close()
			trackerOpts.WS = ws
			trackerOpts.FollowSlots = cfg.Sync.FollowSlots
		}
	}
	tracker := chainsync.NewTracker(rpc, chainsync.NewSignal(), trackerOpts)

	recorder := position.NewRecorder(position.RecorderOptions{
		Snapshots: st.snapshots,
		Reports:   st.samples,
		Logger:    newLogger("recorder"),
	})
	manager := position.NewManager(ctx, aggregator, position.ManagerOptions{
		Signal: tracker.Signal(),
		Hooks:  append([]func(*domain.PositionView){recorder.Hook}, hooks...),
		Logger: newLogger("session"),
	})
	defer manager.Close()

	server := api.NewServer(api.Options{
		Config:     cfg.Server,
		Registry:   cfg.Registry,
		Aggregator: aggregator,
		Periods:    resolver,
		Watcher:    manager,
		Confirmer:  tracker,
		Cache:      viewCache,
		Snapshots:  st.snapshots,
		Form: deposit.NewForm(deposit.Options{
			MinimumDeposit:     cfg.Registry.MinimumDeposit,
			MaxPersonalDeposit: cfg.Registry.MaxPersonalDeposit,
			Preview:            calc,
		}),
		Signal: tracker.Signal(),
		Logger: newLogger("api"),
	})

	// Channel to signal completion
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	trackerDone := make(chan error, 1)
	go func() {
		trackerDone <- tracker.Run(ctx)
	}()

	httpErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-httpErr:
		logger.Printf("HTTP server error: %v", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
	if err := <-trackerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Tracker error: %v", err)
	}
	close(done)

	logger.Println("Shutdown complete")
}

// createStores connects and migrates the configured backends.
func createStores(ctx context.Context, cfg config.StorageConfig, logger *log.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		logger.Println("Using in-memory storage")
		return &stores{
			snapshots: memory.NewPositionSnapshotStore(),
			samples:   memory.NewReportSampleStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}
	logger.Printf("PostgreSQL migrations applied: %v", applied)

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return &stores{
		snapshots: pgstore.NewPositionSnapshotStore(pool),
		samples:   chstore.NewReportSampleStore(chConn),
	}, cleanup, nil
}
