// Package main prints the position view of an account in a vault, or the
// account-wide totals, as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"vault-position-lab/internal/balance"
	"vault-position-lab/internal/config"
	"vault-position-lab/internal/indexer"
	"vault-position-lab/internal/period"
	"vault-position-lab/internal/position"
	"vault-position-lab/internal/preview"
	"vault-position-lab/internal/solana"
)

func main() {
	account := flag.String("account", "", "Account (wallet) address")
	vault := flag.String("vault", "", "Vault identifier")
	totals := flag.Bool("totals", false, "Print account totals across all registered vaults")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall timeout")
	flag.Parse()

	logger := log.New(os.Stderr, "[position] ", log.LstdFlags|log.Lshortfile)

	if *totals && *account == "" {
		logger.Fatal("--account is required with --totals")
	}
	if !*totals && *vault == "" {
		logger.Fatal("--vault is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rpc := solana.NewHTTPClient(cfg.Endpoints.RPC, solana.WithRateLimit(cfg.RateLimit.RPC, 1))
	aggregator := position.NewAggregator(position.Options{
		Network:  cfg.Network,
		Registry: cfg.Registry,
		Indexer: indexer.NewClient(cfg.Endpoints.Subgraph,
			indexer.WithAPIKey(cfg.Indexer.APIKey),
			indexer.WithPageSize(cfg.Indexer.PageSize),
			indexer.WithRateLimit(cfg.RateLimit.Indexer, 1),
		),
		Balances: balance.NewReader(rpc, balance.Options{Logger: logger}),
		Preview:  preview.NewCalculator(cfg.Registry.PreviewDivisors()),
		Periods: period.NewResolver(rpc, period.Options{
			VaultProgram:    cfg.Endpoints.VaultProgram,
			StrategyProgram: cfg.Endpoints.StrategyProgram,
			Layout: period.Layout{
				AccountName:             cfg.Registry.StrategyLayout.Account,
				DepositPeriodEndsOffset: cfg.Registry.StrategyLayout.DepositPeriodEndsOffset,
				LockPeriodEndsOffset:    cfg.Registry.StrategyLayout.LockPeriodEndsOffset,
			},
			Logger: logger,
		}),
		Logger: logger,
	})

	var out interface{}
	if *totals {
		positions, err := aggregator.Positions(ctx, *account)
		if err != nil {
			logger.Fatalf("Failed to load positions: %v", err)
		}
		t, err := aggregator.Totals(ctx, *account, positions)
		if err != nil {
			logger.Fatalf("Failed to compute totals: %v", err)
		}
		out = t
	} else {
		slot, err := rpc.GetSlot(ctx)
		if err != nil {
			logger.Printf("Failed to read slot: %v", err)
		}
		v, err := aggregator.Aggregate(ctx, *account, *vault)
		if err != nil {
			logger.Fatalf("Failed to aggregate: %v", err)
		}
		v.Slot = slot
		if len(v.Degraded) > 0 {
			logger.Printf("Degraded sections: %v", v.Degraded)
		}
		out = v
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalf("Failed to encode output: %v", err)
	}
}
