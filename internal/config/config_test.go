package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vault-position-lab/internal/domain"
)

func TestLoad_DevDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("USE_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network != domain.NetworkDevnet {
		t.Errorf("Network = %v, want devnet", cfg.Network)
	}
	if cfg.Endpoints.RPC != "https://rpc.solana.splyce.finance" {
		t.Errorf("RPC = %q", cfg.Endpoints.RPC)
	}
	if cfg.Endpoints.VaultProgram != "ATdWqQQrwKbwbGv2zmD2nfcXsmTVA62eXWEtundAdwfE" {
		t.Errorf("VaultProgram = %q", cfg.Endpoints.VaultProgram)
	}
	if cfg.Indexer.PageSize != 1000 {
		t.Errorf("PageSize = %d, want 1000", cfg.Indexer.PageSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_ProdSelectsMainnet(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("USE_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Network != domain.NetworkMainnet {
		t.Fatalf("Network = %v, want mainnet", cfg.Network)
	}
	if cfg.Endpoints.StrategyProgram != "FeMChq4ZCFP8UstbyHnVyme3ATa2vtteLNCwms4jLMAj" {
		t.Errorf("StrategyProgram = %q", cfg.Endpoints.StrategyProgram)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("SOLANA_RPC_ENDPOINT", "http://localhost:8899")
	t.Setenv("SLOT_POLL_INTERVAL", "3s")
	t.Setenv("SLOT_FOLLOW_SLOTS", "true")
	t.Setenv("TRADE_FI_VAULT_REPORT_STEP", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoints.WS != "ws://localhost:8899" {
		t.Errorf("WS = %q, want derived ws://localhost:8899", cfg.Endpoints.WS)
	}
	if cfg.Sync.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v", cfg.Sync.PollInterval)
	}
	if !cfg.Sync.FollowSlots {
		t.Error("FollowSlots = false, want true")
	}
	if cfg.Registry.ReportStepHours != 4 {
		t.Errorf("ReportStepHours = %d, want 4", cfg.Registry.ReportStepHours)
	}
}

func TestValidate_RequiresStores(t *testing.T) {
	t.Setenv("USE_MEMORY", "false")
	t.Setenv("POSTGRES_DSN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error without DSNs")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "nope")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "250ms")

	if got := getEnvAsInt("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvAsInt = %d", got)
	}
	if got := getEnvAsInt("TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt fallback = %d", got)
	}
	if got := getEnvAsBool("TEST_BOOL", false); !got {
		t.Error("getEnvAsBool = false")
	}
	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Errorf("getEnvAsDuration = %v", got)
	}
	if got := getEnv("TEST_MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q", got)
	}
}

func TestRegistry_Defaults(t *testing.T) {
	r, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	tests := []struct {
		id    string
		index uint64
		dev   domain.VaultType
		main  domain.VaultType
	}{
		{"11111111", 0, domain.VaultTypeDeFi, domain.VaultTypeDeFi},
		{"ahg1opvcgx", 1, domain.VaultTypeDeFi, domain.VaultTypeDeFi},
		{"LQM2cdzDY3", 2, domain.VaultTypeTradeFi, domain.VaultTypeTradeFi},
		{"W723RTUpoZ", 3, domain.VaultTypeTradeFi, domain.VaultTypeCrossChain},
		{"unknown", 0, domain.VaultTypeDeFi, domain.VaultTypeDeFi},
	}
	for _, tt := range tests {
		if got := r.VaultIndex(tt.id); got != tt.index {
			t.Errorf("VaultIndex(%s) = %d, want %d", tt.id, got, tt.index)
		}
		if got := r.VaultType(domain.NetworkDevnet, tt.id); got != tt.dev {
			t.Errorf("VaultType(devnet, %s) = %s, want %s", tt.id, got, tt.dev)
		}
		if got := r.VaultType(domain.NetworkMainnet, tt.id); got != tt.main {
			t.Errorf("VaultType(mainnet, %s) = %s, want %s", tt.id, got, tt.main)
		}
	}

	divisors := r.PreviewDivisors()
	if len(divisors) != 1 || divisors["W723RTUpoZ"] != 3 {
		t.Errorf("PreviewDivisors = %v", divisors)
	}

	if l := r.TokenLabel("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", false); l.Symbol != "USDC" {
		t.Errorf("USDC label = %+v", l)
	}
	if l := r.TokenLabel("other", false); l.Symbol != "tspUSD" {
		t.Errorf("default token label = %+v", l)
	}
	if l := r.TokenLabel("other", true); l.Symbol != "sstUSD" {
		t.Errorf("default share label = %+v", l)
	}
	if !r.MinimumDeposit.Equal(decimal.RequireFromString("0.0000000001")) {
		t.Errorf("MinimumDeposit = %s", r.MinimumDeposit)
	}
	if r.StrategyLayout.Account != "TradeFintechStrategy" {
		t.Errorf("StrategyLayout.Account = %q", r.StrategyLayout.Account)
	}
}

func TestRegistry_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	doc := []byte(`
vaults:
  - id: fixture
    index: 9
    type:
      devnet: CROSSCHAIN
reportStepHours: 0
`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if r.VaultIndex("FIXTURE") != 9 {
		t.Errorf("VaultIndex = %d", r.VaultIndex("FIXTURE"))
	}
	if r.VaultType(domain.NetworkDevnet, "fixture") != domain.VaultTypeCrossChain {
		t.Error("expected CROSSCHAIN")
	}
	if r.ReportStepHours != 1 {
		t.Errorf("ReportStepHours = %d, want default 1", r.ReportStepHours)
	}
}

func TestRegistry_Invalid(t *testing.T) {
	if _, err := ParseRegistry([]byte("vaults:\n  - id: a\n    type:\n      devnet: BOGUS\n")); err == nil {
		t.Error("expected error for invalid vault type")
	}
	if _, err := ParseRegistry([]byte("vaults:\n  - id: a\n  - id: A\n")); err == nil {
		t.Error("expected error for duplicate id")
	}
}
