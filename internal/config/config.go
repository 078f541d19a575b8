// Package config loads service configuration from the environment and an
// optional .env file, and selects network endpoints from the APP_ENV flag.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"vault-position-lab/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Env       string
	Network   domain.Network
	Endpoints Endpoints
	Registry  *Registry

	Server    ServerConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Sync      SyncConfig
	RateLimit RateLimitConfig
	Indexer   IndexerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    float64 // requests per second across all clients, 0 disables
}

// StorageConfig selects and configures persistence.
type StorageConfig struct {
	UseMemory     bool
	PostgresDSN   string
	ClickhouseDSN string
}

// RedisConfig holds Redis cache configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// SyncConfig controls the new-block tracker.
type SyncConfig struct {
	PollInterval time.Duration
	UseWebsocket bool
	FollowSlots  bool
}

// RateLimitConfig caps outbound request rates (requests per second, 0 disables).
type RateLimitConfig struct {
	RPC     float64
	Indexer float64
}

// IndexerConfig holds subgraph client settings.
type IndexerConfig struct {
	APIKey   string
	PageSize int
}

// Load loads configuration from .env and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env is optional; the environment may be set directly.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	env := getEnv("APP_ENV", "dev")
	network := domain.NetworkForEnv(env)

	endpoints, err := EndpointsFor(network)
	if err != nil {
		return nil, err
	}
	if v := getEnv("SOLANA_RPC_ENDPOINT", ""); v != "" {
		endpoints.RPC = v
		endpoints.WS = wsFromHTTP(v)
	}
	if v := getEnv("SOLANA_WS_ENDPOINT", ""); v != "" {
		endpoints.WS = v
	}
	if v := getEnv("SUBGRAPH_URL", ""); v != "" {
		endpoints.Subgraph = v
	}

	registry, err := LoadRegistry(getEnv("VAULT_REGISTRY_FILE", ""))
	if err != nil {
		return nil, err
	}
	if step := getEnvAsInt("TRADE_FI_VAULT_REPORT_STEP", 0); step > 0 {
		registry.ReportStepHours = step
	}

	cfg := &Config{
		Env:       env,
		Network:   network,
		Endpoints: endpoints,
		Registry:  registry,
		Server: ServerConfig{
			Addr:         getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			RateLimit:    getEnvAsFloat("HTTP_RATE_LIMIT", 50),
		},
		Storage: StorageConfig{
			UseMemory:     getEnvAsBool("USE_MEMORY", false),
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("CACHE_TTL", 30*time.Second),
		},
		Sync: SyncConfig{
			PollInterval: getEnvAsDuration("SLOT_POLL_INTERVAL", 15*time.Second),
			UseWebsocket: getEnvAsBool("SLOT_USE_WEBSOCKET", true),
			FollowSlots:  getEnvAsBool("SLOT_FOLLOW_SLOTS", false),
		},
		RateLimit: RateLimitConfig{
			RPC:     getEnvAsFloat("RPC_RATE_LIMIT", 0),
			Indexer: getEnvAsFloat("INDEXER_RATE_LIMIT", 0),
		},
		Indexer: IndexerConfig{
			APIKey:   getEnv("INDEXER_API_KEY", ""),
			PageSize: getEnvAsInt("INDEXER_PAGE_SIZE", 1000),
		},
	}

	return cfg, nil
}

// Validate reports configuration problems that prevent startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Endpoints.RPC == "" {
		errs = append(errs, errors.New("rpc endpoint is empty"))
	}
	if c.Endpoints.Subgraph == "" {
		errs = append(errs, errors.New("subgraph url is empty"))
	}
	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "") {
		errs = append(errs, errors.New("POSTGRES_DSN and CLICKHOUSE_DSN are required unless USE_MEMORY=true"))
	}
	if c.Sync.PollInterval <= 0 {
		errs = append(errs, errors.New("SLOT_POLL_INTERVAL must be positive"))
	}
	if c.Indexer.PageSize <= 0 {
		errs = append(errs, errors.New("INDEXER_PAGE_SIZE must be positive"))
	}
	if c.Registry == nil {
		errs = append(errs, errors.New("vault registry is not loaded"))
	}
	return errors.Join(errs...)
}

func wsFromHTTP(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
