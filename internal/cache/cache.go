// Package cache stores computed position views in Redis. Keys include the
// slot the view was computed for, so a new block moves readers to a new key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"vault-position-lab/internal/config"
	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/observability"
)

// ErrMiss is returned when no view is cached under the key.
var ErrMiss = errors.New("cache miss")

// DefaultTTL applies when the configured TTL is zero.
const DefaultTTL = 30 * time.Second

// ViewCache wraps the Redis client.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewViewCache creates a cache on an existing client.
func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ViewCache{client: client, ttl: ttl}
}

// Key returns the cache key of a view. Vault IDs are matched without case
// like the registry does; accounts are base58 and keep theirs.
func Key(account, vaultID string, slot int64) string {
	return fmt.Sprintf("position:%s:%s:%d", account, strings.ToLower(vaultID), slot)
}

// Get returns the view cached for the slot, or ErrMiss.
func (c *ViewCache) Get(ctx context.Context, account, vaultID string, slot int64) (*domain.PositionView, error) {
	raw, err := c.client.Get(ctx, Key(account, vaultID, slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordCacheLookup("miss")
		return nil, ErrMiss
	}
	if err != nil {
		observability.RecordCacheLookup("error")
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var v domain.PositionView
	if err := json.Unmarshal(raw, &v); err != nil {
		observability.RecordCacheLookup("error")
		return nil, fmt.Errorf("decode cached view: %w", err)
	}
	observability.RecordCacheLookup("hit")
	return &v, nil
}

// Put stores v under its account, vault and slot. Views still loading are
// not cached.
func (c *ViewCache) Put(ctx context.Context, v *domain.PositionView) error {
	if v == nil || v.Loading.Any() {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	if err := c.client.Set(ctx, Key(v.Account, v.VaultID, v.Slot), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// WarmHook returns a session hook that caches every committed view, so reads
// of a watched pair hit Redis for the slot the session last computed.
func (c *ViewCache) WarmHook(timeout time.Duration, logger *log.Logger) func(*domain.PositionView) {
	if logger == nil {
		logger = log.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(v *domain.PositionView) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := c.Put(ctx, v); err != nil {
			logger.Printf("warm %s/%s@%d: %v", v.Account, v.VaultID, v.Slot, err)
		}
	}
}

// Invalidate drops every cached slot of the pair.
func (c *ViewCache) Invalidate(ctx context.Context, account, vaultID string) error {
	pattern := fmt.Sprintf("position:%s:%s:*", account, strings.ToLower(vaultID))
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ping checks if Redis is reachable.
func (c *ViewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *ViewCache) Close() error {
	return c.client.Close()
}
