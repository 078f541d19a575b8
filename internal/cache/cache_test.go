package cache

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-position-lab/internal/config"
	"vault-position-lab/internal/domain"
)

func setupCache(t *testing.T, ttl time.Duration) (*ViewCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewViewCache(client, ttl), mr
}

func sampleView(slot int64) *domain.PositionView {
	return &domain.PositionView{
		Account:        "Wallet111",
		VaultID:        "Ahg1opVcGX",
		BalanceToken:   "2000",
		BalanceEarned:  "0.0005",
		PerformanceFee: decimal.RequireFromString("10"),
		Deposits:       []domain.TransactionItem{{ID: "d1", TokenAmount: decimal.NewFromInt(1500)}},
		Slot:           slot,
		Generation:     3,
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "position:Wallet111:ahg1opvcgx:42", Key("Wallet111", "Ahg1opVcGX", 42))
}

func TestViewCache_AccountCaseIsSignificant(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleView(100)))

	got, err := c.Get(ctx, "Wallet111", "ahg1opvcgx", 100)
	require.NoError(t, err)
	assert.Equal(t, "Wallet111", got.Account)

	_, err = c.Get(ctx, "wallet111", "Ahg1opVcGX", 100)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestViewCache_PutGet(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleView(100)))

	got, err := c.Get(ctx, "Wallet111", "Ahg1opVcGX", 100)
	require.NoError(t, err)
	assert.Equal(t, "0.0005", got.BalanceEarned)
	assert.Equal(t, "10", got.PerformanceFee.String())
	require.Len(t, got.Deposits, 1)
	assert.Equal(t, "1500", got.Deposits[0].TokenAmount.String())
}

func TestViewCache_NewSlotMisses(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleView(100)))

	_, err := c.Get(ctx, "Wallet111", "Ahg1opVcGX", 101)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestViewCache_Expires(t *testing.T) {
	c, mr := setupCache(t, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleView(100)))
	mr.FastForward(11 * time.Second)

	_, err := c.Get(ctx, "Wallet111", "Ahg1opVcGX", 100)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestViewCache_SkipsLoadingViews(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	v := sampleView(100)
	v.Loading.Balance = true
	require.NoError(t, c.Put(ctx, v))
	assert.Empty(t, mr.Keys())
}

func TestViewCache_WarmHook(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	hook := c.WarmHook(time.Second, log.New(io.Discard, "", 0))

	hook(sampleView(100))
	got, err := c.Get(context.Background(), "Wallet111", "Ahg1opVcGX", 100)
	require.NoError(t, err)
	assert.Equal(t, "0.0005", got.BalanceEarned)

	loading := sampleView(101)
	loading.Loading.Position = true
	hook(loading)
	_, err = c.Get(context.Background(), "Wallet111", "Ahg1opVcGX", 101)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestViewCache_Invalidate(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleView(100)))
	require.NoError(t, c.Put(ctx, sampleView(101)))
	other := sampleView(100)
	other.VaultID = "other"
	require.NoError(t, c.Put(ctx, other))

	require.NoError(t, c.Invalidate(ctx, "Wallet111", "ahg1opvcgx"))
	assert.Equal(t, []string{"position:Wallet111:other:100"}, mr.Keys())
}

func TestViewCache_CorruptEntry(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	require.NoError(t, mr.Set(Key("a", "b", 1), "{not json"))

	_, err := c.Get(context.Background(), "a", "b", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
