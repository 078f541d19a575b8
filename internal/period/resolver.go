package period

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"

	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/solana"
)

// Layout locates the period fields inside the strategy account.
type Layout struct {
	AccountName             string // Anchor account type name
	DepositPeriodEndsOffset int
	LockPeriodEndsOffset    int
}

// Discriminator returns the 8-byte Anchor account discriminator.
func (l Layout) Discriminator() [8]byte {
	sum := sha256.Sum256([]byte("account:" + l.AccountName))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// Options configures a Resolver.
type Options struct {
	VaultProgram    string
	StrategyProgram string
	Layout          Layout
	Logger          *log.Logger
}

// Resolver reads period boundaries from the first strategy of a vault.
type Resolver struct {
	rpc    solana.RPCClient
	opts   Options
	disc   [8]byte
	logger *log.Logger
}

// NewResolver creates a period resolver.
func NewResolver(rpc solana.RPCClient, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		rpc:    rpc,
		opts:   opts,
		disc:   opts.Layout.Discriminator(),
		logger: logger,
	}
}

// VaultAddress returns the vault account for index.
func (r *Resolver) VaultAddress(index uint64) (string, error) {
	return solana.VaultAddress(r.opts.VaultProgram, index)
}

// StrategyAddress returns the account of strategy strategyIndex of vault index.
func (r *Resolver) StrategyAddress(index uint64, strategyIndex uint8) (string, error) {
	vault, err := r.VaultAddress(index)
	if err != nil {
		return "", fmt.Errorf("vault address: %w", err)
	}
	return solana.StrategyAddress(r.opts.StrategyProgram, vault, strategyIndex)
}

// Periods reads the deposit and lock period ends of vault index. A missing
// or unrecognized account yields empty Periods and no error; RPC failures
// are returned.
func (r *Resolver) Periods(ctx context.Context, index uint64) (domain.Periods, error) {
	strategy, err := r.StrategyAddress(index, 0)
	if err != nil {
		return domain.Periods{}, err
	}

	info, err := r.rpc.GetAccountInfo(ctx, strategy)
	if err != nil {
		return domain.Periods{}, fmt.Errorf("strategy account %s: %w", strategy, err)
	}
	if info == nil {
		r.logger.Printf("strategy account %s not found", strategy)
		return domain.Periods{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return domain.Periods{}, fmt.Errorf("decode strategy account: %w", err)
	}
	p, ok := r.decode(data)
	if !ok {
		r.logger.Printf("strategy account %s: unexpected layout (%d bytes)", strategy, len(data))
	}
	return p, nil
}

func (r *Resolver) decode(data []byte) (domain.Periods, bool) {
	l := r.opts.Layout
	end := max(l.DepositPeriodEndsOffset, l.LockPeriodEndsOffset) + 8
	if len(data) < end || len(data) < 8 {
		return domain.Periods{}, false
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	if disc != r.disc {
		return domain.Periods{}, false
	}

	deposit := int64(binary.LittleEndian.Uint64(data[l.DepositPeriodEndsOffset:]))
	lock := int64(binary.LittleEndian.Uint64(data[l.LockPeriodEndsOffset:]))
	return domain.Periods{DepositPeriodEnds: &deposit, LockPeriodEnds: &lock}, true
}
