// Package balance reads SPL token and native balances over Solana RPC.
package balance

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/shopspring/decimal"

	"vault-position-lab/internal/observability"
	"vault-position-lab/internal/solana"
)

// Status is the outcome of a balance read.
type Status int

const (
	// StatusNotFound means the owner holds no account for the mint.
	StatusNotFound Status = iota
	StatusFound
	StatusFailed
)

// String returns the metric label of the status.
func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is a token balance read. Amount is in raw units and is only
// meaningful when Status is StatusFound.
type Result struct {
	Status Status
	Amount decimal.Decimal
	Err    error
}

// Found returns a successful result.
func Found(amount decimal.Decimal) Result {
	return Result{Status: StatusFound, Amount: amount}
}

// NotFound returns a result for a missing token account.
func NotFound() Result {
	return Result{Status: StatusNotFound, Amount: decimal.Zero}
}

// Failed returns a result for a read that could not complete.
func Failed(err error) Result {
	return Result{Status: StatusFailed, Amount: decimal.Zero, Err: err}
}

// OK reports whether the read completed, found or not.
func (r Result) OK() bool {
	return r.Status != StatusFailed
}

// AmountOrZero returns the amount, or zero for not-found and failed reads.
func (r Result) AmountOrZero() decimal.Decimal {
	if r.Status == StatusFound {
		return r.Amount
	}
	return decimal.Zero
}

var lamportsPerSOL = decimal.New(1, 9)

// Options configures a Reader.
type Options struct {
	Logger *log.Logger
}

// Reader reads balances through an RPC client.
type Reader struct {
	rpc    solana.RPCClient
	logger *log.Logger
}

// NewReader creates a balance reader.
func NewReader(rpc solana.RPCClient, opts Options) *Reader {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Reader{rpc: rpc, logger: logger}
}

// TokenBalance returns the amount of mint held by owner. The first token
// account reported by the node is used.
func (r *Reader) TokenBalance(ctx context.Context, owner, mint string) Result {
	res := r.tokenBalance(ctx, owner, mint)
	observability.RecordBalanceRead(res.Status.String())
	if res.Status == StatusFailed {
		r.logger.Printf("token balance owner=%s mint=%s: %v", owner, mint, res.Err)
	}
	return res
}

func (r *Reader) tokenBalance(ctx context.Context, owner, mint string) Result {
	if owner == "" || mint == "" {
		return NotFound()
	}

	accounts, err := r.rpc.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return Failed(fmt.Errorf("get token accounts: %w", err))
	}
	if len(accounts) == 0 {
		return NotFound()
	}

	data, err := solana.ParseTokenAccount(accounts[0].Account.Data)
	if err != nil {
		return Failed(fmt.Errorf("token account %s: %w", accounts[0].Pubkey, err))
	}
	return Found(fromUint64(data.Amount))
}

// NativeBalance returns the SOL balance of owner.
func (r *Reader) NativeBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	if owner == "" {
		return decimal.Zero, nil
	}
	lamports, err := r.rpc.GetBalance(ctx, owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance %s: %w", owner, err)
	}
	return fromUint64(lamports).Div(lamportsPerSOL), nil
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
