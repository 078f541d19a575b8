// Package stub provides an in-memory Solana RPC client for tests.
package stub

import (
	"context"
	"sync"
	"sync/atomic"

	"vault-position-lab/internal/solana"
)

// RPCClient implements solana.RPCClient over in-memory state.
// Errors set in Errs are returned by the method of the same name.
type RPCClient struct {
	mu sync.RWMutex

	Accounts      map[string]*solana.AccountInfo
	TokenAccounts map[string][]solana.TokenAccount // key: owner + "/" + mint
	Lamports      map[string]uint64
	Transactions  map[string]*solana.Transaction
	Slot          int64
	Errs          map[string]error

	calls sync.Map // method -> *atomic.Int64
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Lamports:      make(map[string]uint64),
		Transactions:  make(map[string]*solana.Transaction),
		Errs:          make(map[string]error),
	}
}

func (c *RPCClient) enter(method string) error {
	v, _ := c.calls.LoadOrStore(method, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Errs[method]
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int64 {
	v, ok := c.calls.Load(method)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.enter("GetAccountInfo"); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// GetTokenAccountsByOwner returns the stored token accounts for owner and mint.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	if err := c.enter("GetTokenAccountsByOwner"); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]solana.TokenAccount(nil), c.TokenAccounts[owner+"/"+mint]...), nil
}

// GetBalance returns the stored lamports of pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	if err := c.enter("GetBalance"); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Lamports[pubkey], nil
}

// GetSlot returns the stored slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	if err := c.enter("GetSlot"); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Slot, nil
}

// GetTransaction returns the stored transaction or nil.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.enter("GetTransaction"); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

// SetSlot updates the current slot.
func (c *RPCClient) SetSlot(slot int64) {
	c.mu.Lock()
	c.Slot = slot
	c.mu.Unlock()
}

// SetErr makes method fail with err; nil clears it.
func (c *RPCClient) SetErr(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.Errs, method)
		return
	}
	c.Errs[method] = err
}

// AddAccount stores an account.
func (c *RPCClient) AddAccount(pubkey string, info solana.AccountInfo) {
	c.mu.Lock()
	c.Accounts[pubkey] = &info
	c.mu.Unlock()
}

// AddTokenAccount stores an SPL token account holding amount of mint for owner.
func (c *RPCClient) AddTokenAccount(owner, mint, pubkey string, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := owner + "/" + mint
	c.TokenAccounts[key] = append(c.TokenAccounts[key], solana.TokenAccount{
		Pubkey: pubkey,
		Account: solana.AccountInfo{
			Owner: solana.TokenProgramID,
			Data:  solana.EncodeTokenAccount(mint, owner, amount),
		},
	})
}

// AddTransaction stores a transaction.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	c.Transactions[tx.Signature] = tx
	c.mu.Unlock()
}
