package stub

import (
	"context"
	"sync"

	"vault-position-lab/internal/solana"
)

// WSClient implements solana.WSClient with channels fed by Push.
type WSClient struct {
	mu     sync.Mutex
	logs   map[string]chan solana.ChainEvent
	slots  []chan solana.ChainEvent
	closed bool
	SubErr error
}

var _ solana.WSClient = (*WSClient)(nil)

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{logs: make(map[string]chan solana.ChainEvent)}
}

// SubscribeLogs returns a channel fed by PushLogs for program.
func (c *WSClient) SubscribeLogs(_ context.Context, program string) (<-chan solana.ChainEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubErr != nil {
		return nil, c.SubErr
	}
	if c.closed {
		return nil, solana.ErrClientClosed
	}
	ch := make(chan solana.ChainEvent, 16)
	c.logs[program] = ch
	return ch, nil
}

// SubscribeSlots returns a channel fed by PushSlot.
func (c *WSClient) SubscribeSlots(_ context.Context) (<-chan solana.ChainEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubErr != nil {
		return nil, c.SubErr
	}
	if c.closed {
		return nil, solana.ErrClientClosed
	}
	ch := make(chan solana.ChainEvent, 16)
	c.slots = append(c.slots, ch)
	return ch, nil
}

// PushLogs delivers a logs notification for program. Reports false if nobody subscribed.
func (c *WSClient) PushLogs(program, signature string, slot int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.logs[program]
	if !ok || c.closed {
		return false
	}
	ch <- solana.ChainEvent{Source: solana.EventSourceLogs, Slot: slot, Signature: signature}
	return true
}

// PushSlot delivers a slot notification to every slot subscriber.
func (c *WSClient) PushSlot(slot int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, ch := range c.slots {
		ch <- solana.ChainEvent{Source: solana.EventSourceSlot, Slot: slot}
	}
}

// Subscribed reports whether program has a logs subscription.
func (c *WSClient) Subscribed(program string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.logs[program]
	return ok
}

// SlotSubscribers returns the number of slot subscriptions.
func (c *WSClient) SlotSubscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Close closes every subscription channel.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, ch := range c.logs {
		close(ch)
	}
	for _, ch := range c.slots {
		close(ch)
	}
	return nil
}
