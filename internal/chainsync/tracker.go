package chainsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"vault-position-lab/internal/observability"
	"vault-position-lab/internal/solana"
)

// ErrTransactionFailed is returned by ConfirmTransaction for a transaction
// that landed with an error.
var ErrTransactionFailed = errors.New("transaction failed")

// Slot sources used in metrics.
const (
	SourceInit    = "init"
	SourcePoll    = "poll"
	SourceLogs    = "logs"
	SourceSlots   = "slots"
	SourceConfirm = "confirm"
)

// Options configures a Tracker.
type Options struct {
	// PollInterval is the getSlot polling period. Zero disables polling.
	PollInterval time.Duration
	// WS, when set, is used to follow program logs.
	WS solana.WSClient
	// Programs whose logs move the signal forward.
	Programs []string
	// FollowSlots also moves the signal on every slotSubscribe notification.
	// Requires WS.
	FollowSlots bool
	Logger   *log.Logger
}

// Tracker feeds a Signal from RPC polling and WebSocket log notifications.
type Tracker struct {
	rpc    solana.RPCClient
	signal *Signal
	opts   Options
	logger *log.Logger
}

// NewTracker creates a tracker publishing into signal.
func NewTracker(rpc solana.RPCClient, signal *Signal, opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{rpc: rpc, signal: signal, opts: opts, logger: logger}
}

// Signal returns the signal the tracker publishes into.
func (t *Tracker) Signal() *Signal {
	return t.signal
}

// Init publishes the current slot once.
func (t *Tracker) Init(ctx context.Context) error {
	slot, err := t.rpc.GetSlot(ctx)
	if err != nil {
		return fmt.Errorf("initial slot: %w", err)
	}
	t.publish(SourceInit, slot)
	t.logger.Printf("initial slot %d", slot)
	return nil
}

// Run initializes the signal and keeps it moving until ctx is cancelled.
// An initial getSlot failure is logged and polling continues.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.Init(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.logger.Printf("%v", err)
	}

	var wg sync.WaitGroup
	if t.opts.WS != nil {
		for _, program := range t.opts.Programs {
			ch, err := t.opts.WS.SubscribeLogs(ctx, program)
			if err != nil {
				t.logger.Printf("logs subscription %s: %v", program, err)
				continue
			}
			wg.Add(1)
			go func(program string, ch <-chan solana.ChainEvent) {
				defer wg.Done()
				t.follow(ctx, SourceLogs, "logs "+program, ch)
			}(program, ch)
		}
		if t.opts.FollowSlots {
			if ch, err := t.opts.WS.SubscribeSlots(ctx); err != nil {
				t.logger.Printf("slot subscription: %v", err)
			} else {
				wg.Add(1)
				go func() {
					defer wg.Done()
					t.follow(ctx, SourceSlots, "slots", ch)
				}()
			}
		}
	}

	if t.opts.PollInterval > 0 {
		t.poll(ctx)
	} else {
		<-ctx.Done()
	}

	wg.Wait()
	return ctx.Err()
}

func (t *Tracker) poll(ctx context.Context) {
	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slot, err := t.rpc.GetSlot(ctx)
			if err != nil {
				if ctx.Err() == nil {
					t.logger.Printf("poll slot: %v", err)
				}
				continue
			}
			t.publish(SourcePoll, slot)
		}
	}
}

func (t *Tracker) follow(ctx context.Context, source, name string, ch <-chan solana.ChainEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				t.logger.Printf("%s subscription closed", name)
				return
			}
			if ev.Err != nil {
				// failed transactions leave balances unchanged
				continue
			}
			t.publish(source, ev.Slot)
		}
	}
}

// ConfirmTransaction looks up an already submitted transaction and, when it
// landed successfully, publishes its slot. ok is false when the node does
// not know the signature yet.
func (t *Tracker) ConfirmTransaction(ctx context.Context, signature string) (slot int64, ok bool, err error) {
	tx, err := t.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return 0, false, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	if tx == nil {
		return 0, false, nil
	}
	if tx.Err != nil {
		return tx.Slot, true, fmt.Errorf("%w: %v", ErrTransactionFailed, tx.Err)
	}
	t.publish(SourceConfirm, tx.Slot)
	return tx.Slot, true, nil
}

func (t *Tracker) publish(source string, slot int64) {
	if t.signal.Publish(slot) {
		observability.UpdateLastSlot(source, slot)
	}
}
