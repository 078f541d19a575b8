package solana

import "context"

// WSClient defines the Solana WebSocket subscriptions used to follow the chain.
type WSClient interface {
	// SubscribeLogs subscribes to logs of transactions mentioning the program.
	SubscribeLogs(ctx context.Context, program string) (<-chan ChainEvent, error)

	// SubscribeSlots subscribes to slot advances.
	SubscribeSlots(ctx context.Context) (<-chan ChainEvent, error)

	// Close closes the WebSocket connection and every subscription channel.
	Close() error
}

// EventSource identifies which subscription produced a ChainEvent.
type EventSource string

const (
	EventSourceLogs EventSource = "logs"
	EventSourceSlot EventSource = "slot"
)

// ChainEvent is a normalized WebSocket notification.
type ChainEvent struct {
	Source    EventSource
	Slot      int64
	Signature string // logs only
	Err       interface{}
}
