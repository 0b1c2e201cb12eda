//go:generate go run go.uber.org/mock/mockgen -source=channel.go -destination=mocks/mock_channel.go -package=mocks
package xim

import "context"

// Subscription represents an active inbox binding that can be closed.
type Subscription interface {
	Close() error
}

// Channel is the Strategy interface for delivery backends (loopback, network, bus).
type Channel interface {
	// SendAsync hands msg to the transport and returns without waiting for delivery.
	// done must be called exactly once with the outcome, from any goroutine.
	// Messages for the same recipient are dispatched in call order.
	// ctx bounds the hand-off only, not the delivery attempt.
	SendAsync(ctx context.Context, msg Message, done func(DeliveryOutcome))
	// Subscribe binds handler to an inbox. Messages are passed to handler in
	// arrival order. The transport drives delivery in background and honors ctx.
	Subscribe(ctx context.Context, inbox string, handler func(Message)) (Subscription, error)
	// Close releases resources.
	Close(ctx context.Context) error
}
