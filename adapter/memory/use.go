package memory

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xim"
	"github.com/trickstertwo/xlog"
)

// Use builds a Messenger on the in-memory channel and sets it as the default.
//
// Example:
//
//	hub := memory.NewHub()
//	m := memory.Use(memory.Config{Hub: hub, DeliveryTimeout: time.Second},
//	    memory.WithSink(sink),
//	    memory.WithLogger(logger),
//	)
//
// The returned messenger is installed as the process-wide default.
func Use(cfg Config, opts ...Option) *xim.Messenger {
	mb := xim.NewMessengerBuilder().
		WithChannel(ChannelName, cfg.toMap())

	for _, o := range opts {
		if o != nil {
			o(mb)
		}
	}

	m, err := mb.Build()
	if err != nil {
		panic(fmt.Errorf("memory.Use: %w", err))
	}

	xim.SetDefault(m)
	return m
}

// toMap converts Config to the generic map expected by the channel factory.
func (c Config) toMap() map[string]any {
	m := map[string]any{
		"buffer_size":      c.BufferSize,
		"delivery_timeout": c.DeliveryTimeout,
	}
	if c.Hub != nil {
		m["hub"] = c.Hub
	}
	return m
}

// Option configures the xim.Messenger when calling Use.
type Option func(*xim.MessengerBuilder)

// WithSink attaches the presentation layer.
func WithSink(s xim.Sink) Option {
	return func(b *xim.MessengerBuilder) { b.WithSink(s) }
}

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xim.MessengerBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xim.MessengerBuilder) { b.WithClock(c) }
}

// WithMiddleware adds incoming-path middlewares.
func WithMiddleware(mw ...xim.Middleware) Option {
	return func(b *xim.MessengerBuilder) { b.WithMiddleware(mw...) }
}

// WithSendTimeout sets the messenger-side send timeout.
func WithSendTimeout(d time.Duration) Option {
	return func(b *xim.MessengerBuilder) { b.WithSendTimeout(d) }
}

// WithRejectEmptyContent turns empty content into a validation error.
func WithRejectEmptyContent(reject bool) Option {
	return func(b *xim.MessengerBuilder) { b.WithRejectEmptyContent(reject) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xim.Observer) Option {
	return func(b *xim.MessengerBuilder) { b.WithObserver(obs...) }
}

// WithObserverPool configures async observer pool for non-blocking notifications.
func WithObserverPool(workers, bufferSize int) Option {
	return func(b *xim.MessengerBuilder) { b.WithObserverPool(workers, bufferSize) }
}
