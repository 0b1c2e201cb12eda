package redisstream

import (
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xim"
	"github.com/trickstertwo/xlog"
)

// Option configures the xim.Messenger construction when calling Use.
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

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xim.Observer) Option {
	return func(b *xim.MessengerBuilder) { b.WithObserver(obs...) }
}
