package xim

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Handler processes a single incoming message. A returned error is logged and
// reported to observers; the message is not forwarded to the Sink.
type Handler func(ctx context.Context, msg Message) error

// Middleware composes processing concerns around a Handler.
type Middleware func(next Handler) Handler

// ErrFiltered can be returned by a middleware to drop a message without it counting as an error.
var ErrFiltered = errors.New("xim: message filtered")

// TimeoutMiddleware gives the rest of the chain a deadline of d. It runs the
// chain on the caller's goroutine, so arrival order holds; a message whose
// deadline passes before it reaches the Sink is not forwarded.
func TimeoutMiddleware(d time.Duration) Middleware {
	if d <= 0 {
		return func(next Handler) Handler { return next }
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(tctx, msg)
		}
	}
}

// RecoveryMiddleware prevents panics from crashing the receive loop and converts them into errors.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// LoggingMiddleware logs every incoming message with the logger and clock found in ctx.
func LoggingMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			lg, ok := LoggerFromContext(ctx)
			if !ok {
				return next(ctx, msg)
			}
			clk, hasClock := ClockFromContext(ctx)
			var start time.Time
			if hasClock {
				start = clk.Now()
			}

			err := next(ctx, msg)

			ev := lg.Debug().
				Str("sender", msg.Sender).
				Str("message_id", msg.ID)
			if hasClock {
				ev = ev.Dur("dur", clk.Since(start))
			}
			ev.Err(err).Msg("incoming handled")
			return err
		}
	}
}

// FilterMiddleware drops messages for which keep returns false.
func FilterMiddleware(keep func(msg Message) bool) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			if keep != nil && !keep(msg) {
				return ErrFiltered
			}
			return next(ctx, msg)
		}
	}
}

// Chain composes middlewares around a handler in order.
func Chain(h Handler, mws ...Middleware) Handler {
	if len(mws) == 0 {
		return h
	}
	wrapped := h
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

func panicString(r any) string {
	return fmt.Sprintf("%v", r)
}
