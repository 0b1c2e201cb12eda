package xim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

func TestChain_AppliesInOrder(t *testing.T) {
	var trace []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, msg Message) error {
				trace = append(trace, name)
				return next(ctx, msg)
			}
		}
	}
	h := Chain(func(context.Context, Message) error {
		trace = append(trace, "handler")
		return nil
	}, mark("first"), nil, mark("second"))

	require.NoError(t, h(context.Background(), Message{}))
	assert.Equal(t, []string{"first", "second", "handler"}, trace)
}

func TestRecoveryMiddleware_TurnsPanicIntoError(t *testing.T) {
	h := RecoveryMiddleware()(func(context.Context, Message) error { panic("kaboom") })
	err := h(context.Background(), Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestFilterMiddleware(t *testing.T) {
	called := 0
	h := FilterMiddleware(func(m Message) bool { return m.Sender != "spam" })(func(context.Context, Message) error {
		called++
		return nil
	})

	assert.ErrorIs(t, h(context.Background(), Message{Sender: "spam"}), ErrFiltered)
	assert.NoError(t, h(context.Background(), Message{Sender: "alice"}))
	assert.Equal(t, 1, called)
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := func(ctx context.Context, _ Message) error {
		<-ctx.Done()
		return ctx.Err()
	}
	err := TimeoutMiddleware(10*time.Millisecond)(slow)(context.Background(), Message{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	fast := func(context.Context, Message) error { return errors.New("handled") }
	err = TimeoutMiddleware(time.Second)(fast)(context.Background(), Message{})
	assert.EqualError(t, err, "handled")

	// Zero disables the timeout.
	passthrough := TimeoutMiddleware(0)(fast)
	assert.EqualError(t, passthrough(context.Background(), Message{}), "handled")
}

func TestTimeoutMiddleware_NothingRunsAfterReturn(t *testing.T) {
	var calls []string
	h := Chain(func(_ context.Context, msg Message) error {
		calls = append(calls, msg.Content)
		return nil
	}, TimeoutMiddleware(20*time.Millisecond))

	require.NoError(t, h(context.Background(), Message{Content: "1"}))
	require.NoError(t, h(context.Background(), Message{Content: "2"}))
	assert.Equal(t, []string{"1", "2"}, calls)
}

func TestLoggingMiddleware_UsesInjectedDeps(t *testing.T) {
	ctx := InjectAll(context.Background(), xlog.Default(), xclock.Default())
	lg, ok := LoggerFromContext(ctx)
	require.True(t, ok)
	assert.NotNil(t, lg)
	_, ok = ClockFromContext(ctx)
	require.True(t, ok)

	called := false
	h := LoggingMiddleware()(func(context.Context, Message) error {
		called = true
		return nil
	})
	require.NoError(t, h(ctx, Message{Sender: "alice", ID: "1"}))
	assert.True(t, called)

	// Without injected deps the middleware is transparent.
	_, ok = LoggerFromContext(context.Background())
	assert.False(t, ok)
	require.NoError(t, h(context.Background(), Message{}))
}
