package xim

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/trickstertwo/xlog"
)

// notification is a deferred Sink call.
type notification func(s Sink)

// notifier is the single-consumer path in front of the Sink.
// Unlike ObserverPool it never drops: producers block while the queue is full,
// and one goroutine makes every Sink call, in enqueue order.
type notifier struct {
	sink   Sink
	logger *xlog.Logger

	mu     sync.RWMutex // guards queue sends against close
	queue  chan notification
	closed atomic.Bool
	done   chan struct{}

	panics atomic.Uint64
}

func newNotifier(sink Sink, logger *xlog.Logger, bufferSize int) *notifier {
	if sink == nil {
		sink = NopSink{}
	}
	if bufferSize < 1 {
		bufferSize = 256
	}
	n := &notifier{
		sink:   sink,
		logger: logger,
		queue:  make(chan notification, bufferSize),
		done:   make(chan struct{}),
	}
	go n.run()
	return n
}

// push enqueues a notification. Returns false once the notifier is closed.
func (n *notifier) push(fn notification) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed.Load() {
		return false
	}
	n.queue <- fn
	return true
}

func (n *notifier) run() {
	defer close(n.done)
	for fn := range n.queue {
		n.call(fn)
	}
}

// call invokes a single notification; a panicking Sink must not kill the consumer.
func (n *notifier) call(fn notification) {
	defer func() {
		if r := recover(); r != nil {
			n.panics.Add(1)
			if n.logger != nil {
				n.logger.Warn().Str("panic", panicString(r)).Msg("xim: sink panic (recovered)")
			}
		}
	}()
	fn(n.sink)
}

// pending returns the current queue depth.
func (n *notifier) pending() int { return len(n.queue) }

// Close stops accepting notifications and waits for queued ones to be delivered.
func (n *notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed.Swap(true) {
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
