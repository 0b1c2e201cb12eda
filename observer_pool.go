package xim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ObserverPool manages asynchronous event dispatching to observers.
// Telemetry only: events are dropped when the buffer is full so that slow
// observers never hold up sends or the Sink path.
type ObserverPool struct {
	eventCh   chan *Event
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	dropped   atomic.Uint64
	processed atomic.Uint64
}

// NewObserverPool creates a pool for async observer notification.
// workers: number of concurrent dispatch goroutines
// bufferSize: capacity of event channel
func NewObserverPool(ctx context.Context, workers, bufferSize int) *ObserverPool {
	if workers < 1 {
		workers = 2
	}
	if bufferSize < 1 {
		bufferSize = 1024
	}

	poolCtx, cancel := context.WithCancel(ctx)
	op := &ObserverPool{
		eventCh: make(chan *Event, bufferSize),
		workers: workers,
		ctx:     poolCtx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		op.wg.Add(1)
		go op.worker()
	}

	return op
}

// Notify sends an event for asynchronous observer dispatch.
// Non-blocking: returns immediately, drops event if buffer is full.
func (op *ObserverPool) Notify(e Event, observers []Observer) {
	if len(observers) == 0 || op.closed.Load() {
		return
	}

	e.observers = make([]Observer, len(observers))
	copy(e.observers, observers)

	select {
	case op.eventCh <- &e:
	default:
		op.dropped.Add(1)
	}
}

func (op *ObserverPool) worker() {
	defer op.wg.Done()
	for {
		select {
		case <-op.ctx.Done():
			// drain what is already queued
			for {
				select {
				case e := <-op.eventCh:
					if e != nil {
						op.dispatchEvent(e)
						op.processed.Add(1)
					}
				default:
					return
				}
			}
		case e := <-op.eventCh:
			if e != nil {
				op.dispatchEvent(e)
				op.processed.Add(1)
			}
		}
	}
}

// dispatchEvent calls all observers for a single event.
// Tolerates observer panics to prevent pool corruption.
func (op *ObserverPool) dispatchEvent(e *Event) {
	for _, obs := range e.observers {
		if obs == nil {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			obs.OnEvent(*e)
		}()
	}
}

// Close gracefully shuts down the observer pool.
func (op *ObserverPool) Close(timeout time.Duration) error {
	if op.closed.Swap(true) {
		return nil
	}

	op.cancel()

	done := make(chan struct{})
	go func() {
		op.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrObserverPoolShutdownTimeout
	}
}

// Stats returns current pool statistics.
func (op *ObserverPool) Stats() PoolStats {
	return PoolStats{
		Dropped:      op.dropped.Load(),
		Processed:    op.processed.Load(),
		ActiveEvents: len(op.eventCh),
		Workers:      op.workers,
		BufferSize:   cap(op.eventCh),
	}
}
