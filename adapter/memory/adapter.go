package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xim"
)

const ChannelName = "memory"

var (
	// ErrRecipientUnreachable is the failure reason when no inbox is bound for the recipient.
	ErrRecipientUnreachable = errors.New("memory: recipient unreachable")
	// ErrChannelClosed is the failure reason for sends after Close.
	ErrChannelClosed = errors.New("memory: channel is closed")
	// ErrInboxInUse is returned when another subscription already holds the inbox.
	ErrInboxInUse = errors.New("memory: inbox already bound")
)

func init() {
	if err := xim.RegisterChannel(ChannelName, func(cfg map[string]any) (xim.Channel, error) {
		return NewTransport(ConfigFromMap(cfg)), nil
	}); err != nil {
		panic(fmt.Errorf("xim/memory: failed to register channel: %w", err))
	}
}

// Config controls memory channel behavior.
type Config struct {
	// BufferSize is the per-recipient outbox and per-inbox queue size (default: 1024).
	BufferSize int
	// DeliveryTimeout bounds how long a send waits on a full inbox before
	// failing with xim.ErrDeliveryTimeout (default: 5s, 0 = wait until the inbox goes away).
	DeliveryTimeout time.Duration
	// Hub connects transports in one process. Nil means a private hub.
	Hub *Hub
}

func ConfigFromMap(cfg map[string]any) Config {
	getInt := func(k string, d int) int {
		switch v := cfg[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		default:
			return d
		}
	}

	getDur := func(k string, d time.Duration) time.Duration {
		switch v := cfg[k].(type) {
		case time.Duration:
			return v
		case string:
			if p, err := time.ParseDuration(v); err == nil {
				return p
			}
		case float64:
			return time.Duration(v)
		}
		return d
	}

	hub, _ := cfg["hub"].(*Hub)

	size := getInt("buffer_size", 1024)
	if size < 1 {
		size = 1024
	}

	return Config{
		BufferSize:      size,
		DeliveryTimeout: getDur("delivery_timeout", 5*time.Second),
		Hub:             hub,
	}
}

// Hub is the shared address space of in-process inboxes.
type Hub struct {
	mu      sync.RWMutex
	inboxes map[string]*inbox
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{inboxes: make(map[string]*inbox)}
}

// Inboxes returns the number of bound inboxes.
func (h *Hub) Inboxes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.inboxes)
}

func (h *Hub) lookup(name string) *inbox {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inboxes[name]
}

func (h *Hub) bind(name string, ib *inbox) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, taken := h.inboxes[name]; taken {
		return ErrInboxInUse
	}
	h.inboxes[name] = ib
	return nil
}

func (h *Hub) unbind(name string, ib *inbox) {
	h.mu.Lock()
	if h.inboxes[name] == ib {
		delete(h.inboxes, name)
	}
	h.mu.Unlock()
}

// Transport implements xim.Channel over in-process queues (dev/testing/loopback).
type Transport struct {
	cfg Config
	hub *Hub

	mu      sync.RWMutex // guards lane sends against close
	lanes   map[string]*lane
	lanesMu sync.Mutex
	lanesW  sync.WaitGroup
	closed  atomic.Bool

	subsMu sync.Mutex
	subs   map[*subscription]struct{}

	// Metrics for observability
	metrics *transportMetrics
}

type transportMetrics struct {
	sent      atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	received  atomic.Uint64
}

var _ xim.Channel = (*Transport)(nil)

// NewTransport creates a new in-memory channel. Each recipient gets its own dispatch worker on first send.
func NewTransport(cfg Config) *Transport {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1024
	}
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub()
	}

	return &Transport{
		cfg:     cfg,
		hub:     hub,
		lanes:   make(map[string]*lane),
		subs:    make(map[*subscription]struct{}),
		metrics: &transportMetrics{},
	}
}

type sendTask struct {
	msg  xim.Message
	done func(xim.DeliveryOutcome)
}

// lane is the FIFO outbox of one recipient. A full inbox only stalls its own lane.
type lane struct {
	queue chan *sendTask
}

// SendAsync queues msg on the recipient's lane. Only a full lane blocks, bounded by ctx.
func (t *Transport) SendAsync(ctx context.Context, msg xim.Message, done func(xim.DeliveryOutcome)) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed.Load() {
		t.fail(done, ErrChannelClosed)
		return
	}
	t.metrics.sent.Add(1)

	l := t.lane(msg.Recipient)
	task := &sendTask{msg: msg, done: done}
	select {
	case l.queue <- task:
	default:
		select {
		case l.queue <- task:
		case <-ctx.Done():
			t.fail(done, ctx.Err())
		}
	}
}

// lane returns the recipient's lane, starting its dispatcher on first use.
// Callers hold t.mu for reading.
func (t *Transport) lane(recipient string) *lane {
	t.lanesMu.Lock()
	defer t.lanesMu.Unlock()
	if l, ok := t.lanes[recipient]; ok {
		return l
	}
	l := &lane{queue: make(chan *sendTask, t.cfg.BufferSize)}
	t.lanes[recipient] = l
	t.lanesW.Add(1)
	go t.dispatch(l)
	return l
}

// dispatch drains one lane in order until Close, then finishes what was queued.
func (t *Transport) dispatch(l *lane) {
	defer t.lanesW.Done()
	for task := range l.queue {
		t.deliver(task)
	}
}

func (t *Transport) deliver(task *sendTask) {
	ib := t.hub.lookup(task.msg.Recipient)
	if ib == nil {
		t.fail(task.done, ErrRecipientUnreachable)
		return
	}

	// Fast path: room in the inbox.
	select {
	case ib.queue <- task.msg:
		t.succeed(task.done)
		return
	case <-ib.closed:
		t.fail(task.done, ErrRecipientUnreachable)
		return
	default:
	}

	var timeout <-chan time.Time
	if t.cfg.DeliveryTimeout > 0 {
		timer := time.NewTimer(t.cfg.DeliveryTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ib.queue <- task.msg:
		t.succeed(task.done)
	case <-ib.closed:
		t.fail(task.done, ErrRecipientUnreachable)
	case <-timeout:
		t.fail(task.done, xim.ErrDeliveryTimeout)
	}
}

func (t *Transport) succeed(done func(xim.DeliveryOutcome)) {
	t.metrics.delivered.Add(1)
	if done != nil {
		done(xim.Delivered())
	}
}

func (t *Transport) fail(done func(xim.DeliveryOutcome), reason error) {
	t.metrics.failed.Add(1)
	if done != nil {
		done(xim.Failed(reason))
	}
}

// Subscribe binds handler to the named inbox on the hub.
func (t *Transport) Subscribe(ctx context.Context, name string, handler func(xim.Message)) (xim.Subscription, error) {
	if t.closed.Load() {
		return nil, ErrChannelClosed
	}
	if name == "" || handler == nil {
		return nil, errors.New("memory: inbox name and handler are required")
	}

	ib := &inbox{
		queue:  make(chan xim.Message, t.cfg.BufferSize),
		closed: make(chan struct{}),
	}
	if err := t.hub.bind(name, ib); err != nil {
		return nil, err
	}

	innerCtx, cancel := context.WithCancel(ctx)
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.worker(innerCtx, ib, handler)
	}()

	sub := &subscription{}
	sub.close = func() error {
		sub.once.Do(func() {
			t.hub.unbind(name, ib)
			close(ib.closed)
			cancel()
			wg.Wait()

			t.subsMu.Lock()
			delete(t.subs, sub)
			t.subsMu.Unlock()
		})
		return nil
	}

	t.subsMu.Lock()
	t.subs[sub] = struct{}{}
	t.subsMu.Unlock()

	return sub, nil
}

// worker hands inbox messages to the handler one at a time, preserving arrival order.
func (t *Transport) worker(ctx context.Context, ib *inbox, handler func(xim.Message)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ib.queue:
			t.metrics.received.Add(1)
			handler(msg)
		}
	}
}

// Close stops accepting sends, finishes queued ones, then releases every inbox
// bound through this transport.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed.Swap(true) {
		t.mu.Unlock()
		return nil
	}
	t.lanesMu.Lock()
	for _, l := range t.lanes {
		close(l.queue)
	}
	t.lanesMu.Unlock()
	t.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		t.lanesW.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.subsMu.Lock()
	subs := make([]*subscription, 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.subsMu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

// Hub returns the hub this transport is attached to.
func (t *Transport) Hub() *Hub { return t.hub }

// Stats returns channel telemetry.
type Stats struct {
	Sent      uint64
	Delivered uint64
	Failed    uint64
	Received  uint64
}

// Stats returns current channel metrics.
func (t *Transport) Stats() Stats {
	return Stats{
		Sent:      t.metrics.sent.Load(),
		Delivered: t.metrics.delivered.Load(),
		Failed:    t.metrics.failed.Load(),
		Received:  t.metrics.received.Load(),
	}
}

// Internal types

type subscription struct {
	once  sync.Once
	close func() error
}

func (s *subscription) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}

type inbox struct {
	queue  chan xim.Message
	closed chan struct{}
}
