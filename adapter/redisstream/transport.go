package redisstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xim"
)

// ErrChannelClosed is the failure reason for sends after Close.
var ErrChannelClosed = errors.New("redisstream: channel is closed")

type transport struct {
	cfg    Config
	client *redis.Client
	codec  xim.Codec

	mu     sync.RWMutex // guards outbox sends against close
	outbox chan *sendTask
	closed atomic.Bool
	done   chan struct{}

	subsMu sync.Mutex
	subs   map[*subscription]struct{}

	// metrics for observability
	metrics *transportMetrics
}

// transportMetrics tracks performance telemetry
type transportMetrics struct {
	sent          atomic.Uint64
	delivered     atomic.Uint64
	failed        atomic.Uint64
	received      atomic.Uint64
	acked         atomic.Uint64
	claimed       atomic.Uint64
	deadLettered  atomic.Uint64
	consumeErrors atomic.Uint64
}

// Stats is a snapshot of channel telemetry.
type Stats struct {
	Sent          uint64
	Delivered     uint64
	Failed        uint64
	Received      uint64
	Acked         uint64
	Claimed       uint64
	DeadLettered  uint64
	ConsumeErrors uint64
}

type sendTask struct {
	msg  xim.Message
	done func(xim.DeliveryOutcome)
}

// NewTransport connects to Redis and starts the ordered send worker.
func NewTransport(cfg Config) (xim.Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := xim.NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		// XREADGROUP BLOCK must return when a subscription is closed.
		ContextTimeoutEnabled: true,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, err
	}

	t := &transport{
		cfg:     cfg,
		client:  client,
		codec:   codec,
		outbox:  make(chan *sendTask, cfg.BufferSize),
		done:    make(chan struct{}),
		subs:    make(map[*subscription]struct{}),
		metrics: &transportMetrics{},
	}
	go t.dispatch()

	return t, nil
}

// SendAsync queues msg for XADD onto the recipient's inbox stream.
func (t *transport) SendAsync(ctx context.Context, msg xim.Message, done func(xim.DeliveryOutcome)) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed.Load() {
		t.fail(done, ErrChannelClosed)
		return
	}
	t.metrics.sent.Add(1)

	select {
	case t.outbox <- &sendTask{msg: msg, done: done}:
	case <-ctx.Done():
		t.fail(done, ctx.Err())
	}
}

// dispatch publishes queued sends one by one so per-recipient order holds.
func (t *transport) dispatch() {
	defer close(t.done)
	for task := range t.outbox {
		t.publish(task)
	}
}

func (t *transport) publish(task *sendTask) {
	vals, err := encodeEntry(t.codec, task.msg)
	if err != nil {
		t.fail(task.done, err)
		return
	}

	args := &redis.XAddArgs{
		Stream: t.cfg.stream(task.msg.Recipient),
		ID:     "*",
		Values: vals,
	}
	// Approximate trimming to keep inboxes bounded
	if t.cfg.MaxLenApprox > 0 {
		args.MaxLen = t.cfg.MaxLenApprox
		args.Approx = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.SendTimeout)
	defer cancel()

	if err := t.client.XAdd(ctx, args).Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", xim.ErrDeliveryTimeout, err)
		}
		t.fail(task.done, err)
		return
	}
	t.metrics.delivered.Add(1)
	if task.done != nil {
		task.done(xim.Delivered())
	}
}

func (t *transport) fail(done func(xim.DeliveryOutcome), reason error) {
	t.metrics.failed.Add(1)
	if done != nil {
		done(xim.Failed(reason))
	}
}

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

// Subscribe reads the inbox stream through the consumer group, one entry at a time.
func (t *transport) Subscribe(ctx context.Context, inbox string, handler func(xim.Message)) (xim.Subscription, error) {
	if t.closed.Load() {
		return nil, ErrChannelClosed
	}
	if inbox == "" || handler == nil {
		return nil, errors.New("redisstream: inbox name and handler are required")
	}
	stream := t.cfg.stream(inbox)

	// Ensure consumer group exists (idempotent)
	if t.cfg.AutoCreate {
		err := t.client.XGroupCreateMkStream(ctx, stream, t.cfg.Group, t.cfg.StartID).Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return nil, fmt.Errorf("redisstream: create group on %s: %w", stream, err)
		}
	}

	consumer := t.cfg.consumer(inbox)
	innerCtx, cancel := context.WithCancel(ctx)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		t.claimPending(innerCtx, stream, consumer)
		t.pollerLoop(innerCtx, stream, consumer, handler)
	}()

	sub := &subscription{}
	sub.close = func() error {
		sub.once.Do(func() {
			cancel()
			<-pollerDone
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

// claimPending moves entries left pending under other consumer names (a
// previous run with a different Consumer) to consumer, so the replay below
// picks them up in stream order.
func (t *transport) claimPending(ctx context.Context, stream, consumer string) {
	batch := int64(t.cfg.ClaimBatch)
	start := "-"
	for ctx.Err() == nil {
		pending, err := t.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: stream,
			Group:  t.cfg.Group,
			Start:  start,
			End:    "+",
			Count:  batch,
			Idle:   t.cfg.ClaimMinIdle,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				t.metrics.consumeErrors.Add(1)
			}
			return
		}

		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			if p.Consumer != consumer {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) > 0 {
			claimed, err := t.client.XClaimJustID(ctx, &redis.XClaimArgs{
				Stream:   stream,
				Group:    t.cfg.Group,
				Consumer: consumer,
				MinIdle:  t.cfg.ClaimMinIdle,
				Messages: ids,
			}).Result()
			if err != nil {
				t.metrics.consumeErrors.Add(1)
				return
			}
			t.metrics.claimed.Add(uint64(len(claimed)))
		}

		if int64(len(pending)) < batch {
			return
		}
		start = "(" + pending[len(pending)-1].ID
	}
}

// pollerLoop first replays entries left pending for this consumer by an
// earlier run, then reads new ones. Handling is sequential to keep arrival order.
func (t *transport) pollerLoop(ctx context.Context, stream, consumer string, handler func(xim.Message)) {
	xArgs := &redis.XReadGroupArgs{
		Group:    t.cfg.Group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    int64(t.cfg.BatchSize),
		Block:    t.cfg.Block,
		NoAck:    false,
	}
	replaying := true

	backoff := time.Millisecond * 100
	maxBackoff := time.Second * 5

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := t.client.XReadGroup(ctx, xArgs).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				// Block timeout (expected), continue polling
				backoff = time.Millisecond * 100
				continue
			}

			// Transient error: exponential backoff
			t.metrics.consumeErrors.Add(1)
			select {
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			case <-ctx.Done():
				return
			}
			continue
		}
		backoff = time.Millisecond * 100

		n := 0
		for _, s := range res {
			for _, entry := range s.Messages {
				n++
				t.handleEntry(ctx, stream, entry, handler)
			}
		}
		if replaying && n == 0 {
			replaying = false
			xArgs.Streams = []string{stream, ">"}
		}
	}
}

func (t *transport) handleEntry(ctx context.Context, stream string, entry redis.XMessage, handler func(xim.Message)) {
	msg, err := decodeEntry(t.codec, entry.ID, entry.Values)
	if err != nil {
		t.deadLetter(ctx, stream, entry, err)
		t.ack(ctx, stream, entry.ID)
		return
	}
	t.metrics.received.Add(1)
	handler(msg)
	t.ack(ctx, stream, entry.ID)
}

// ack acknowledges an entry and optionally deletes it from the inbox.
func (t *transport) ack(ctx context.Context, stream, id string) {
	if err := t.client.XAck(ctx, stream, t.cfg.Group, id).Err(); err != nil {
		t.metrics.consumeErrors.Add(1)
		return
	}
	t.metrics.acked.Add(1)
	if t.cfg.AutoDeleteOnAck {
		_ = t.client.XDel(ctx, stream, id).Err()
	}
}

// deadLetter copies an undecodable entry with the failure reason, when configured.
func (t *transport) deadLetter(ctx context.Context, stream string, entry redis.XMessage, reason error) {
	t.metrics.consumeErrors.Add(1)
	dl := t.cfg.DeadLetter
	if dl == "" {
		return
	}
	values := make(map[string]any, 3+len(entry.Values))
	values["orig_stream"] = stream
	values["orig_id"] = entry.ID
	values["error"] = fmt.Sprintf("%v", reason)
	for k, v := range entry.Values {
		values[k] = v
	}
	if err := t.client.XAdd(ctx, &redis.XAddArgs{Stream: dl, ID: "*", Values: values}).Err(); err == nil {
		t.metrics.deadLettered.Add(1)
	}
}

// Close stops accepting sends, flushes queued ones, stops pollers and closes the client.
func (t *transport) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed.Swap(true) {
		t.mu.Unlock()
		return nil
	}
	close(t.outbox)
	t.mu.Unlock()

	select {
	case <-t.done:
	case <-ctx.Done():
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

	return t.client.Close()
}

// Stats returns current channel metrics.
func (t *transport) Stats() Stats {
	return Stats{
		Sent:          t.metrics.sent.Load(),
		Delivered:     t.metrics.delivered.Load(),
		Failed:        t.metrics.failed.Load(),
		Received:      t.metrics.received.Load(),
		Acked:         t.metrics.acked.Load(),
		Claimed:       t.metrics.claimed.Load(),
		DeadLettered:  t.metrics.deadLettered.Load(),
		ConsumeErrors: t.metrics.consumeErrors.Load(),
	}
}

// Helper functions

func ping(c *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}

	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}

	return nil
}
