package xim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Messenger is the Facade over identity, dispatch and a delivery Channel.
type Messenger struct {
	channel      Channel
	clock        xclock.Clock
	logger       *xlog.Logger
	middlewares  []Middleware
	sendTimeout  time.Duration
	rejectEmpty  bool
	closeTimeout time.Duration

	identity Identity
	bindMu   sync.Mutex // serializes SetUsername and inbox rebinding
	inbox    string
	inboxSub Subscription
	receive  Handler

	notifier     *notifier
	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer

	baseCtx    context.Context
	baseCancel context.CancelFunc
	metrics    *messengerMetrics
	sendMu     sync.RWMutex // hand-offs to the channel finish before Close drains it
	closed     atomic.Bool
	closeOnce  sync.Once
}

// messengerMetrics uses lock-free atomics.
type messengerMetrics struct {
	sent       atomic.Uint64
	delivered  atomic.Uint64
	failed     atomic.Uint64
	received   atomic.Uint64
	rejected   atomic.Uint64
	errorCount atomic.Uint64
	deliveryNs atomic.Int64
}

// SetUsername validates and replaces the local identity, rebinds the inbox
// subscription to the new name and notifies the Sink.
func (m *Messenger) SetUsername(name string) error {
	if m.closed.Load() {
		return ErrMessengerClosed
	}
	if err := ValidateUsername(name); err != nil {
		m.metrics.rejected.Add(1)
		return err
	}

	m.bindMu.Lock()
	defer m.bindMu.Unlock()

	if err := m.bindInbox(name); err != nil {
		m.metrics.errorCount.Add(1)
		m.notifyAsync(Event{Type: Error, Sender: name, Err: err})
		return err
	}
	if err := m.identity.Set(name); err != nil {
		return err
	}

	m.notifyAsync(Event{Type: IdentityChanged, Sender: name})
	m.notifier.push(func(s Sink) { s.OnIdentityChanged(name) })
	return nil
}

// bindInbox subscribes to the inbox for name and releases the previous one.
// Must be called with bindMu held.
func (m *Messenger) bindInbox(name string) error {
	if m.inboxSub != nil && m.inbox == name {
		return nil
	}
	sub, err := m.channel.Subscribe(m.baseCtx, name, m.onIncoming)
	if err != nil {
		return fmt.Errorf("xim: subscribe inbox %q: %w", name, err)
	}
	if m.inboxSub != nil {
		if err := m.inboxSub.Close(); err != nil {
			m.logger.Warn().Err(err).Str("inbox", m.inbox).Msg("xim: close previous inbox failed")
		}
	}
	m.inbox = name
	m.inboxSub = sub
	return nil
}

// CurrentUsername returns the current name, or false before the first SetUsername.
func (m *Messenger) CurrentUsername() (string, bool) {
	return m.identity.Current()
}

// Send validates input, builds a Message from the current identity and hands it
// to the channel. It does not wait for delivery: the outcome reaches the Sink
// later through OnOutgoingResult, exactly once per accepted Send.
func (m *Messenger) Send(ctx context.Context, recipient, content string) error {
	if m.closed.Load() {
		return ErrMessengerClosed
	}
	if strings.TrimSpace(recipient) == "" {
		m.metrics.rejected.Add(1)
		return &ValidationError{Field: "recipient", Reason: "must not be empty"}
	}
	if m.rejectEmpty && content == "" {
		m.metrics.rejected.Add(1)
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	sender, ok := m.identity.Current()
	if !ok {
		m.metrics.rejected.Add(1)
		return &ValidationError{Field: "sender", Reason: "username not set", Err: ErrNoIdentity}
	}

	m.sendMu.RLock()
	defer m.sendMu.RUnlock()
	if m.closed.Load() {
		return ErrMessengerClosed
	}

	msg := NewMessage(sender, recipient, content, m.clock.Now())
	m.metrics.sent.Add(1)
	m.notifyAsync(Event{Type: SendStart, Sender: sender, Recipient: recipient, MessageID: msg.ID})

	m.channel.SendAsync(ctx, msg, m.outcomeOnce(msg))
	return nil
}

// outcomeOnce returns the completion callback for msg. Only the first report
// counts; with a send timeout configured, the messenger reports the failure
// itself if the channel stays silent.
func (m *Messenger) outcomeOnce(msg Message) func(DeliveryOutcome) {
	var once sync.Once
	var timer atomic.Pointer[time.Timer]
	start := m.clock.Now()

	report := func(out DeliveryOutcome) {
		once.Do(func() {
			if t := timer.Load(); t != nil {
				t.Stop()
			}
			m.complete(msg, out, m.clock.Since(start))
		})
	}
	if m.sendTimeout > 0 {
		timer.Store(time.AfterFunc(m.sendTimeout, func() { report(Failed(ErrDeliveryTimeout)) }))
	}
	return report
}

func (m *Messenger) complete(msg Message, out DeliveryOutcome, d time.Duration) {
	m.recordDeliveryTime(d.Nanoseconds())
	if out.IsDelivered() {
		m.metrics.delivered.Add(1)
	} else {
		m.metrics.failed.Add(1)
		m.logger.Warn().
			Str("recipient", msg.Recipient).
			Str("message_id", msg.ID).
			Err(out.Reason).
			Msg("xim: delivery failed")
	}

	m.notifyAsync(Event{
		Type:      SendDone,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		MessageID: msg.ID,
		Outcome:   out.Status,
		Duration:  d,
		Err:       out.Reason,
	})
	recipient := msg.Recipient
	if !m.notifier.push(func(s Sink) { s.OnOutgoingResult(recipient, out) }) {
		m.logger.Warn().
			Str("recipient", recipient).
			Str("message_id", msg.ID).
			Str("outcome", out.String()).
			Msg("xim: outcome arrived after close, not shown")
	}
}

// onIncoming is the channel-facing entry for messages arriving at the inbox.
func (m *Messenger) onIncoming(msg Message) {
	if m.closed.Load() {
		return
	}
	hctx := InjectAll(m.baseCtx, m.logger, m.clock)
	if err := m.receive(hctx, msg); err != nil {
		if errors.Is(err, ErrFiltered) {
			return
		}
		m.metrics.errorCount.Add(1)
		m.notifyAsync(Event{Type: Error, Sender: msg.Sender, MessageID: msg.ID, Err: err})
		m.logger.Warn().Err(err).Str("sender", msg.Sender).Msg("xim: incoming handler failed")
	}
}

// Deliver forwards an incoming message to the Sink verbatim. Channels call it
// through the inbox subscription; presentation shells may call it directly.
func (m *Messenger) Deliver(msg Message) {
	m.onIncoming(msg)
}

// forward is the terminal incoming Handler. Messages whose context is already
// done are dropped.
func (m *Messenger) forward(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.metrics.received.Add(1)
	m.notifyAsync(Event{Type: Incoming, Sender: msg.Sender, Recipient: msg.Recipient, MessageID: msg.ID})
	sender, content := msg.Sender, msg.Content
	if !m.notifier.push(func(s Sink) { s.OnIncomingMessage(sender, content) }) {
		return ErrMessengerClosed
	}
	return nil
}

// GetMetrics returns current messenger metrics.
func (m *Messenger) GetMetrics() Metrics {
	var dropped uint64
	if m.observerPool != nil {
		dropped = m.observerPool.Stats().Dropped
	}
	return Metrics{
		Sent:                m.metrics.sent.Load(),
		Delivered:           m.metrics.delivered.Load(),
		Failed:              m.metrics.failed.Load(),
		Received:            m.metrics.received.Load(),
		Rejected:            m.metrics.rejected.Load(),
		Errors:              m.metrics.errorCount.Load(),
		EventsDropped:       dropped,
		AvgDeliveryTimeMs:   float64(m.metrics.deliveryNs.Load()) / 1e6,
		PendingNotification: m.notifier.pending(),
	}
}

// Health checks messenger health.
func (m *Messenger) Health(_ context.Context) HealthStatus {
	if m.closed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: m.clock.Now(),
			Message:   "messenger is closed",
		}
	}

	metrics := m.GetMetrics()
	status := "healthy"
	msg := ""

	// Degraded if failure rate > 5%
	if metrics.Failed > 0 && metrics.Sent > 0 {
		failRate := float64(metrics.Failed) / float64(metrics.Sent)
		if failRate > 0.05 {
			status = "degraded"
			msg = fmt.Sprintf("delivery failure rate %.1f%%", failRate*100)
		}
	}
	if _, ok := m.identity.Current(); !ok && status == "healthy" {
		msg = "username not set"
	}

	return HealthStatus{
		Status:    status,
		Metrics:   metrics,
		Timestamp: m.clock.Now(),
		Message:   msg,
	}
}

// Close gracefully shuts down the messenger. Idempotent.
// Order: stop accepting work, release the inbox, close the channel, drain the
// Sink queue, drain observers.
func (m *Messenger) Close(ctx context.Context) error {
	var closeErr error

	m.closeOnce.Do(func() {
		m.sendMu.Lock()
		m.closed.Store(true)
		m.sendMu.Unlock()

		m.bindMu.Lock()
		if m.inboxSub != nil {
			if err := m.inboxSub.Close(); err != nil {
				m.logger.Warn().Err(err).Msg("xim: inbox close failed")
				closeErr = err
			}
			m.inboxSub = nil
		}
		m.bindMu.Unlock()

		if err := m.channel.Close(ctx); err != nil {
			m.logger.Error().Err(err).Msg("xim: channel close failed")
			closeErr = err
		}
		m.baseCancel()

		if err := m.notifier.Close(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("xim: sink queue drain interrupted")
			closeErr = err
		}

		if m.observerPool != nil {
			if err := m.observerPool.Close(m.closeTimeout); err != nil {
				m.logger.Warn().Err(err).Msg("xim: observer pool shutdown timeout")
				closeErr = err
			}
		}
	})

	return closeErr
}

// AddObserver registers an observer (thread-safe).
func (m *Messenger) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	m.observersMu.Lock()
	m.observers = append(m.observers, obs)
	m.observersMu.Unlock()
}

// RemoveObserver removes every registration of obs.
func (m *Messenger) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	m.observersMu.Lock()
	m.observers = lo.Reject(m.observers, func(o Observer, _ int) bool { return o == obs })
	m.observersMu.Unlock()
}

// notifyAsync dispatches telemetry events asynchronously (non-blocking).
func (m *Messenger) notifyAsync(e Event) {
	if m.observerPool == nil || m.closed.Load() {
		return
	}

	m.observersMu.RLock()
	if len(m.observers) == 0 {
		m.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.observersMu.RUnlock()

	m.observerPool.Notify(e, observers)
}

// recordDeliveryTime records delivery latency using exponential moving average.
func (m *Messenger) recordDeliveryTime(ns int64) {
	const alpha = 0.2 // 20% weight to new sample
	current := m.metrics.deliveryNs.Load()
	if current == 0 {
		m.metrics.deliveryNs.Store(ns)
		return
	}
	newAvg := int64(float64(ns)*alpha + float64(current)*(1-alpha))
	m.metrics.deliveryNs.Store(newAvg)
}
