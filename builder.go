package xim

import (
	"context"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// MessengerBuilder constructs Messenger instances (Builder pattern).
type MessengerBuilder struct {
	channelName string
	channelCfg  map[string]any
	channelInst Channel

	sink        Sink
	middlewares []Middleware
	observers   []Observer
	logger      *xlog.Logger
	clock       xclock.Clock

	sendTimeout  time.Duration
	rejectEmpty  bool
	closeTimeout time.Duration

	notifyBuffer    int
	observerWorkers int
	observerBuffer  int
}

// NewMessengerBuilder returns a new builder with sensible defaults.
func NewMessengerBuilder() *MessengerBuilder {
	return &MessengerBuilder{
		closeTimeout:    5 * time.Second,
		notifyBuffer:    256,
		observerWorkers: 2,
		observerBuffer:  1024,
	}
}

// WithChannel selects a registered channel by name.
func (mb *MessengerBuilder) WithChannel(name string, cfg map[string]any) *MessengerBuilder {
	mb.channelName = name
	mb.channelCfg = cfg
	return mb
}

// WithChannelInstance accepts a ready Channel instance (e.g., from adapter NewTransport()).
func (mb *MessengerBuilder) WithChannelInstance(c Channel) *MessengerBuilder {
	mb.channelInst = c
	return mb
}

func (mb *MessengerBuilder) WithSink(s Sink) *MessengerBuilder {
	mb.sink = s
	return mb
}

// WithMiddleware adds incoming-path middlewares, applied in order.
func (mb *MessengerBuilder) WithMiddleware(mw ...Middleware) *MessengerBuilder {
	if len(mw) == 0 {
		return mb
	}
	mb.middlewares = append(mb.middlewares, mw...)
	return mb
}

func (mb *MessengerBuilder) WithObserver(obs ...Observer) *MessengerBuilder {
	for _, o := range obs {
		if o != nil {
			mb.observers = append(mb.observers, o)
		}
	}
	return mb
}

func (mb *MessengerBuilder) WithLogger(l *xlog.Logger) *MessengerBuilder {
	mb.logger = l
	return mb
}

func (mb *MessengerBuilder) WithClock(c xclock.Clock) *MessengerBuilder {
	mb.clock = c
	return mb
}

// WithSendTimeout reports Failed(ErrDeliveryTimeout) for sends the channel has
// not completed within d. Zero leaves timeouts to the channel.
func (mb *MessengerBuilder) WithSendTimeout(d time.Duration) *MessengerBuilder {
	if d >= 0 {
		mb.sendTimeout = d
	}
	return mb
}

// WithRejectEmptyContent makes Send return a ValidationError for empty content.
// Off by default: empty text is sent as typed.
func (mb *MessengerBuilder) WithRejectEmptyContent(reject bool) *MessengerBuilder {
	mb.rejectEmpty = reject
	return mb
}

// WithNotifyBuffer sizes the ordered Sink queue.
func (mb *MessengerBuilder) WithNotifyBuffer(size int) *MessengerBuilder {
	if size > 0 {
		mb.notifyBuffer = size
	}
	return mb
}

// WithObserverPool configures async observer dispatch.
func (mb *MessengerBuilder) WithObserverPool(workers, bufferSize int) *MessengerBuilder {
	if workers > 0 {
		mb.observerWorkers = workers
	}
	if bufferSize > 0 {
		mb.observerBuffer = bufferSize
	}
	return mb
}

func (mb *MessengerBuilder) WithCloseTimeout(d time.Duration) *MessengerBuilder {
	if d > 0 {
		mb.closeTimeout = d
	}
	return mb
}

func (mb *MessengerBuilder) Build() (*Messenger, error) {
	var ch Channel
	var err error

	switch {
	case mb.channelInst != nil:
		ch = mb.channelInst
	case mb.channelName != "":
		ch, err = NewChannel(mb.channelName, mb.channelCfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoChannelConfigured
	}

	clk := mb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := mb.logger
	if lg == nil {
		lg = xlog.Default()
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	m := &Messenger{
		channel:      ch,
		clock:        clk,
		logger:       lg,
		middlewares:  mb.middlewares,
		sendTimeout:  mb.sendTimeout,
		rejectEmpty:  mb.rejectEmpty,
		closeTimeout: mb.closeTimeout,
		notifier:     newNotifier(mb.sink, lg, mb.notifyBuffer),
		observerPool: NewObserverPool(baseCtx, mb.observerWorkers, mb.observerBuffer),
		baseCtx:      baseCtx,
		baseCancel:   cancel,
		metrics:      &messengerMetrics{},
	}

	// Always enable panic recovery first for dependability.
	base := RecoveryMiddleware()(m.forward)
	m.receive = Chain(base, mb.middlewares...)

	// Attach logging observer first unless already supplied externally.
	hasLoggingObserver := false
	for _, o := range mb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver {
		m.AddObserver(LoggingObserver{Logger: lg})
	}
	for _, o := range mb.observers {
		m.AddObserver(o)
	}

	return m, nil
}

// New constructs a Messenger via Builder and returns a close func for convenience.
func New(init func(b *MessengerBuilder)) (*Messenger, func() error, error) {
	b := NewMessengerBuilder()
	if init != nil {
		init(b)
	}
	m, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return m.Close(context.Background()) }
	return m, closeFn, nil
}
