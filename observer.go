package xim

import (
	"github.com/trickstertwo/xlog"
)

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LoggingObserver is an Adapter that emits messenger events via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("sender", e.Sender),
		xlog.Str("recipient", e.Recipient),
		xlog.Str("message_id", e.MessageID),
	)
	switch {
	case e.Type == Error, e.Outcome == StatusFailed:
		ev.Warn().Err(e.Err).Msg("xim event")
	default:
		if e.Outcome != "" {
			ev = ev.With(xlog.Str("outcome", string(e.Outcome)))
		}
		if e.Duration > 0 {
			ev = ev.With(xlog.Dur("duration", e.Duration))
		}
		ev.Debug().Msg("xim event")
	}
}
