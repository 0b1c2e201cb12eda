//go:generate go run go.uber.org/mock/mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks
package xim

// Sink is the presentation layer. The messenger calls it from a single goroutine,
// in the order notifications were produced.
//
// Callbacks must not call Send, or block on anything that does: outcomes of
// queued sends wait for this goroutine, so a full queue would never drain.
// Hand replies to another goroutine without blocking.
type Sink interface {
	OnIdentityChanged(name string)
	OnOutgoingResult(recipient string, outcome DeliveryOutcome)
	OnIncomingMessage(sender, content string)
}

// SinkFuncs is an Adapter that lets plain functions satisfy Sink. Nil funcs are skipped.
type SinkFuncs struct {
	IdentityChanged func(name string)
	OutgoingResult  func(recipient string, outcome DeliveryOutcome)
	IncomingMessage func(sender, content string)
}

func (f SinkFuncs) OnIdentityChanged(name string) {
	if f.IdentityChanged != nil {
		f.IdentityChanged(name)
	}
}

func (f SinkFuncs) OnOutgoingResult(recipient string, outcome DeliveryOutcome) {
	if f.OutgoingResult != nil {
		f.OutgoingResult(recipient, outcome)
	}
}

func (f SinkFuncs) OnIncomingMessage(sender, content string) {
	if f.IncomingMessage != nil {
		f.IncomingMessage(sender, content)
	}
}

// NopSink discards every notification.
type NopSink struct{}

func (NopSink) OnIdentityChanged(string)                 {}
func (NopSink) OnOutgoingResult(string, DeliveryOutcome) {}
func (NopSink) OnIncomingMessage(string, string)         {}
