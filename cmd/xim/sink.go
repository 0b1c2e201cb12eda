package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/gookit/color"

	"github.com/trickstertwo/xim"
)

var (
	styleInfo     = color.New(color.FgCyan)
	styleIncoming = color.New(color.FgGreen, color.OpBold)
	styleOK       = color.New(color.FgGreen)
	styleFail     = color.New(color.FgRed)
)

// consoleSink prints messenger notifications as one line each.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

var _ xim.Sink = (*consoleSink)(nil)

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out}
}

func (s *consoleSink) println(style color.Style, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, style.Render(fmt.Sprintf(format, args...)))
}

func (s *consoleSink) OnIdentityChanged(name string) {
	s.println(styleInfo, "* you are now %s", name)
}

func (s *consoleSink) OnOutgoingResult(recipient string, outcome xim.DeliveryOutcome) {
	if outcome.IsDelivered() {
		s.println(styleOK, "-> %s: delivered", recipient)
		return
	}
	s.println(styleFail, "-> %s: %v", recipient, outcome.Err())
}

// OnIncomingMessage prints the content verbatim after the sender prefix.
func (s *consoleSink) OnIncomingMessage(sender, content string) {
	s.println(styleIncoming, "<%s> %s", sender, content)
}
