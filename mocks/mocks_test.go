package mocks

import "github.com/trickstertwo/xim"

var (
	_ xim.Channel      = (*MockChannel)(nil)
	_ xim.Subscription = (*MockSubscription)(nil)
	_ xim.Sink         = (*MockSink)(nil)
)
