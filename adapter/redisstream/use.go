package redisstream

import (
	"fmt"

	"github.com/trickstertwo/xim"
)

const ChannelName = "redis-streams"

func init() {
	if err := xim.RegisterChannel(ChannelName, func(cfg map[string]any) (xim.Channel, error) {
		return NewTransport(ConfigFromMap(cfg))
	}); err != nil {
		panic(fmt.Errorf("xim: failed to register channel %q: %w", ChannelName, err))
	}
}

// Use builds a Messenger on Redis Streams and sets it as the default, then returns it.
func Use(cfg Config, opts ...Option) *xim.Messenger {
	mb := xim.NewMessengerBuilder().
		WithChannel(ChannelName, cfg.toMap())

	for _, o := range opts {
		if o != nil {
			o(mb)
		}
	}
	m, err := mb.Build()
	if err != nil {
		panic(fmt.Errorf("redisstream.Use: %w", err))
	}

	xim.SetDefault(m)
	return m
}
