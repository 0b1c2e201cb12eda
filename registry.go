package xim

import (
	"errors"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// ChannelFactory constructs delivery channels from a config blob.
type ChannelFactory func(cfg map[string]any) (Channel, error)

var (
	channelRegistryMu sync.RWMutex
	channelRegistry   = map[string]ChannelFactory{}
)

// RegisterChannel registers a delivery channel adapter.
func RegisterChannel(name string, factory ChannelFactory) error {
	if name == "" {
		return errors.New("channel name must not be empty")
	}
	if factory == nil {
		return errors.New("channel factory must not be nil")
	}
	channelRegistryMu.Lock()
	channelRegistry[name] = factory
	channelRegistryMu.Unlock()
	return nil
}

// NewChannel constructs a delivery channel by name with config.
func NewChannel(name string, cfg map[string]any) (Channel, error) {
	channelRegistryMu.RLock()
	f, ok := channelRegistry[name]
	channelRegistryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownChannel{name: name}
	}
	return f(cfg)
}

// Channels lists registered channel names.
func Channels() []string {
	channelRegistryMu.RLock()
	defer channelRegistryMu.RUnlock()
	names := lo.Keys(channelRegistry)
	slices.Sort(names)
	return names
}
