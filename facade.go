package xim

import (
	"context"
	"sync"
)

var (
	defaultMessenger   *Messenger
	defaultMessengerMu sync.Mutex
)

// Default returns the process-wide Messenger installed by SetDefault or an adapter's Use.
func Default() (*Messenger, error) {
	defaultMessengerMu.Lock()
	defer defaultMessengerMu.Unlock()

	if defaultMessenger == nil {
		return nil, ErrDefaultMessengerNotInitialized
	}
	return defaultMessenger, nil
}

// SetDefault replaces the process-wide default Messenger.
func SetDefault(m *Messenger) {
	if m == nil {
		panic("xim: SetDefault called with nil Messenger")
	}
	defaultMessengerMu.Lock()
	defaultMessenger = m
	defaultMessengerMu.Unlock()
}

// SetUsername is the Facade using the default messenger.
func SetUsername(name string) error {
	m, err := Default()
	if err != nil {
		return err
	}
	return m.SetUsername(name)
}

// Send is the Facade using the default messenger.
func Send(ctx context.Context, recipient, content string) error {
	m, err := Default()
	if err != nil {
		return err
	}
	return m.Send(ctx, recipient, content)
}
