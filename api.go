package xim

import (
	"context"
	"io"
)

// Observer receives messenger lifecycle events. Implementations should be non-blocking.
type Observer interface {
	OnEvent(e Event)
}

// HealthChecker provides health status for production monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API is the surface a presentation layer talks to.
type API interface {
	SetUsername(name string) error
	CurrentUsername() (string, bool)
	Send(ctx context.Context, recipient, content string) error
	SendFile(ctx context.Context, recipient string, r io.Reader) error
	Close(ctx context.Context) error
	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

var _ API = (*Messenger)(nil)
var _ HealthChecker = (*Messenger)(nil)
