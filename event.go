package xim

import "time"

// EventType enumerates internal lifecycle events for Observer pattern.
type EventType string

const (
	SendStart       EventType = "send_start"
	SendDone        EventType = "send_done"
	Incoming        EventType = "incoming"
	IdentityChanged EventType = "identity_changed"
	Error           EventType = "error"
)

// Event carries telemetry for observers.
type Event struct {
	Type      EventType
	Sender    string
	Recipient string
	MessageID string
	Outcome   OutcomeStatus
	Duration  time.Duration
	Err       error

	// Internal: attached for async dispatch
	observers []Observer
}
