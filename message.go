package xim

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single point-to-point chat message. It is immutable once built:
// the core never changes a Message after NewMessage returns it.
type Message struct {
	// ID is a unique message identifier assigned at construction.
	ID string
	// Sender is the display name of the local user at send time.
	Sender string
	// Recipient identifies the target inbox. Never empty.
	Recipient string
	// Content is the text as typed, possibly empty.
	Content string
	// SentAt is the construction timestamp (from injected clock).
	SentAt time.Time
}

// NewMessage builds a Message with a fresh ID.
func NewMessage(sender, recipient, content string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		SentAt:    at,
	}
}
