package xim

import (
	"fmt"
	"time"
)

// OutcomeStatus tags a DeliveryOutcome.
type OutcomeStatus string

const (
	StatusDelivered OutcomeStatus = "delivered"
	StatusFailed    OutcomeStatus = "failed"
)

// DeliveryOutcome is the result of an attempted send: Delivered or Failed(reason).
type DeliveryOutcome struct {
	Status OutcomeStatus
	Reason error
}

// Delivered reports a successful hand-off to the recipient.
func Delivered() DeliveryOutcome {
	return DeliveryOutcome{Status: StatusDelivered}
}

// Failed reports a transport-level failure. A nil reason is recorded as "unknown".
func Failed(reason error) DeliveryOutcome {
	if reason == nil {
		reason = errUnknownReason
	}
	return DeliveryOutcome{Status: StatusFailed, Reason: reason}
}

func (o DeliveryOutcome) IsDelivered() bool { return o.Status == StatusDelivered }

// Err returns a *DeliveryError for failed outcomes and nil otherwise.
func (o DeliveryOutcome) Err() error {
	if o.IsDelivered() {
		return nil
	}
	return &DeliveryError{Reason: o.Reason}
}

// String renders the outcome as a displayable line.
func (o DeliveryOutcome) String() string {
	if o.IsDelivered() {
		return string(StatusDelivered)
	}
	return fmt.Sprintf("%s: %v", StatusFailed, o.Reason)
}

// PoolStats returns telemetry about the observer pool.
type PoolStats struct {
	Dropped      uint64 // Events dropped due to full buffer
	Processed    uint64 // Events successfully processed
	ActiveEvents int    // Current queue depth
	Workers      int    // Number of dispatch goroutines
	BufferSize   int    // Channel capacity
}

// Metrics defines observable telemetry for the messenger.
type Metrics struct {
	Sent                uint64
	Delivered           uint64
	Failed              uint64
	Received            uint64
	Rejected            uint64
	Errors              uint64
	EventsDropped       uint64
	AvgDeliveryTimeMs   float64
	PendingNotification int
}

// HealthStatus indicates messenger health for probes.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}
