package xim

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("xim: validation failed")
	// ErrDelivery matches every *DeliveryError via errors.Is.
	ErrDelivery = errors.New("xim: delivery failed")

	ErrNoIdentity                     = errors.New("xim: username not set")
	ErrMessengerClosed                = errors.New("xim: messenger is closed")
	ErrDeliveryTimeout                = errors.New("xim: delivery timed out")
	ErrNoChannelConfigured            = errors.New("xim: no delivery channel configured")
	ErrObserverPoolShutdownTimeout    = errors.New("xim: observer pool shutdown timed out")
	ErrDefaultMessengerNotInitialized = errors.New("xim: default messenger not initialized")
	errUnknownReason                  = errors.New("unknown reason")
)

// ValidationError is returned synchronously when caller input is rejected.
type ValidationError struct {
	Field  string
	Reason string
	// Err is an optional sentinel the rejection also matches.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("xim: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// DeliveryError wraps an opaque transport failure.
type DeliveryError struct {
	Reason error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("xim: delivery failed: %v", e.Reason)
}

func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

func (e *DeliveryError) Unwrap() error { return e.Reason }

type ErrUnknownChannel struct{ name string }

func (e ErrUnknownChannel) Error() string { return fmt.Sprintf("unknown delivery channel: %s", e.name) }
