package xim

import (
	"strings"
	"sync"
)

// Identity holds the local user's display name for the session lifetime.
type Identity struct {
	mu   sync.RWMutex
	name string
	set  bool
}

// ValidateUsername rejects empty and whitespace-only names.
func ValidateUsername(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "username", Reason: "must not be empty"}
	}
	return nil
}

// Set replaces the current name. On error the previous name is kept.
func (r *Identity) Set(name string) error {
	if err := ValidateUsername(name); err != nil {
		return err
	}
	r.mu.Lock()
	r.name = name
	r.set = true
	r.mu.Unlock()
	return nil
}

// Current returns the name and whether one has been set.
func (r *Identity) Current() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name, r.set
}
