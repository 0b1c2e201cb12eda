package redisstream

import (
	"fmt"
	"time"
)

// Config for the Redis Streams channel.
type Config struct {
	// Connection
	Addr          string
	Username      string
	Password      string
	DB            int
	TLS           bool
	TLSServerName string

	// Inbox layout
	InboxPrefix string
	Group       string
	// Consumer names the group reader. Empty means the inbox name, which
	// stays the same across restarts so pending entries are replayed.
	Consumer string
	StartID  string

	// Recovery: entries pending under other consumer names are claimed on
	// subscribe once idle for ClaimMinIdle.
	ClaimMinIdle time.Duration
	ClaimBatch   int

	// Reading
	BatchSize int
	Block     time.Duration

	// Sending
	SendTimeout time.Duration
	BufferSize  int
	Codec       string

	// Stream management
	AutoCreate      bool
	AutoDeleteOnAck bool
	DeadLetter      string
	MaxLenApprox    int64
}

// Defaults returns a Config with production-safe defaults.
func Defaults() Config {
	return Config{
		Addr:        "127.0.0.1:6379",
		InboxPrefix: "xim:inbox:",
		Group:       "xim",
		StartID:     "0",
		ClaimBatch:  128,
		BatchSize:   64,
		Block:       5 * time.Second,
		SendTimeout: 2 * time.Second,
		BufferSize:  1024,
		Codec:       "json",
		AutoCreate:  true,
	}
}

// Validate checks Config before connecting.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr required")
	}
	if c.InboxPrefix == "" {
		return fmt.Errorf("config: inbox_prefix required")
	}
	if c.Group == "" {
		return fmt.Errorf("config: group required")
	}
	if c.ClaimBatch < 1 {
		return fmt.Errorf("config: claim_batch must be >= 1, got %d", c.ClaimBatch)
	}
	if c.ClaimMinIdle < 0 {
		return fmt.Errorf("config: claim_min_idle must be >= 0, got %v", c.ClaimMinIdle)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("config: batch_size must be >= 1, got %d", c.BatchSize)
	}
	if c.Block <= 0 {
		return fmt.Errorf("config: block must be > 0, got %v", c.Block)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("config: send_timeout must be > 0, got %v", c.SendTimeout)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("config: buffer_size must be >= 1, got %d", c.BufferSize)
	}
	return nil
}

// stream returns the inbox stream key for a user.
func (c Config) stream(inbox string) string {
	return c.InboxPrefix + inbox
}

// consumer returns the group reader name for an inbox.
func (c Config) consumer(inbox string) string {
	if c.Consumer != "" {
		return c.Consumer
	}
	return inbox
}

// toMap converts Config to generic map for the channel factory.
func (c Config) toMap() map[string]any {
	return map[string]any{
		"addr":               c.Addr,
		"username":           c.Username,
		"password":           c.Password,
		"db":                 c.DB,
		"tls":                c.TLS,
		"tls_server_name":    c.TLSServerName,
		"inbox_prefix":       c.InboxPrefix,
		"group":              c.Group,
		"consumer":           c.Consumer,
		"start_id":           c.StartID,
		"claim_min_idle":     c.ClaimMinIdle,
		"claim_batch":        c.ClaimBatch,
		"batch_size":         c.BatchSize,
		"block":              c.Block,
		"send_timeout":       c.SendTimeout,
		"buffer_size":        c.BufferSize,
		"codec":              c.Codec,
		"auto_create":        c.AutoCreate,
		"auto_delete_on_ack": c.AutoDeleteOnAck,
		"dead_letter":        c.DeadLetter,
		"max_len_approx":     c.MaxLenApprox,
	}
}

// ConfigFromMap safely converts generic map to Config with defaults.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	getDur := func(k string) (time.Duration, bool) {
		switch v := m[k].(type) {
		case time.Duration:
			return v, true
		case string:
			if p, err := time.ParseDuration(v); err == nil {
				return p, true
			}
		}
		return 0, false
	}

	if v, ok := m["addr"].(string); ok && v != "" {
		c.Addr = v
	}
	if v, ok := m["username"].(string); ok {
		c.Username = v
	}
	if v, ok := m["password"].(string); ok {
		c.Password = v
	}
	if v, ok := m["db"].(int); ok {
		c.DB = v
	}
	if v, ok := m["tls"].(bool); ok {
		c.TLS = v
	}
	if v, ok := m["tls_server_name"].(string); ok {
		c.TLSServerName = v
	}
	if v, ok := m["inbox_prefix"].(string); ok && v != "" {
		c.InboxPrefix = v
	}
	if v, ok := m["group"].(string); ok && v != "" {
		c.Group = v
	}
	if v, ok := m["consumer"].(string); ok && v != "" {
		c.Consumer = v
	}
	if v, ok := m["start_id"].(string); ok && v != "" {
		c.StartID = v
	}
	if v, ok := getDur("claim_min_idle"); ok && v >= 0 {
		c.ClaimMinIdle = v
	}
	if v, ok := m["claim_batch"].(int); ok && v > 0 {
		c.ClaimBatch = v
	}
	if v, ok := m["batch_size"].(int); ok && v > 0 {
		c.BatchSize = v
	}
	if v, ok := getDur("block"); ok && v > 0 {
		c.Block = v
	}
	if v, ok := getDur("send_timeout"); ok && v > 0 {
		c.SendTimeout = v
	}
	if v, ok := m["buffer_size"].(int); ok && v > 0 {
		c.BufferSize = v
	}
	if v, ok := m["codec"].(string); ok && v != "" {
		c.Codec = v
	}
	if v, ok := m["auto_create"].(bool); ok {
		c.AutoCreate = v
	}
	if v, ok := m["auto_delete_on_ack"].(bool); ok {
		c.AutoDeleteOnAck = v
	}
	if v, ok := m["dead_letter"].(string); ok {
		c.DeadLetter = v
	}
	if v, ok := m["max_len_approx"].(int64); ok && v > 0 {
		c.MaxLenApprox = v
	}

	return c
}
