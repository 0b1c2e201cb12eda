package redisstream

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xim"
)

// redisAddr returns the Redis address for integration tests or skips.
func redisAddr(t *testing.T) string {
	addr := os.Getenv("XIM_REDIS_ADDR")
	if addr == "" {
		t.Skip("XIM_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("XIM_REDIS_PASSWORD")})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return addr
}

func TestConfigFromMap_Defaults(t *testing.T) {
	c := ConfigFromMap(nil)
	d := Defaults()

	assert.Equal(t, d.Addr, c.Addr)
	assert.Equal(t, "xim:inbox:", c.InboxPrefix)
	assert.Equal(t, "xim", c.Group)
	assert.Equal(t, "0", c.StartID)
	assert.Equal(t, 5*time.Second, c.Block)
	assert.Equal(t, 2*time.Second, c.SendTimeout)
	assert.Equal(t, "json", c.Codec)
	assert.True(t, c.AutoCreate)
	assert.Equal(t, 128, c.ClaimBatch)
	assert.Empty(t, c.Consumer)
	require.NoError(t, c.Validate())
}

func TestConfig_ConsumerIsStablePerInbox(t *testing.T) {
	c := Defaults()
	assert.Equal(t, "bob", c.consumer("bob"))
	assert.Equal(t, c.consumer("bob"), Defaults().consumer("bob"))

	c.Consumer = "worker-1"
	assert.Equal(t, "worker-1", c.consumer("bob"))
}

func TestConfigFromMap_Overrides(t *testing.T) {
	c := ConfigFromMap(map[string]any{
		"addr":           "redis:6380",
		"inbox_prefix":   "chat:",
		"block":          "250ms",
		"send_timeout":   time.Second,
		"batch_size":     8,
		"dead_letter":    "chat:dlq",
		"max_len_approx": int64(1000),
		"auto_create":    false,
		"tls":            true,
	})

	assert.Equal(t, "redis:6380", c.Addr)
	assert.Equal(t, "chat:", c.InboxPrefix)
	assert.Equal(t, 250*time.Millisecond, c.Block)
	assert.Equal(t, time.Second, c.SendTimeout)
	assert.Equal(t, 8, c.BatchSize)
	assert.Equal(t, "chat:dlq", c.DeadLetter)
	assert.Equal(t, int64(1000), c.MaxLenApprox)
	assert.False(t, c.AutoCreate)
	assert.True(t, c.TLS)
	assert.Equal(t, "chat:bob", c.stream("bob"))
}

func TestConfig_ToMapIsReadBack(t *testing.T) {
	c := Defaults()
	c.InboxPrefix = "p:"
	c.DeadLetter = "dlq"
	c.MaxLenApprox = 50
	c.ClaimMinIdle = time.Minute

	assert.Equal(t, c, ConfigFromMap(c.toMap()))
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]func(c *Config){
		"addr":           func(c *Config) { c.Addr = "" },
		"inbox_prefix":   func(c *Config) { c.InboxPrefix = "" },
		"group":          func(c *Config) { c.Group = "" },
		"claim_batch":    func(c *Config) { c.ClaimBatch = 0 },
		"claim_min_idle": func(c *Config) { c.ClaimMinIdle = -time.Second },
		"batch_size":     func(c *Config) { c.BatchSize = 0 },
		"block":          func(c *Config) { c.Block = 0 },
		"send_timeout":   func(c *Config) { c.SendTimeout = -1 },
		"buffer_size":    func(c *Config) { c.BufferSize = 0 },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			c := Defaults()
			mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestDecodeEntry_FromRedisValues(t *testing.T) {
	codec := xim.JSONCodec{}
	sent := time.Unix(0, 1_700_000_000_000_000_000)
	vals, err := encodeEntry(codec, xim.Message{
		ID:        "m-1",
		Sender:    "alice",
		Recipient: "bob",
		Content:   "hi\nthere",
		SentAt:    sent,
	})
	require.NoError(t, err)

	// go-redis hands every field back as a string
	wire := make(map[string]any, len(vals))
	for k, v := range vals {
		switch x := v.(type) {
		case []byte:
			wire[k] = string(x)
		default:
			wire[k] = fmt.Sprint(x)
		}
	}

	msg, err := decodeEntry(codec, "1700000000000-0", wire)
	require.NoError(t, err)
	assert.Equal(t, "m-1", msg.ID)
	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, "bob", msg.Recipient)
	assert.Equal(t, "hi\nthere", msg.Content)
	assert.True(t, sent.Equal(msg.SentAt))
}

func TestDecodeEntry_FallsBackToOuterFields(t *testing.T) {
	vals := map[string]any{
		fieldPayload: `{"content":"yo"}`,
		fieldSender:  "carol",
		fieldSentAt:  "42",
	}
	msg, err := decodeEntry(xim.JSONCodec{}, "5-0", vals)
	require.NoError(t, err)
	assert.Equal(t, "5-0", msg.ID)
	assert.Equal(t, "carol", msg.Sender)
	assert.Equal(t, "yo", msg.Content)
	assert.Equal(t, int64(42), msg.SentAt.UnixNano())
}

func TestDecodeEntry_Rejects(t *testing.T) {
	_, err := decodeEntry(xim.JSONCodec{}, "1-0", map[string]any{fieldSender: "x"})
	assert.ErrorIs(t, err, errNoPayload)

	_, err = decodeEntry(xim.JSONCodec{}, "1-0", map[string]any{fieldPayload: "{not json"})
	assert.Error(t, err)
}

func TestToInt64(t *testing.T) {
	n, ok := toInt64("123")
	assert.True(t, ok)
	assert.Equal(t, int64(123), n)

	n, ok = toInt64([]byte("7"))
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = toInt64("")
	assert.False(t, ok)
	_, ok = toInt64(struct{}{})
	assert.False(t, ok)
}

func TestNewTransport_InvalidConfig(t *testing.T) {
	c := Defaults()
	c.Addr = ""
	_, err := NewTransport(c)
	require.Error(t, err)

	c = Defaults()
	c.Codec = "nope"
	_, err = NewTransport(c)
	require.Error(t, err)
}

// TestMessenger_RoundTrip exchanges messages between two users through a live Redis.
func TestMessenger_RoundTrip(t *testing.T) {
	addr := redisAddr(t)
	prefix := fmt.Sprintf("xim-test-%d:", time.Now().UnixNano())

	newUser := func(name string, incoming chan<- string) *xim.Messenger {
		cfg := Defaults()
		cfg.Addr = addr
		cfg.Password = os.Getenv("XIM_REDIS_PASSWORD")
		cfg.InboxPrefix = prefix
		cfg.Block = 200 * time.Millisecond

		ch, err := NewTransport(cfg)
		require.NoError(t, err)
		m, err := xim.NewMessengerBuilder().
			WithChannelInstance(ch).
			WithSink(xim.SinkFuncs{
				IncomingMessage: func(sender, content string) { incoming <- sender + ":" + content },
			}).
			Build()
		require.NoError(t, err)
		require.NoError(t, m.SetUsername(name))
		return m
	}

	bobIn := make(chan string, 16)
	alice := newUser("alice", make(chan string, 16))
	bob := newUser("bob", bobIn)
	defer alice.Close(context.Background())
	defer bob.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, alice.Send(ctx, "bob", fmt.Sprintf("m%d", i)))
	}
	for i := 0; i < 5; i++ {
		select {
		case got := <-bobIn:
			assert.Equal(t, fmt.Sprintf("alice:m%d", i), got)
		case <-ctx.Done():
			t.Fatalf("timeout waiting for message %d", i)
		}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("XIM_REDIS_PASSWORD")})
	defer client.Close()
	_ = client.Del(context.Background(), prefix+"alice", prefix+"bob").Err()
}

// TestSubscribe_ReplaysEntriesLeftByCrashedRun reads an entry under another
// consumer without acking it, then checks a fresh subscription delivers it.
func TestSubscribe_ReplaysEntriesLeftByCrashedRun(t *testing.T) {
	addr := redisAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := Defaults()
	cfg.Addr = addr
	cfg.Password = os.Getenv("XIM_REDIS_PASSWORD")
	cfg.InboxPrefix = fmt.Sprintf("xim-test-%d:", time.Now().UnixNano())
	cfg.Block = 200 * time.Millisecond
	stream := cfg.stream("bob")

	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password})
	defer client.Close()
	defer client.Del(context.Background(), stream)

	require.NoError(t, client.XGroupCreateMkStream(ctx, stream, cfg.Group, "0").Err())
	for _, content := range []string{"first", "second"} {
		vals, err := encodeEntry(xim.JSONCodec{}, xim.NewMessage("alice", "bob", content, time.Now()))
		require.NoError(t, err)
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: vals}).Err())
	}
	// A previous run under another consumer name read both and died before XACK.
	_, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    cfg.Group,
		Consumer: "xim-host-1234",
		Streams:  []string{stream, ">"},
		Count:    10,
	}).Result()
	require.NoError(t, err)

	tr, err := NewTransport(cfg)
	require.NoError(t, err)
	defer tr.Close(context.Background())

	got := make(chan string, 4)
	sub, err := tr.Subscribe(ctx, "bob", func(m xim.Message) { got <- m.Content })
	require.NoError(t, err)
	defer sub.Close()

	for _, want := range []string{"first", "second"} {
		select {
		case c := <-got:
			assert.Equal(t, want, c)
		case <-ctx.Done():
			t.Fatalf("pending entry %q not replayed", want)
		}
	}

	require.Eventually(t, func() bool {
		n, err := client.XPending(ctx, stream, cfg.Group).Result()
		return err == nil && n.Count == 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, uint64(2), tr.(*transport).Stats().Claimed)
}
