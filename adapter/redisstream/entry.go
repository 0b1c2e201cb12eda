package redisstream

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/trickstertwo/xim"
)

var errNoPayload = errors.New("redisstream: entry has no payload")

// envelope is the codec-encoded body of a stream entry.
type envelope struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	SentAt    int64  `json:"sent_at"`
}

// encodeEntry flattens a message into XADD values. id/sender/sentAt are
// duplicated outside the payload for inspection with XRANGE.
func encodeEntry(c xim.Codec, msg xim.Message) (map[string]any, error) {
	data, err := c.Marshal(envelope{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Content:   msg.Content,
		SentAt:    msg.SentAt.UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("redisstream: encode: %w", err)
	}
	return map[string]any{
		fieldID:      msg.ID,
		fieldSender:  msg.Sender,
		fieldPayload: data,
		fieldSentAt:  msg.SentAt.UnixNano(),
		fieldCodec:   c.Name(),
	}, nil
}

// decodeEntry reconstructs a message from Redis stream entry values.
// The stream ID stands in when the envelope carries no message ID.
func decodeEntry(c xim.Codec, streamID string, vals map[string]any) (xim.Message, error) {
	raw, ok := vals[fieldPayload]
	if !ok {
		return xim.Message{}, errNoPayload
	}
	var data []byte
	switch p := raw.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	default:
		data = []byte(asString(p))
	}

	env, err := xim.DecodeCodec[envelope](c, data)
	if err != nil {
		return xim.Message{}, fmt.Errorf("redisstream: decode %s: %w", streamID, err)
	}

	msg := xim.Message{
		ID:        env.ID,
		Sender:    env.Sender,
		Recipient: env.Recipient,
		Content:   env.Content,
	}
	if msg.ID == "" {
		msg.ID = streamID
	}
	if msg.Sender == "" {
		msg.Sender = asString(vals[fieldSender])
	}
	ns := env.SentAt
	if ns == 0 {
		ns, _ = toInt64(vals[fieldSentAt])
	}
	if ns > 0 {
		msg.SentAt = time.Unix(0, ns)
	}
	return msg, nil
}

// Helper functions for type conversion

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		if n == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	case []byte:
		return toInt64(string(n))
	}
	return 0, false
}
