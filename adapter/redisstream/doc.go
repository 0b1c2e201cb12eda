// Package redisstream provides a Redis Streams delivery channel for xim.
//
// Channel name: "redis-streams"
//
// Every user owns one inbox stream, "<inbox_prefix><username>". Sending is an
// XADD onto the recipient's stream; receiving is an XREADGROUP loop on the
// local user's stream followed by XACK. Messages sent while the recipient is
// offline wait in the stream and are read on the next subscription.
//
// Minimal config keys:
// - addr: "host:port" (default "127.0.0.1:6379")
// - inbox_prefix: stream name prefix (default "xim:inbox:")
// - group: consumer group name (default "xim")
// - consumer: consumer name (default "xim-<hostname>-<pid>")
// - batch_size: XREADGROUP COUNT (default 64)
// - block: XREADGROUP BLOCK duration (default 5s)
// - send_timeout: per-XADD timeout (default 2s)
// - codec: envelope codec name (default "json")
// - dead_letter: stream name for undecodable entries (optional)
//
// Example builder usage:
//
//	m, _ := xim.NewMessengerBuilder().
//	    WithChannel(redisstream.ChannelName, map[string]any{
//	        "addr":         "localhost:6379",
//	        "inbox_prefix": "chat:inbox:",
//	        "block":        "2s",
//	        "dead_letter":  "chat:dlq",
//	    }).
//	    WithSink(sink).
//	    Build()
package redisstream
