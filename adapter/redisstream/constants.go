package redisstream

// Field constants (avoid typos/allocs)
const (
	fieldID      = "id"
	fieldSender  = "sender"
	fieldPayload = "payload" // codec-encoded envelope
	fieldSentAt  = "sentAt"  // int64 ns
	fieldCodec   = "codec"
)
