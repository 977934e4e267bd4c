package constants

import "time"

// Redis keys
const (
	RedisKeyRecentEvents = "ledger:recent"
)

// Redis Pub/Sub channels
const (
	ChannelAllEvents         = "ledger:all"
	ChannelInstructionPrefix = "ledger:ix:"
	ChannelAccountPrefix     = "ledger:account:"
)

// Limits
const (
	MaxRecentEvents    = 100
	MaxTransactionSize = 1232 // bytes, the Solana packet limit
)

// Timeouts
const (
	EventPublishTimeout = 3 * time.Second
)

// Policy flag keys
const (
	FlagAllowOversubscription        = "launch.allow_oversubscription"
	FlagAllowUndersubscribedFinalize = "launch.allow_undersubscribed_finalize"
)
