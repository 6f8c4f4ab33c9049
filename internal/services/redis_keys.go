package services

import "time"

const (
	KeyCurrentRound = "round:current"
	KeyUserSession  = "user:%s:session:%s"
	KeyRateLimit    = "ratelimit:%s:%s"

	// The cache is best-effort; the TTL only bounds staleness if the
	// durable store stops refreshing it.
	TTLCurrentRound = time.Hour
	TTLUserSession  = 24 * time.Hour

	ActionJoin     = "join"
	ActionDeposit  = "deposit"
	ActionWithdraw = "withdraw"
)
