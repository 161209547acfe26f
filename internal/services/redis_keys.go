package services

import "time"

const (
	KeyRound        = "round:%s"
	KeyClientRounds = "client:%s:rounds"
	KeyRateLimit    = "ratelimit:%s:%s"

	// Round history only lives as long as a play session can.
	TTLRound = 24 * time.Hour

	MaxRoundHistory = 100

	DefaultRateLimitBets = 30 // Max 30 bets per minute
)
