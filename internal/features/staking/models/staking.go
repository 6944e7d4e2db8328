package models

import "time"

type LockTier string

const (
	TierFlexible LockTier = "flexible" // < minimum period, no bonus
	TierMedium   LockTier = "medium"   // >= minimum period
	TierLong     LockTier = "long"     // >= maximum period
)

// Multipliers in basis points of 100: 100 = x1.00.
const (
	MultiplierBase   = 100
	MultiplierMedium = 120
	MultiplierLong   = 150
)

// Position is the zero-or-one active staking position per user.
type Position struct {
	Identity string    `json:"identity"`
	Amount   uint64    `json:"amount"`
	StartAt  time.Time `json:"start_at"`
	LockTier LockTier  `json:"lock_tier"`
}

// UnstakeResult reports the released principal and the bonus multiplier
// earned by the elapsed duration.
type UnstakeResult struct {
	Principal  uint64 `json:"principal"`
	Multiplier uint64 `json:"multiplier"` // basis points of 100
	Payout     uint64 `json:"payout"`
}
