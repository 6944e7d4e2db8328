package models

import (
	"math"
	"time"

	"gaming-rewards-backend/internal/common/errors"
)

// TreasuryAccount is the singleton pool shared across all claimants.
// user_rewards_pool + reserve only grows via harvests and only the pool
// half shrinks via claims; every update is overflow-checked.
type TreasuryAccount struct {
	Authority        string    `json:"authority"`
	UserRewardsPool  uint64    `json:"user_rewards_pool"`
	Reserve          uint64    `json:"reserve"`
	TotalBalance     uint64    `json:"total_balance"`
	TotalDistributed uint64    `json:"total_distributed"`
	LastHarvestAt    time.Time `json:"last_harvest_at"`
}

// UserRewardAccount tracks one identity's claim history and rate window.
type UserRewardAccount struct {
	Identity       string    `json:"identity"`
	LinkedAccount  string    `json:"linked_account"`
	TotalClaimed   uint64    `json:"total_claimed"`
	LastClaimAt    time.Time `json:"last_claim_at"`
	ClaimsInWindow uint32    `json:"claims_in_window"`
	WindowStartAt  time.Time `json:"window_start_at"`
}

// CheckedAdd aborts with ARITHMETIC_OVERFLOW instead of wrapping.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, errors.New(errors.ErrCodeArithmeticOverflow, "u64 addition overflow")
	}
	return a + b, nil
}

// CheckedSub aborts with ARITHMETIC_UNDERFLOW instead of wrapping.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, errors.New(errors.ErrCodeArithmeticUnderflow, "u64 subtraction underflow")
	}
	return a - b, nil
}

// HarvestEvent is emitted after a successful yield harvest.
type HarvestEvent struct {
	Amount       uint64    `json:"amount"`
	UserShare    uint64    `json:"user_share"`
	ReserveShare uint64    `json:"reserve_share"`
	Timestamp    time.Time `json:"timestamp"`
}

// ClaimEvent is emitted after the ledger state is committed and before
// the substrate transfer.
type ClaimEvent struct {
	Identity  string    `json:"identity"`
	Account   string    `json:"account"`
	Amount    uint64    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
