package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming-rewards-backend/internal/common/config"
	"gaming-rewards-backend/internal/common/errors"
	fraudsvc "gaming-rewards-backend/internal/features/fraud/service"
	"gaming-rewards-backend/internal/features/treasury/repository/memory"
	"gaming-rewards-backend/internal/platform/ton"
)

// openGate admits every identity and settles to a fixed account.
type openGate struct {
	account string
	err     error
}

func (g *openGate) ClaimAccount(context.Context, string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.account, nil
}

type treasuryFixture struct {
	svc       *Service
	substrate *ton.MemorySubstrate
	gate      *openGate
	limits    config.Limits
	now       time.Time
}

func newTreasuryFixture(t *testing.T) *treasuryFixture {
	t.Helper()

	f := &treasuryFixture{
		substrate: ton.NewMemorySubstrate(),
		gate:      &openGate{account: "EQtest-account"},
		limits:    config.DefaultLimits(),
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	limiter := fraudsvc.NewLimiter(f.limits.RateWindow, f.limits.RateCeiling, nil)
	f.svc = NewService(memory.NewRepository("authority"), f.gate, limiter, f.substrate, NopEvents{}, f.limits).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *treasuryFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestAddYieldSplitsEvenAmount(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	ev, err := f.svc.AddYield(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), ev.UserShare)
	assert.Equal(t, uint64(500), ev.ReserveShare)

	acc, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), acc.UserRewardsPool)
	assert.Equal(t, uint64(500), acc.Reserve)
	assert.Equal(t, uint64(1000), acc.TotalBalance)
}

func TestAddYieldOddRemainderGoesToReserve(t *testing.T) {
	f := newTreasuryFixture(t)

	ev, err := f.svc.AddYield(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), ev.UserShare)
	assert.Equal(t, uint64(501), ev.ReserveShare)
}

func TestAddYieldAmountBounds(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddYield(ctx, 0)
	assert.Equal(t, errors.ErrCodeAmountOutOfRange, errors.CodeOf(err))

	_, err = f.svc.AddYield(ctx, f.limits.MaxHarvestAmount+1)
	assert.Equal(t, errors.ErrCodeAmountOutOfRange, errors.CodeOf(err))

	_, err = f.svc.AddYield(ctx, f.limits.MaxHarvestAmount)
	assert.NoError(t, err)
}

func TestAddYieldIntervalEnforced(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddYield(ctx, 1000)
	require.NoError(t, err)

	f.advance(f.limits.HarvestInterval - time.Second)
	_, err = f.svc.AddYield(ctx, 1000)
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeHarvestTooFrequent, appErr.Code)
	assert.Contains(t, appErr.Details, "retry_after")

	f.advance(time.Second)
	_, err = f.svc.AddYield(ctx, 1000)
	assert.NoError(t, err)
}

func TestClaimHappyPath(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddYield(ctx, 1000)
	require.NoError(t, err)

	ev, err := f.svc.Claim(ctx, "alice", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), ev.Amount)
	assert.Equal(t, "EQtest-account", ev.Account)

	acc, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), acc.UserRewardsPool)
	assert.Equal(t, uint64(500), acc.Reserve, "claims never touch the reserve")
	assert.Equal(t, uint64(100), acc.TotalDistributed)

	user, err := f.svc.UserAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), user.TotalClaimed)
	assert.Equal(t, uint32(1), user.ClaimsInWindow)

	transfers := f.substrate.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, "EQtest-account", transfers[0].Ref)
	assert.Equal(t, uint64(100), transfers[0].Amount)
}

func TestClaimOverdrawRejected(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddYield(ctx, 1000)
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, "alice", 501)
	assert.Equal(t, errors.ErrCodeInsufficientPool, errors.CodeOf(err))

	// The failed claim must leave the ledger and the user untouched.
	acc, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), acc.UserRewardsPool)
	assert.Equal(t, uint64(0), acc.TotalDistributed)

	user, err := f.svc.UserAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, f.substrate.Transfers())
}

func TestClaimAmountBoundary(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	// Enough pool to cover the maximum single claim.
	_, err := f.svc.AddYield(ctx, 2*f.limits.MaxClaimAmount)
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, "alice", f.limits.MaxClaimAmount+1)
	assert.Equal(t, errors.ErrCodeAmountOutOfRange, errors.CodeOf(err))

	_, err = f.svc.Claim(ctx, "alice", 0)
	assert.Equal(t, errors.ErrCodeAmountOutOfRange, errors.CodeOf(err))

	_, err = f.svc.Claim(ctx, "alice", f.limits.MaxClaimAmount)
	assert.NoError(t, err)
}

func TestClaimSpacingEnforced(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddYield(ctx, 10_000)
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, "alice", 100)
	require.NoError(t, err)

	// 100 seconds later: under the 300s minimum spacing.
	f.advance(100 * time.Second)
	_, err = f.svc.Claim(ctx, "alice", 100)
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeClaimTooFrequent, appErr.Code)
	assert.Equal(t, "3m20s", appErr.Details["retry_after"])

	// 300 seconds after the first claim: allowed again.
	f.advance(200 * time.Second)
	_, err = f.svc.Claim(ctx, "alice", 100)
	assert.NoError(t, err)
}

func TestClaimWindowExhausted(t *testing.T) {
	f := newTreasuryFixture(t)
	f.limits.MaxClaimsPerWindow = 2
	f.limits.MinTimeBetweenClaims = 0
	limiter := fraudsvc.NewLimiter(f.limits.RateWindow, f.limits.RateCeiling, nil)
	f.svc = NewService(memory.NewRepository("authority"), f.gate, limiter, f.substrate, NopEvents{}, f.limits).
		WithClock(func() time.Time { return f.now })
	ctx := context.Background()

	_, err := f.svc.AddYield(ctx, 10_000)
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, "alice", 10)
	require.NoError(t, err)
	f.advance(time.Second)
	_, err = f.svc.Claim(ctx, "alice", 10)
	require.NoError(t, err)

	f.advance(time.Second)
	_, err = f.svc.Claim(ctx, "alice", 10)
	assert.Equal(t, errors.ErrCodeRateLimited, errors.CodeOf(err))

	// The window rolls over relative to its start, not the last claim.
	f.advance(f.limits.ClaimRateLimitWindow)
	_, err = f.svc.Claim(ctx, "alice", 10)
	assert.NoError(t, err)
}

func TestClaimGateDenied(t *testing.T) {
	f := newTreasuryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddYield(ctx, 1000)
	require.NoError(t, err)

	f.gate.err = errors.New(errors.ErrCodeInsufficientVerification, "score too low")
	_, err = f.svc.Claim(ctx, "alice", 100)
	assert.Equal(t, errors.ErrCodeInsufficientVerification, errors.CodeOf(err))

	acc, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), acc.UserRewardsPool)
	assert.Empty(t, f.substrate.Transfers())
}

// Conservation: across any interleaving of harvests and claims,
// pool + reserve + distributed equals everything ever harvested.
func TestConservationAcrossOperations(t *testing.T) {
	f := newTreasuryFixture(t)
	f.limits.MinTimeBetweenClaims = 0
	f.limits.HarvestInterval = 0
	limiter := fraudsvc.NewLimiter(f.limits.RateWindow, 10_000, nil)
	f.svc = NewService(memory.NewRepository("authority"), f.gate, limiter, f.substrate, NopEvents{}, f.limits).
		WithClock(func() time.Time { return f.now })
	ctx := context.Background()

	var harvested uint64
	for i := 0; i < 10; i++ {
		amount := uint64(1000 + i*7)
		_, err := f.svc.AddYield(ctx, amount)
		require.NoError(t, err)
		harvested += amount
		f.advance(time.Second)

		_, err = f.svc.Claim(ctx, "alice", uint64(50+i))
		require.NoError(t, err)
		f.advance(time.Second)
	}

	acc, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, harvested, acc.UserRewardsPool+acc.Reserve+acc.TotalDistributed)
	assert.Equal(t, harvested, acc.TotalBalance)
}

// Concurrent claimants can never overdraw the pool.
func TestConcurrentClaimsNeverOverdraw(t *testing.T) {
	f := newTreasuryFixture(t)
	f.limits.MinTimeBetweenClaims = 0
	limiter := fraudsvc.NewLimiter(f.limits.RateWindow, 10_000, nil)
	f.svc = NewService(memory.NewRepository("authority"), f.gate, limiter, f.substrate, NopEvents{}, f.limits).
		WithClock(func() time.Time { return f.now })
	ctx := context.Background()

	_, err := f.svc.AddYield(ctx, 1000) // pool = 500
	require.NoError(t, err)

	const claimants = 20
	var wg sync.WaitGroup
	results := make(chan error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		identity := string(rune('a' + i))
		go func() {
			defer wg.Done()
			_, err := f.svc.Claim(ctx, identity, 100)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, errors.ErrCodeInsufficientPool, errors.CodeOf(err))
		}
	}
	assert.Equal(t, 5, succeeded, "exactly pool/amount claims can succeed")

	acc, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), acc.UserRewardsPool)
	assert.Equal(t, uint64(500), acc.TotalDistributed)
}
