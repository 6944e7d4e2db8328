package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/features/staking/models"
)

func newClockedService() (*Service, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(24*time.Hour, 720*time.Hour).WithClock(func() time.Time { return now })
	return svc, &now
}

func TestEarlyUnstakeKeepsBaseMultiplier(t *testing.T) {
	svc, now := newClockedService()
	ctx := context.Background()

	_, err := svc.StartStaking(ctx, "alice", 1000, 0)
	require.NoError(t, err)

	// 10 hours in: below the first threshold.
	*now = now.Add(10 * time.Hour)
	res, err := svc.Unstake(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), res.Principal)
	assert.Equal(t, uint64(models.MultiplierBase), res.Multiplier)
	assert.Equal(t, uint64(1000), res.Payout)
}

func TestMediumTierAtOneDay(t *testing.T) {
	svc, now := newClockedService()
	ctx := context.Background()

	_, err := svc.StartStaking(ctx, "alice", 1000, 0)
	require.NoError(t, err)

	*now = now.Add(24 * time.Hour)
	res, err := svc.Unstake(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(models.MultiplierMedium), res.Multiplier)
	assert.Equal(t, uint64(1200), res.Payout)
}

func TestLongTierAtThirtyDays(t *testing.T) {
	svc, now := newClockedService()
	ctx := context.Background()

	_, err := svc.StartStaking(ctx, "alice", 1000, 0)
	require.NoError(t, err)

	// 40 days: well past the long threshold.
	*now = now.Add(40 * 24 * time.Hour)
	res, err := svc.Unstake(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(models.MultiplierLong), res.Multiplier)
	assert.Equal(t, uint64(1500), res.Payout)
}

func TestMultiplierEarnedByElapsedTimeNotIntent(t *testing.T) {
	svc, now := newClockedService()
	ctx := context.Background()

	// Declaring a long lock does not buy the long multiplier.
	pos, err := svc.StartStaking(ctx, "alice", 1000, 720*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.TierLong, pos.LockTier)

	*now = now.Add(time.Hour)
	res, err := svc.Unstake(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(models.MultiplierBase), res.Multiplier)
}

func TestOnePositionPerIdentity(t *testing.T) {
	svc, _ := newClockedService()
	ctx := context.Background()

	_, err := svc.StartStaking(ctx, "alice", 1000, 0)
	require.NoError(t, err)

	_, err = svc.StartStaking(ctx, "alice", 500, 0)
	assert.Equal(t, errors.ErrCodeAlreadyStaking, errors.CodeOf(err))

	// Unstaking frees the slot.
	_, err = svc.Unstake(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.StartStaking(ctx, "alice", 500, 0)
	assert.NoError(t, err)
}

func TestUnstakeWithoutPosition(t *testing.T) {
	svc, _ := newClockedService()

	_, err := svc.Unstake(context.Background(), "nobody")
	assert.Equal(t, errors.ErrCodeNoActivePosition, errors.CodeOf(err))
}

func TestZeroAmountRejected(t *testing.T) {
	svc, _ := newClockedService()

	_, err := svc.StartStaking(context.Background(), "alice", 0, 0)
	assert.Equal(t, errors.ErrCodeAmountOutOfRange, errors.CodeOf(err))
}

func TestPositionSnapshot(t *testing.T) {
	svc, _ := newClockedService()
	ctx := context.Background()

	pos, err := svc.Position(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, pos)

	_, err = svc.StartStaking(ctx, "alice", 1000, 0)
	require.NoError(t, err)

	pos, err = svc.Position(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, uint64(1000), pos.Amount)
}
