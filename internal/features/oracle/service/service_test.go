package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/features/oracle/models"
	"gaming-rewards-backend/internal/features/oracle/repository/memory"
)

const (
	minStake = uint64(1_000_000_000)
	maxStake = uint64(100_000_000_000)
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.NewRepository(), minStake, maxStake)
}

func testKey(t *testing.T) ed25519.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}

func TestRegisterValidatesStakeBand(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := testKey(t)

	_, err := svc.Register(ctx, "oracle-1", key, minStake-1)
	assert.Equal(t, errors.ErrCodeInsufficientStake, errors.CodeOf(err))

	_, err = svc.Register(ctx, "oracle-1", key, maxStake+1)
	assert.Equal(t, errors.ErrCodeAmountOutOfRange, errors.CodeOf(err))

	acc, err := svc.Register(ctx, "oracle-1", key, minStake)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, acc.Status)
	assert.Equal(t, minStake, acc.Stake)
}

func TestRegisterRejectsBadKey(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), "oracle-1", []byte("short"), minStake)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
}

func TestValidateSignerUnknown(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ValidateSigner(context.Background(), "ghost")
	assert.Equal(t, errors.ErrCodeUntrustedIssuer, errors.CodeOf(err))
}

func TestSlashBelowMinimumDeactivates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "oracle-1", testKey(t), minStake)
	require.NoError(t, err)

	// Slashing the full minimum stake empties the account and flips it
	// to slashed in the same transition.
	remaining, err := svc.Slash(ctx, "oracle-1", minStake)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), remaining)

	acc, err := svc.Get(ctx, "oracle-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSlashed, acc.Status)
	assert.Equal(t, uint32(1), acc.SlashCount)
	assert.False(t, acc.LastSlashAt.IsZero())

	_, err = svc.ValidateSigner(ctx, "oracle-1")
	assert.Equal(t, errors.ErrCodeOracleInactive, errors.CodeOf(err))
}

func TestSlashKeepsActiveAboveMinimum(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "oracle-1", testKey(t), 2*minStake)
	require.NoError(t, err)

	remaining, err := svc.Slash(ctx, "oracle-1", minStake/2)
	require.NoError(t, err)
	assert.Equal(t, 2*minStake-minStake/2, remaining)

	acc, err := svc.ValidateSigner(ctx, "oracle-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, acc.Status)
}

func TestSlashMoreThanStakeAborts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "oracle-1", testKey(t), minStake)
	require.NoError(t, err)

	_, err = svc.Slash(ctx, "oracle-1", minStake+1)
	assert.Equal(t, errors.ErrCodeArithmeticUnderflow, errors.CodeOf(err))

	// The failed slash must not have touched the account.
	acc, err := svc.Get(ctx, "oracle-1")
	require.NoError(t, err)
	assert.Equal(t, minStake, acc.Stake)
	assert.Equal(t, models.StatusActive, acc.Status)
	assert.Equal(t, uint32(0), acc.SlashCount)
}

func TestSlashedStatusIsPermanent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "oracle-1", testKey(t), minStake)
	require.NoError(t, err)

	_, err = svc.Slash(ctx, "oracle-1", 1)
	require.NoError(t, err)

	// Stake is minStake-1: below minimum, account is slashed. Even a
	// later top-up path would not reactivate it.
	acc, err := svc.Get(ctx, "oracle-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSlashed, acc.Status)
}

func TestRecordOutcome(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "oracle-1", testKey(t), minStake)
	require.NoError(t, err)

	require.NoError(t, svc.RecordOutcome(ctx, "oracle-1", true))
	require.NoError(t, svc.RecordOutcome(ctx, "oracle-1", true))
	require.NoError(t, svc.RecordOutcome(ctx, "oracle-1", false))

	acc, err := svc.Get(ctx, "oracle-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), acc.SuccessfulVerifications)
	assert.Equal(t, uint64(1), acc.FailedVerifications)
	assert.Equal(t, int64(1), acc.Reputation)

	// Unknown attestors are ignored, not an error.
	assert.NoError(t, svc.RecordOutcome(ctx, "ghost", true))
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "oracle-1", testKey(t), minStake)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "oracle-1", testKey(t), minStake)
	assert.Error(t, err)
}
