package service

import (
	"context"
	"crypto/ed25519"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/logger"
	"gaming-rewards-backend/internal/features/oracle/models"
	"gaming-rewards-backend/internal/features/oracle/repository"
)

// Service is the oracle registry: staked attestor identities, their
// reputation and slashing. Attestations are only trusted while the signer
// is active and sufficiently staked.
type Service struct {
	repo     repository.Repository
	minStake uint64
	maxStake uint64
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(repo repository.Repository, minStake, maxStake uint64) *Service {
	return &Service{
		repo:     repo,
		minStake: minStake,
		maxStake: maxStake,
		now:      time.Now,
		log:      logger.For("oracle.registry"),
	}
}

// Register creates an active attestor account with its initial stake.
func (s *Service) Register(ctx context.Context, attestorID string, publicKey ed25519.PublicKey, stake uint64) (*models.Account, error) {
	if attestorID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "empty attestor id")
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, errors.New(errors.ErrCodeValidation, "attestor public key must be 32 bytes")
	}
	if stake < s.minStake {
		return nil, errors.Newf(errors.ErrCodeInsufficientStake,
			"stake %d below minimum %d", stake, s.minStake).
			WithDetail("min_stake", s.minStake)
	}
	if stake > s.maxStake {
		return nil, errors.Newf(errors.ErrCodeAmountOutOfRange,
			"stake %d above maximum %d", stake, s.maxStake)
	}

	acc := &models.Account{
		AttestorID:   attestorID,
		PublicKey:    publicKey,
		Stake:        stake,
		Status:       models.StatusActive,
		RegisteredAt: s.now(),
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "register attestor")
	}

	s.log.Info().Str("attestor", attestorID).Uint64("stake", stake).Msg("oracle registered")
	return acc, nil
}

// ValidateSigner returns the account if it may sign attestations right
// now. The stake check is lazy: an account whose stake fell below the
// minimum since registration is rejected here, no background sweep.
func (s *Service) ValidateSigner(ctx context.Context, attestorID string) (*models.Account, error) {
	acc, err := s.repo.Get(ctx, attestorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Newf(errors.ErrCodeUntrustedIssuer, "unknown attestor %s", attestorID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "load attestor")
	}

	if acc.Status != models.StatusActive {
		return nil, errors.Newf(errors.ErrCodeOracleInactive, "attestor %s is %s", attestorID, acc.Status)
	}
	if acc.Stake < s.minStake {
		return nil, errors.Newf(errors.ErrCodeOracleUnstaked,
			"attestor %s stake %d below minimum %d", attestorID, acc.Stake, s.minStake)
	}
	return acc, nil
}

// Slash subtracts amount from the attestor's stake with checked
// subtraction and flips the account to slashed when it drops below the
// minimum. One-way transition; repeated slashes of a slashed account
// still reduce stake for audit purposes.
func (s *Service) Slash(ctx context.Context, attestorID string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, errors.New(errors.ErrCodeAmountOutOfRange, "slash amount must be positive")
	}

	acc, err := s.repo.Update(ctx, attestorID, func(acc *models.Account) error {
		if amount > acc.Stake {
			return errors.Newf(errors.ErrCodeArithmeticUnderflow,
				"slash %d exceeds stake %d", amount, acc.Stake)
		}
		acc.Stake -= amount
		acc.SlashCount++
		acc.LastSlashAt = s.now()
		if acc.Stake < s.minStake {
			acc.Status = models.StatusSlashed
		}
		return nil
	})
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return 0, errors.Newf(errors.ErrCodeNotFound, "unknown attestor %s", attestorID)
		}
		if appErr, ok := errors.AsAppError(err); ok {
			return 0, appErr
		}
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "slash attestor")
	}

	s.log.Warn().
		Str("attestor", attestorID).
		Uint64("slashed", amount).
		Uint64("remaining", acc.Stake).
		Str("status", string(acc.Status)).
		Msg("oracle slashed")
	return acc.Stake, nil
}

// RecordOutcome adjusts reputation after an attestation is confirmed good
// or proven bad.
func (s *Service) RecordOutcome(ctx context.Context, attestorID string, ok bool) error {
	_, err := s.repo.Update(ctx, attestorID, func(acc *models.Account) error {
		if ok {
			acc.SuccessfulVerifications++
			acc.Reputation++
		} else {
			acc.FailedVerifications++
			acc.Reputation--
		}
		return nil
	})
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return errors.Wrap(err, errors.ErrCodeInternal, "record outcome")
	}
	return nil
}

// Get returns the account for audit endpoints.
func (s *Service) Get(ctx context.Context, attestorID string) (*models.Account, error) {
	acc, err := s.repo.Get(ctx, attestorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "unknown attestor %s", attestorID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "load attestor")
	}
	return acc, nil
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
