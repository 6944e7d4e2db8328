package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/logger"
	"gaming-rewards-backend/internal/features/staking/models"
)

// Service lets a user lock claimed rewards for a bonus multiplier. One
// active position per user; the multiplier is computed at unstake time
// from the elapsed duration, never locked in at stake time, so early
// unstaking always lands in the lowest tier.
type Service struct {
	mu        sync.Mutex
	positions map[string]*models.Position

	minPeriod time.Duration
	maxPeriod time.Duration

	now func() time.Time
	log zerolog.Logger
}

func NewService(minPeriod, maxPeriod time.Duration) *Service {
	return &Service{
		positions: make(map[string]*models.Position),
		minPeriod: minPeriod,
		maxPeriod: maxPeriod,
		now:       time.Now,
		log:       logger.For("staking"),
	}
}

// StartStaking opens a position. The declared intended duration picks
// the lock tier label; the payout tier is still earned by elapsed time.
func (s *Service) StartStaking(_ context.Context, identity string, amount uint64, intended time.Duration) (*models.Position, error) {
	if amount == 0 {
		return nil, errors.New(errors.ErrCodeAmountOutOfRange, "stake amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.positions[identity]; exists {
		return nil, errors.New(errors.ErrCodeAlreadyStaking, "an active staking position already exists")
	}

	pos := &models.Position{
		Identity: identity,
		Amount:   amount,
		StartAt:  s.now(),
		LockTier: s.tierFor(intended),
	}
	s.positions[identity] = pos

	s.log.Info().Str("identity", identity).Uint64("amount", amount).Str("tier", string(pos.LockTier)).Msg("staking started")
	cp := *pos
	return &cp, nil
}

// Unstake closes the position and returns the principal together with
// the multiplier earned by the elapsed duration.
func (s *Service) Unstake(_ context.Context, identity string) (*models.UnstakeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.positions[identity]
	if !exists {
		return nil, errors.New(errors.ErrCodeNoActivePosition, "no active staking position")
	}
	delete(s.positions, identity)

	elapsed := s.now().Sub(pos.StartAt)
	multiplier := s.multiplierFor(elapsed)

	res := &models.UnstakeResult{
		Principal:  pos.Amount,
		Multiplier: multiplier,
		Payout:     pos.Amount * multiplier / 100,
	}
	s.log.Info().
		Str("identity", identity).
		Uint64("principal", res.Principal).
		Uint64("multiplier", multiplier).
		Dur("elapsed", elapsed).
		Msg("position unstaked")
	return res, nil
}

// Position returns the active position, nil when none exists.
func (s *Service) Position(_ context.Context, identity string) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.positions[identity]
	if !exists {
		return nil, nil
	}
	cp := *pos
	return &cp, nil
}

func (s *Service) multiplierFor(elapsed time.Duration) uint64 {
	switch {
	case elapsed >= s.maxPeriod:
		return models.MultiplierLong
	case elapsed >= s.minPeriod:
		return models.MultiplierMedium
	default:
		return models.MultiplierBase
	}
}

func (s *Service) tierFor(intended time.Duration) models.LockTier {
	switch {
	case intended >= s.maxPeriod:
		return models.TierLong
	case intended >= s.minPeriod:
		return models.TierMedium
	default:
		return models.TierFlexible
	}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
