package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gaming-rewards-backend/internal/common/config"
	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/logger"
	fraudsvc "gaming-rewards-backend/internal/features/fraud/service"
	"gaming-rewards-backend/internal/features/treasury/models"
	"gaming-rewards-backend/internal/features/treasury/repository"
	"gaming-rewards-backend/internal/platform/ton"
)

// Gate answers whether an identity currently qualifies for reward release
// and which ledger account receives the funds. Implemented by the
// verification orchestrator.
type Gate interface {
	ClaimAccount(ctx context.Context, identity string) (string, error)
}

// Service is the treasury ledger: it owns the pooled funds, splits
// harvested yield 50/50 between the user-reward pool and the reserve, and
// fulfills claims under balance and rate constraints. Internal pool
// accounting is the source of truth for entitlement; the substrate
// transfer runs only after the internal state is committed.
type Service struct {
	repo      repository.Repository
	gate      Gate
	limiter   *fraudsvc.Limiter
	substrate ton.Substrate
	events    Events
	limits    config.Limits

	claimMu sync.Mutex
	claims  map[string]*sync.Mutex

	now func() time.Time
	log zerolog.Logger
}

func NewService(repo repository.Repository, gate Gate, limiter *fraudsvc.Limiter, substrate ton.Substrate, events Events, limits config.Limits) *Service {
	return &Service{
		repo:      repo,
		gate:      gate,
		limiter:   limiter,
		substrate: substrate,
		events:    events,
		limits:    limits,
		claims:    make(map[string]*sync.Mutex),
		now:       time.Now,
		log:       logger.For("treasury.ledger"),
	}
}

// AddYield harvests yield into the pool: user share is amount/2, the
// integer-division remainder goes to the reserve. Rejected when the
// harvest interval has not elapsed.
func (s *Service) AddYield(ctx context.Context, amount uint64) (*models.HarvestEvent, error) {
	if amount == 0 || amount > s.limits.MaxHarvestAmount {
		return nil, errors.Newf(errors.ErrCodeAmountOutOfRange,
			"harvest amount must be in (0, %d]", s.limits.MaxHarvestAmount)
	}

	now := s.now()
	userShare := amount / 2
	reserveShare := amount - userShare

	_, err := s.repo.UpdateTreasury(ctx, func(t *models.TreasuryAccount) error {
		if !t.LastHarvestAt.IsZero() {
			elapsed := now.Sub(t.LastHarvestAt)
			if elapsed < s.limits.HarvestInterval {
				return errors.New(errors.ErrCodeHarvestTooFrequent, "harvest interval not elapsed").
					WithRetryAfter(s.limits.HarvestInterval - elapsed)
			}
		}

		pool, err := models.CheckedAdd(t.UserRewardsPool, userShare)
		if err != nil {
			return err
		}
		reserve, err := models.CheckedAdd(t.Reserve, reserveShare)
		if err != nil {
			return err
		}
		total, err := models.CheckedAdd(t.TotalBalance, amount)
		if err != nil {
			return err
		}

		t.UserRewardsPool = pool
		t.Reserve = reserve
		t.TotalBalance = total
		t.LastHarvestAt = now
		return nil
	})
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "harvest")
	}

	ev := &models.HarvestEvent{Amount: amount, UserShare: userShare, ReserveShare: reserveShare, Timestamp: now}
	s.events.EmitHarvest(ctx, ev)
	s.log.Info().
		Uint64("amount", amount).
		Uint64("user_share", userShare).
		Uint64("reserve_share", reserveShare).
		Msg("yield harvested")
	return ev, nil
}

// Claim releases amount from the user-reward pool to the identity's
// linked account. Order is strict: validate all preconditions, mutate
// ledger state, emit the event, and only then invoke the external
// transfer, so no reentrant call can observe uncommitted state.
func (s *Service) Claim(ctx context.Context, identity string, amount uint64) (*models.ClaimEvent, error) {
	// Serialize claims per identity; different identities proceed in
	// parallel and meet only at the pool mutation.
	l := s.claimLock(identity)
	l.Lock()
	defer l.Unlock()

	if !s.limiter.CheckLimit(identity) {
		return nil, errors.New(errors.ErrCodeRateLimited, "claim rate limit exceeded").
			WithRetryAfter(s.limits.RateWindow)
	}

	if amount == 0 || amount > s.limits.MaxClaimAmount {
		return nil, errors.Newf(errors.ErrCodeAmountOutOfRange,
			"claim amount must be in (0, %d]", s.limits.MaxClaimAmount)
	}

	account, err := s.gate.ClaimAccount(ctx, identity)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user, err := s.repo.User(ctx, identity)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "load reward account")
	}
	if user == nil {
		user = &models.UserRewardAccount{Identity: identity}
	}

	windowReset := user.WindowStartAt.IsZero() || now.Sub(user.WindowStartAt) >= s.limits.ClaimRateLimitWindow
	claimsInWindow := user.ClaimsInWindow
	if windowReset {
		claimsInWindow = 0
	}
	if claimsInWindow >= s.limits.MaxClaimsPerWindow {
		return nil, errors.New(errors.ErrCodeRateLimited, "claim window exhausted").
			WithRetryAfter(user.WindowStartAt.Add(s.limits.ClaimRateLimitWindow).Sub(now)).
			WithDetail("max_claims_per_window", s.limits.MaxClaimsPerWindow)
	}
	if !user.LastClaimAt.IsZero() {
		sinceLast := now.Sub(user.LastClaimAt)
		if sinceLast < s.limits.MinTimeBetweenClaims {
			return nil, errors.New(errors.ErrCodeClaimTooFrequent, "minimum spacing between claims not elapsed").
				WithRetryAfter(s.limits.MinTimeBetweenClaims - sinceLast)
		}
	}
	// Dry-run the user-side additions so the later mutation cannot fail
	// after the pool is already debited.
	if _, err := models.CheckedAdd(user.TotalClaimed, amount); err != nil {
		return nil, err
	}

	_, err = s.repo.UpdateTreasury(ctx, func(t *models.TreasuryAccount) error {
		if amount > t.UserRewardsPool {
			return errors.Newf(errors.ErrCodeInsufficientPool,
				"claim %d exceeds pool %d", amount, t.UserRewardsPool)
		}
		pool, err := models.CheckedSub(t.UserRewardsPool, amount)
		if err != nil {
			return err
		}
		distributed, err := models.CheckedAdd(t.TotalDistributed, amount)
		if err != nil {
			return err
		}
		t.UserRewardsPool = pool
		t.TotalDistributed = distributed
		return nil
	})
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "debit pool")
	}

	if _, err := s.repo.UpdateUser(ctx, identity, func(u *models.UserRewardAccount) error {
		if windowReset {
			u.ClaimsInWindow = 0
			u.WindowStartAt = now
		}
		u.ClaimsInWindow++
		u.TotalClaimed += amount
		u.LastClaimAt = now
		u.LinkedAccount = account
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "update reward account")
	}

	ev := &models.ClaimEvent{Identity: identity, Account: account, Amount: amount, Timestamp: now}
	s.events.EmitClaim(ctx, ev)
	s.limiter.RecordClean(identity)
	s.log.Info().
		Str("identity", identity).
		Str("account", account).
		Uint64("amount", amount).
		Msg("claim committed")

	// Entitlement is committed; the transfer is the settlement mechanism.
	if _, err := s.substrate.Transfer(ctx, account, amount); err != nil {
		s.log.Error().Err(err).Str("identity", identity).Msg("substrate transfer failed after commit")
		return ev, errors.Wrap(err, errors.ErrCodeExternalAPI, "substrate transfer failed").
			WithDetail("state_committed", true)
	}
	return ev, nil
}

// Status returns the treasury snapshot for audit endpoints.
func (s *Service) Status(ctx context.Context) (*models.TreasuryAccount, error) {
	return s.repo.Treasury(ctx)
}

// UserAccount returns the identity's claim history, nil if never claimed.
func (s *Service) UserAccount(ctx context.Context, identity string) (*models.UserRewardAccount, error) {
	return s.repo.User(ctx, identity)
}

func (s *Service) claimLock(identity string) *sync.Mutex {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()
	l, ok := s.claims[identity]
	if !ok {
		l = &sync.Mutex{}
		s.claims[identity] = l
	}
	return l
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
