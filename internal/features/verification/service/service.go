package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"gaming-rewards-backend/internal/common/config"
	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/logger"
	fraudsvc "gaming-rewards-backend/internal/features/fraud/service"
	oraclesvc "gaming-rewards-backend/internal/features/oracle/service"
	"gaming-rewards-backend/internal/features/verification/models"
	"gaming-rewards-backend/internal/features/verification/provider"
	"gaming-rewards-backend/internal/features/verification/repository"
	walletmodels "gaming-rewards-backend/internal/features/walletproof/models"
	walletsvc "gaming-rewards-backend/internal/features/walletproof/service"
	"gaming-rewards-backend/internal/platform/ton"
	"gaming-rewards-backend/internal/platform/zkverifier"
)

// Service is the verification orchestrator. It owns VerificationProfile
// state and combines the four proof pillars into one 0-100 trust score.
// Oracle accounts are read through the registry, never mutated here
// beyond reputation outcomes.
type Service struct {
	profiles  repository.Repository
	oracles   *oraclesvc.Service
	wallet    *walletsvc.Service
	limiter   *fraudsvc.Limiter
	verifier  zkverifier.Verifier
	provider  provider.Provider
	substrate ton.Substrate

	limits           config.Limits
	verifierTimeout  time.Duration
	qualifyingJetton string

	now func() time.Time
	log zerolog.Logger
}

func NewService(
	profiles repository.Repository,
	oracles *oraclesvc.Service,
	wallet *walletsvc.Service,
	limiter *fraudsvc.Limiter,
	verifier zkverifier.Verifier,
	achievements provider.Provider,
	substrate ton.Substrate,
	limits config.Limits,
	verifierTimeout time.Duration,
	qualifyingJetton string,
) *Service {
	return &Service{
		profiles:         profiles,
		oracles:          oracles,
		wallet:           wallet,
		limiter:          limiter,
		verifier:         verifier,
		provider:         achievements,
		substrate:        substrate,
		limits:           limits,
		verifierTimeout:  verifierTimeout,
		qualifyingJetton: qualifyingJetton,
		now:              time.Now,
		log:              logger.For("verification.orchestrator"),
	}
}

// guard runs the checks shared by every mutating step: rate limit first
// (denial aborts without touching the profile), then the sticky fraud
// flag.
func (s *Service) guard(ctx context.Context, identity string) error {
	if !s.limiter.CheckLimit(identity) {
		return errors.New(errors.ErrCodeRateLimited, "verification rate limit exceeded").
			WithRetryAfter(s.limits.RateWindow)
	}
	if err := s.checkFraudFlag(ctx, identity); err != nil {
		return err
	}
	return nil
}

func (s *Service) checkFraudFlag(ctx context.Context, identity string) error {
	p, err := s.profiles.Get(ctx, identity)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "load profile")
	}
	if p != nil && p.FraudFlag {
		return errors.New(errors.ErrCodeFraudDetected, "identity is flagged for fraud")
	}
	if s.limiter.IsFraudulent(identity) {
		return errors.New(errors.ErrCodeFraudDetected, "identity reputation below fraud threshold")
	}
	return nil
}

// VerifySession validates an oracle-signed session ticket (an EdDSA JWT)
// and marks the session pillar.
func (s *Service) VerifySession(ctx context.Context, identity, ticket string) error {
	if err := s.guard(ctx, identity); err != nil {
		return err
	}

	claims := &jwt.RegisteredClaims{}
	var signerErr error
	var issuer string

	token, err := jwt.ParseWithClaims(ticket, claims, func(t *jwt.Token) (interface{}, error) {
		iss, err := t.Claims.GetIssuer()
		if err != nil || iss == "" {
			return nil, stderrors.New("ticket carries no issuer")
		}
		issuer = iss
		acc, err := s.oracles.ValidateSigner(ctx, iss)
		if err != nil {
			signerErr = err
			return nil, err
		}
		return acc.PublicKey, nil
	}, jwt.WithValidMethods([]string{"EdDSA"}))

	if err != nil {
		if signerErr != nil {
			return signerErr
		}
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return errors.New(errors.ErrCodeExpiredTicket, "session ticket expired")
		}
		if stderrors.Is(err, jwt.ErrTokenSignatureInvalid) {
			s.limiter.RecordEvent(identity, -10)
			return errors.New(errors.ErrCodeSignatureMismatch, "session ticket signature invalid")
		}
		return errors.Wrap(err, errors.ErrCodeMalformedProof, "unparseable session ticket")
	}
	if !token.Valid {
		return errors.New(errors.ErrCodeSignatureMismatch, "session ticket rejected")
	}

	if claims.Subject != identity {
		s.limiter.RecordEvent(identity, -10)
		return errors.New(errors.ErrCodeValidation, "ticket subject does not match identity")
	}

	now := s.now()
	if claims.IssuedAt == nil {
		return errors.New(errors.ErrCodeMalformedProof, "ticket carries no issued-at")
	}
	if err := s.checkFreshness(claims.IssuedAt.Time, now); err != nil {
		s.limiter.RecordEvent(identity, -5)
		return err
	}

	if _, err := s.profiles.Update(ctx, identity, func(p *models.Profile) error {
		p.SessionVerified = true
		p.LastVerificationAt = now
		return nil
	}); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "update profile")
	}

	s.limiter.RecordClean(identity)
	_ = s.oracles.RecordOutcome(ctx, issuer, true)
	s.log.Info().Str("identity", identity).Str("issuer", issuer).Msg("session verified")
	return nil
}

// VerifyWalletLink validates the signed wallet challenge and marks the
// wallet pillar, binding the reward-receiving account to the profile.
func (s *Service) VerifyWalletLink(ctx context.Context, identity string, req *walletmodels.ProofRequest) error {
	if err := s.guard(ctx, identity); err != nil {
		return err
	}

	account, err := s.wallet.Verify(ctx, identity, req)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeSignatureMismatch {
			s.limiter.RecordEvent(identity, -10)
		}
		return err
	}

	now := s.now()
	if _, err := s.profiles.Update(ctx, identity, func(p *models.Profile) error {
		p.WalletLinkVerified = true
		p.LinkedAccount = account
		p.LastVerificationAt = now
		return nil
	}); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "update profile")
	}

	s.limiter.RecordClean(identity)
	s.log.Info().Str("identity", identity).Str("account", account).Msg("wallet link verified")
	return nil
}

// SubmitAttestation validates structural well-formedness, freshness and
// issuer trust, delegates the ZKP math to the external verifier, and
// appends the attestation. Replays of an identical attestation are
// rejected and scored as a fraud signal.
func (s *Service) SubmitAttestation(ctx context.Context, identity string, req *models.AttestationRequest) error {
	if err := s.guard(ctx, identity); err != nil {
		return err
	}

	if req.AttestationID == "" || len(req.Proof) == 0 || len(req.PublicInputs) == 0 {
		return errors.New(errors.ErrCodeMalformedProof, "attestation id, proof and public inputs are required")
	}

	att := models.ZKPAttestation{
		AttestationID: req.AttestationID,
		ProofBytes:    req.Proof,
		PublicInputs:  req.PublicInputs,
		Issuer:        req.Issuer,
		IssuedAt:      time.Unix(req.IssuedAt, 0),
	}

	now := s.now()
	if err := s.checkFreshness(att.IssuedAt, now); err != nil {
		s.limiter.RecordEvent(identity, -5)
		return err
	}

	if _, err := s.oracles.ValidateSigner(ctx, att.Issuer); err != nil {
		return err
	}

	digest := att.Digest()
	existing, err := s.profiles.Get(ctx, identity)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "load profile")
	}
	if existing != nil && existing.HasAttestation(digest) {
		s.limiter.RecordEvent(identity, -5)
		return errors.New(errors.ErrCodeValidation, "duplicate attestation").
			WithDetail("digest", digest)
	}

	vctx, cancel := context.WithTimeout(ctx, s.verifierTimeout)
	defer cancel()
	valid, err := s.verifier.VerifyProof(vctx, att.ProofBytes, att.PublicInputs)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.New(errors.ErrCodeVerificationTimeout, "proof verifier timed out").
				WithDetail("timeout", s.verifierTimeout.String())
		}
		return errors.Wrap(err, errors.ErrCodeExternalAPI, "proof verifier unavailable")
	}
	if !valid {
		s.limiter.RecordEvent(identity, -10)
		_ = s.oracles.RecordOutcome(ctx, att.Issuer, false)
		return errors.New(errors.ErrCodeMalformedProof, "proof rejected by verifier")
	}

	if _, err := s.profiles.Update(ctx, identity, func(p *models.Profile) error {
		// Re-check under the profile lock: a concurrent submit of the
		// same attestation must not append twice.
		if p.HasAttestation(digest) {
			return errors.New(errors.ErrCodeValidation, "duplicate attestation")
		}
		p.Attestations = append(p.Attestations, att)
		p.LastVerificationAt = now
		return nil
	}); err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return appErr
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "update profile")
	}

	s.limiter.RecordClean(identity)
	_ = s.oracles.RecordOutcome(ctx, att.Issuer, true)
	s.log.Info().Str("identity", identity).Str("issuer", att.Issuer).Msg("attestation accepted")
	return nil
}

// VerifyMultiFactor gathers the four weighted signals, stores the 0-100
// score and returns it. Requires the session and wallet pillars first.
func (s *Service) VerifyMultiFactor(ctx context.Context, identity string) (uint8, error) {
	if err := s.guard(ctx, identity); err != nil {
		return 0, err
	}

	p, err := s.profiles.Get(ctx, identity)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "load profile")
	}
	if p == nil || !p.SessionVerified || !p.WalletLinkVerified {
		return 0, errors.New(errors.ErrCodeInsufficientVerification,
			"session and wallet verification required before multi-factor scoring")
	}

	signals, err := s.gatherSignals(ctx, identity, p.LinkedAccount)
	if err != nil {
		return 0, err
	}

	score := signals.Score()
	now := s.now()
	if _, err := s.profiles.Update(ctx, identity, func(p *models.Profile) error {
		p.MultiFactorScore = score
		p.LastVerificationAt = now
		return nil
	}); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "update profile")
	}

	s.limiter.RecordClean(identity)
	s.log.Info().Str("identity", identity).Uint8("score", score).Msg("multi-factor scored")
	return score, nil
}

func (s *Service) gatherSignals(ctx context.Context, identity, linkedAccount string) (models.MultiFactorSignals, error) {
	var signals models.MultiFactorSignals

	achievements, err := s.provider.FetchAchievements(ctx, identity)
	if err != nil {
		return signals, s.externalError("achievement provider", err)
	}
	signals.AchievementsAboveThreshold = len(achievements) >= s.limits.MinAchievements

	reputation, err := s.provider.ReputationScore(ctx, identity)
	if err != nil {
		return signals, s.externalError("achievement provider", err)
	}
	signals.ExternalReputation = reputation >= s.limits.MinReputation

	if s.qualifyingJetton != "" {
		balance, err := s.substrate.JettonBalance(ctx, linkedAccount, s.qualifyingJetton)
		if err != nil {
			return signals, s.externalError("ledger substrate", err)
		}
		signals.QualifyingAssetHeld = balance.Sign() > 0
	}

	txs, err := s.substrate.RecentTransactionCount(ctx, linkedAccount, s.limits.MinActivityTxs)
	if err != nil {
		return signals, s.externalError("ledger substrate", err)
	}
	signals.OnChainActivity = txs >= s.limits.MinActivityTxs

	return signals, nil
}

func (s *Service) externalError(collaborator string, err error) *errors.AppError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Newf(errors.ErrCodeVerificationTimeout, "%s timed out", collaborator)
	}
	return errors.Wrap(err, errors.ErrCodeExternalAPI, collaborator+" unavailable")
}

// ConsolidatedScore computes the 0-100 trust score: each of the four
// pillars contributes 25 points. The attestation pillar only counts while
// at least one attestation's issuer is still an active signer, so a
// slashed oracle's attestations stop contributing on the next read.
func (s *Service) ConsolidatedScore(ctx context.Context, identity string) (uint8, error) {
	p, err := s.profiles.Get(ctx, identity)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "load profile")
	}
	if p == nil || p.FraudFlag {
		return 0, nil
	}

	var score uint8
	if p.SessionVerified {
		score += 25
	}
	if p.WalletLinkVerified {
		score += 25
	}
	if s.anyTrustedAttestation(ctx, p) {
		score += 25
	}
	if p.MultiFactorScore >= 50 {
		score += 25
	}
	return score, nil
}

func (s *Service) anyTrustedAttestation(ctx context.Context, p *models.Profile) bool {
	seen := make(map[string]bool, 2)
	for i := range p.Attestations {
		issuer := p.Attestations[i].Issuer
		trusted, ok := seen[issuer]
		if !ok {
			_, err := s.oracles.ValidateSigner(ctx, issuer)
			trusted = err == nil
			seen[issuer] = trusted
		}
		if trusted {
			return true
		}
	}
	return false
}

// EligibleForClaim gates reward release: no fraud flag and consolidated
// score at or above the configured threshold.
func (s *Service) EligibleForClaim(ctx context.Context, identity string) error {
	if err := s.checkFraudFlag(ctx, identity); err != nil {
		return err
	}

	score, err := s.ConsolidatedScore(ctx, identity)
	if err != nil {
		return err
	}
	if score < s.limits.MinVerificationScore {
		return errors.Newf(errors.ErrCodeInsufficientVerification,
			"consolidated score %d below required %d", score, s.limits.MinVerificationScore).
			WithDetail("score", score)
	}
	return nil
}

// ClaimAccount authorizes a claim for identity and returns the linked
// on-chain account payouts settle to. Satisfies the treasury gate.
func (s *Service) ClaimAccount(ctx context.Context, identity string) (string, error) {
	if err := s.EligibleForClaim(ctx, identity); err != nil {
		return "", err
	}

	p, err := s.profiles.Get(ctx, identity)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "load profile")
	}
	if p == nil || p.LinkedAccount == "" {
		return "", errors.New(errors.ErrCodeInsufficientVerification, "no linked account on record")
	}
	return p.LinkedAccount, nil
}

// Profile returns the profile for audit endpoints, nil when the identity
// was never seen.
func (s *Service) Profile(ctx context.Context, identity string) (*models.Profile, error) {
	return s.profiles.Get(ctx, identity)
}

// ReportFraud is the verified fraud-report path: it sets the sticky fraud
// flag (cleared only by an explicit administrative action) and feeds the
// limiter. Idempotent.
func (s *Service) ReportFraud(ctx context.Context, identity, fingerprint string) error {
	s.limiter.Flag(identity, fingerprint)
	s.limiter.RecordEvent(identity, -60)

	if _, err := s.profiles.Update(ctx, identity, func(p *models.Profile) error {
		p.FraudFlag = true
		return nil
	}); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "flag profile")
	}

	s.log.Warn().Str("identity", identity).Str("fingerprint", fingerprint).Msg("identity flagged for fraud")
	return nil
}

func (s *Service) checkFreshness(issuedAt, now time.Time) error {
	if issuedAt.After(now.Add(30 * time.Second)) {
		return errors.New(errors.ErrCodeValidation, "issued in the future")
	}
	if now.Sub(issuedAt) > s.limits.MaxVerificationAge {
		return errors.New(errors.ErrCodeExpiredTicket, "proof older than the maximum verification age").
			WithDetail("max_age", s.limits.MaxVerificationAge.String())
	}
	return nil
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
