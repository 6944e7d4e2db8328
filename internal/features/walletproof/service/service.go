package service

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/features/walletproof/models"
	"gaming-rewards-backend/internal/features/walletproof/repository"
	"gaming-rewards-backend/internal/platform/ton"
)

// Service verifies that a wallet signature over a canonical challenge
// message was produced by the key controlling the reward account.
type Service struct {
	repo      repository.Repository
	substrate ton.Substrate
	maxAge    time.Duration
	now       func() time.Time
}

func NewService(repo repository.Repository, substrate ton.Substrate, maxAge time.Duration) *Service {
	return &Service{repo: repo, substrate: substrate, maxAge: maxAge, now: time.Now}
}

// GenerateChallenge issues the one-time payload the wallet must sign.
func (s *Service) GenerateChallenge(ctx context.Context, identity string) (*models.Challenge, error) {
	ch := &models.Challenge{
		Identity:  identity,
		Payload:   uuid.New().String(),
		CreatedAt: s.now(),
	}
	if err := s.repo.SaveChallenge(ctx, ch); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "save challenge")
	}
	return ch, nil
}

// Verify checks freshness, the stored challenge and the ed25519 signature,
// then persists the proof record. Returns the linked account reference.
func (s *Service) Verify(ctx context.Context, identity string, req *models.ProofRequest) (string, error) {
	if s.now().Unix() > req.Timestamp+int64(s.maxAge.Seconds()) {
		return "", errors.New(errors.ErrCodeExpiredTicket, "wallet proof expired").
			WithDetail("max_age", s.maxAge.String())
	}

	if err := s.substrate.ValidateAccount(req.Address); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeValidation, "invalid account reference")
	}

	ch, err := s.repo.GetChallenge(ctx, identity)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "load challenge")
	}
	if ch == nil || ch.Payload != req.Payload {
		return "", errors.New(errors.ErrCodeSignatureMismatch, "unknown or stale challenge payload")
	}

	if err := s.verifySignature(identity, req); err != nil {
		return "", err
	}

	record := &models.ProofRecord{
		Identity:   identity,
		Address:    req.Address,
		VerifiedAt: s.now(),
	}
	if err := s.repo.SaveProof(ctx, record); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "save proof")
	}
	return record.Address, nil
}

// IsVerified reports whether the identity holds a verified wallet link.
func (s *Service) IsVerified(ctx context.Context, identity string) (bool, error) {
	record, err := s.repo.GetProof(ctx, identity)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

func (s *Service) verifySignature(identity string, req *models.ProofRequest) error {
	// Canonical message binds the platform identity to the target account.
	message := fmt.Sprintf("%s:%s:%s", identity, req.Address, req.Payload)

	pubKey, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid public key")
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return errors.New(errors.ErrCodeValidation, "public key must be 32 bytes")
	}

	signature, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid signature encoding")
	}

	if !ed25519.Verify(pubKey, []byte(message), signature) {
		return errors.New(errors.ErrCodeSignatureMismatch, "signature verification failed")
	}

	return nil
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
