package repository

import (
	"context"

	"gaming-rewards-backend/internal/features/walletproof/models"
)

// Repository stores wallet-link challenges and verified proof records.
// Lookups return nil, nil on miss.
type Repository interface {
	SaveChallenge(ctx context.Context, ch *models.Challenge) error
	GetChallenge(ctx context.Context, identity string) (*models.Challenge, error)
	SaveProof(ctx context.Context, record *models.ProofRecord) error
	GetProof(ctx context.Context, identity string) (*models.ProofRecord, error)
}
