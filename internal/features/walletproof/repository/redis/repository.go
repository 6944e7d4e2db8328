package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gaming-rewards-backend/internal/features/walletproof/models"
	"gaming-rewards-backend/internal/features/walletproof/repository"
)

const (
	keyPrefixProof     = "wallet_proof:"
	keyPrefixChallenge = "wallet_challenge:"
	proofExpiration    = 30 * 24 * time.Hour
	challengeTTL       = 15 * time.Minute
)

type Repository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) repository.Repository {
	return &Repository{client: client}
}

func (r *Repository) SaveChallenge(ctx context.Context, ch *models.Challenge) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	key := keyPrefixChallenge + ch.Identity
	return r.client.Set(ctx, key, data, challengeTTL).Err()
}

func (r *Repository) GetChallenge(ctx context.Context, identity string) (*models.Challenge, error) {
	data, err := r.client.Get(ctx, keyPrefixChallenge+identity).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	var ch models.Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return &ch, nil
}

func (r *Repository) SaveProof(ctx context.Context, record *models.ProofRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal proof record: %w", err)
	}

	key := keyPrefixProof + record.Identity
	return r.client.Set(ctx, key, data, proofExpiration).Err()
}

func (r *Repository) GetProof(ctx context.Context, identity string) (*models.ProofRecord, error) {
	data, err := r.client.Get(ctx, keyPrefixProof+identity).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}

	var record models.ProofRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proof record: %w", err)
	}

	return &record, nil
}
