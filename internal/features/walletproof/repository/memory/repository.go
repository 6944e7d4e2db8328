package memory

import (
	"context"
	"sync"

	"gaming-rewards-backend/internal/features/walletproof/models"
	"gaming-rewards-backend/internal/features/walletproof/repository"
)

// Repository keeps challenges and proofs in process. Used in tests and
// single-node runs without redis.
type Repository struct {
	mu         sync.RWMutex
	challenges map[string]models.Challenge
	proofs     map[string]models.ProofRecord
}

func NewRepository() repository.Repository {
	return &Repository{
		challenges: make(map[string]models.Challenge),
		proofs:     make(map[string]models.ProofRecord),
	}
}

func (r *Repository) SaveChallenge(_ context.Context, ch *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges[ch.Identity] = *ch
	return nil
}

func (r *Repository) GetChallenge(_ context.Context, identity string) (*models.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.challenges[identity]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (r *Repository) SaveProof(_ context.Context, record *models.ProofRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proofs[record.Identity] = *record
	return nil
}

func (r *Repository) GetProof(_ context.Context, identity string) (*models.ProofRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.proofs[identity]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
