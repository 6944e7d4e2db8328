package memory

import (
	"context"
	"fmt"
	"sync"

	"gaming-rewards-backend/internal/features/oracle/models"
	"gaming-rewards-backend/internal/features/oracle/repository"
)

// Repository is the in-process store for attestor accounts. Accounts are
// partitioned per attestor, so a plain map guarded by one mutex gives the
// single-writer-per-account discipline the registry needs.
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

func NewRepository() *Repository {
	return &Repository{accounts: make(map[string]*models.Account)}
}

func (r *Repository) Create(_ context.Context, acc *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[acc.AttestorID]; exists {
		return fmt.Errorf("attestor %s already registered", acc.AttestorID)
	}
	cp := *acc
	r.accounts[acc.AttestorID] = &cp
	return nil
}

func (r *Repository) Get(_ context.Context, attestorID string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[attestorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (r *Repository) Update(_ context.Context, attestorID string, mutate func(*models.Account) error) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[attestorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Mutate a copy so a failed mutation leaves the account untouched.
	cp := *acc
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	r.accounts[attestorID] = &cp
	out := cp
	return &out, nil
}
