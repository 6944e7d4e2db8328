package memory

import (
	"context"
	"sync"

	"gaming-rewards-backend/internal/features/treasury/models"
	"gaming-rewards-backend/internal/features/treasury/repository"
)

// Repository keeps treasury state in process. One mutex serializes all
// writers of the singleton pool; user accounts get per-identity locks so
// different claimants proceed in parallel.
type Repository struct {
	tmu      sync.Mutex
	treasury models.TreasuryAccount

	umu   sync.Mutex
	locks map[string]*sync.Mutex
	users map[string]*models.UserRewardAccount
}

func NewRepository(authority string) repository.Repository {
	return &Repository{
		treasury: models.TreasuryAccount{Authority: authority},
		locks:    make(map[string]*sync.Mutex),
		users:    make(map[string]*models.UserRewardAccount),
	}
}

func (r *Repository) Treasury(context.Context) (*models.TreasuryAccount, error) {
	r.tmu.Lock()
	defer r.tmu.Unlock()
	cp := r.treasury
	return &cp, nil
}

func (r *Repository) UpdateTreasury(_ context.Context, mutate func(*models.TreasuryAccount) error) (*models.TreasuryAccount, error) {
	r.tmu.Lock()
	defer r.tmu.Unlock()

	cp := r.treasury
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	r.treasury = cp
	out := cp
	return &out, nil
}

func (r *Repository) userLock(identity string) *sync.Mutex {
	r.umu.Lock()
	defer r.umu.Unlock()
	l, ok := r.locks[identity]
	if !ok {
		l = &sync.Mutex{}
		r.locks[identity] = l
	}
	return l
}

func (r *Repository) User(_ context.Context, identity string) (*models.UserRewardAccount, error) {
	l := r.userLock(identity)
	l.Lock()
	defer l.Unlock()

	u, ok := r.users[identity]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *Repository) UpdateUser(_ context.Context, identity string, mutate func(*models.UserRewardAccount) error) (*models.UserRewardAccount, error) {
	l := r.userLock(identity)
	l.Lock()
	defer l.Unlock()

	u, ok := r.users[identity]
	if !ok {
		u = &models.UserRewardAccount{Identity: identity}
	}
	cp := *u
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	r.users[identity] = &cp
	out := cp
	return &out, nil
}
