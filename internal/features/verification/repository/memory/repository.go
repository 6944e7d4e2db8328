package memory

import (
	"context"
	"sync"

	"gaming-rewards-backend/internal/features/verification/models"
	"gaming-rewards-backend/internal/features/verification/repository"
)

// Repository keeps profiles in process with per-identity locks, so
// concurrent steps for different identities proceed in parallel while
// steps for one identity are serialized.
type Repository struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	profiles map[string]*models.Profile
}

func NewRepository() repository.Repository {
	return &Repository{
		locks:    make(map[string]*sync.Mutex),
		profiles: make(map[string]*models.Profile),
	}
}

func (r *Repository) lock(identity string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[identity]
	if !ok {
		l = &sync.Mutex{}
		r.locks[identity] = l
	}
	return l
}

func (r *Repository) Get(_ context.Context, identity string) (*models.Profile, error) {
	l := r.lock(identity)
	l.Lock()
	defer l.Unlock()

	p, ok := r.profiles[identity]
	if !ok {
		return nil, nil
	}
	cp := clone(p)
	return cp, nil
}

func (r *Repository) Update(_ context.Context, identity string, mutate func(*models.Profile) error) (*models.Profile, error) {
	l := r.lock(identity)
	l.Lock()
	defer l.Unlock()

	p, ok := r.profiles[identity]
	if !ok {
		p = &models.Profile{IdentityID: identity}
	}

	// Mutate a clone so a failed step leaves the profile unmodified.
	cp := clone(p)
	if err := mutate(cp); err != nil {
		return nil, err
	}
	r.profiles[identity] = cp
	return clone(cp), nil
}

func clone(p *models.Profile) *models.Profile {
	cp := *p
	cp.Attestations = make([]models.ZKPAttestation, len(p.Attestations))
	copy(cp.Attestations, p.Attestations)
	return &cp
}
