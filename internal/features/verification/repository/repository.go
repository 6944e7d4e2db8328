package repository

import (
	"context"

	"gaming-rewards-backend/internal/features/verification/models"
)

// Repository stores verification profiles. Update creates the profile on
// first touch and serializes mutations per identity; a failed mutate
// leaves the profile unchanged.
type Repository interface {
	Get(ctx context.Context, identity string) (*models.Profile, error)
	Update(ctx context.Context, identity string, mutate func(*models.Profile) error) (*models.Profile, error)
}
