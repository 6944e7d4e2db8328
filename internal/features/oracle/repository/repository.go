package repository

import (
	"context"
	"errors"

	"gaming-rewards-backend/internal/features/oracle/models"
)

var ErrNotFound = errors.New("oracle not found")

// Repository stores attestor accounts. Update serializes all mutations of
// one account: mutate runs under the account's lock.
type Repository interface {
	Create(ctx context.Context, acc *models.Account) error
	Get(ctx context.Context, attestorID string) (*models.Account, error)
	Update(ctx context.Context, attestorID string, mutate func(*models.Account) error) (*models.Account, error)
}
