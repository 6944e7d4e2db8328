package repository

import (
	"context"

	"gaming-rewards-backend/internal/features/treasury/models"
)

// Repository owns treasury state. UpdateTreasury serializes all writers of
// the singleton pool; UpdateUser serializes per identity (creating the
// account on first touch). A failed mutate leaves state untouched.
type Repository interface {
	Treasury(ctx context.Context) (*models.TreasuryAccount, error)
	UpdateTreasury(ctx context.Context, mutate func(*models.TreasuryAccount) error) (*models.TreasuryAccount, error)

	User(ctx context.Context, identity string) (*models.UserRewardAccount, error)
	UpdateUser(ctx context.Context, identity string, mutate func(*models.UserRewardAccount) error) (*models.UserRewardAccount, error)
}
