package repository

import (
	"context"

	"github.com/ErlanBelekov/locations-api/internal/domain"
)

type UserRepository interface {
	// Create persists u and returns the stored record. Returns
	// domain.ErrEmailTaken on a unique violation.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
