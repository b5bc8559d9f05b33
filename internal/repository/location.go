package repository

import (
	"context"

	"github.com/ErlanBelekov/locations-api/internal/domain"
)

type LocationRepository interface {
	List(ctx context.Context) ([]*domain.Location, error)
	Create(ctx context.Context, l *domain.Location) (*domain.Location, error)
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	// Update applies the non-nil patch fields. Returns domain.ErrSlugTaken on
	// a unique violation and domain.ErrLocationNotFound when id is absent.
	Update(ctx context.Context, id string, patch domain.LocationPatch) (*domain.Location, error)
	Delete(ctx context.Context, id string) error
	// SlugExists reports whether another location (not excludeID) uses slug.
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}
