package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const locationColumns = `id, name, slug, zip, created_at, updated_at`

type LocationRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewLocationRepository(pool *pgxpool.Pool, logger *slog.Logger) *LocationRepository {
	return &LocationRepository{pool: pool, logger: logger.With("component", "location_repo")}
}

func (r *LocationRepository) List(ctx context.Context) ([]*domain.Location, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+locationColumns+` FROM locations ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	locations := make([]*domain.Location, 0)
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return locations, nil
}

func (r *LocationRepository) Create(ctx context.Context, l *domain.Location) (*domain.Location, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO locations (name, slug, zip)
		VALUES ($1, $2, $3)
		RETURNING `+locationColumns,
		l.Name, l.Slug, l.Zip,
	)

	created, err := scanLocation(row)
	if err != nil {
		if isUniqueViolation(err, "locations_slug_key") {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *LocationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	if !validID(id) {
		return nil, domain.ErrLocationNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	return scanLocation(row)
}

// Update writes only the non-nil patch fields; COALESCE keeps the rest.
func (r *LocationRepository) Update(ctx context.Context, id string, p domain.LocationPatch) (*domain.Location, error) {
	if !validID(id) {
		return nil, domain.ErrLocationNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE locations
		SET name       = COALESCE($2, name),
		    slug       = COALESCE($3, slug),
		    zip        = COALESCE($4, zip),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+locationColumns,
		id, p.Name, p.Slug, p.Zip,
	)

	updated, err := scanLocation(row)
	if err != nil {
		if isUniqueViolation(err, "locations_slug_key") {
			r.logger.WarnContext(ctx, "slug taken between check and update", "location_id", id)
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrLocationNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLocationNotFound
	}
	return nil
}

func (r *LocationRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM locations WHERE slug = $1)`
	args := []any{slug}
	if validID(excludeID) {
		query = `SELECT EXISTS (SELECT 1 FROM locations WHERE slug = $1 AND id <> $2)`
		args = append(args, excludeID)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func scanLocation(row rowScanner) (*domain.Location, error) {
	var l domain.Location
	err := row.Scan(&l.ID, &l.Name, &l.Slug, &l.Zip, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, fmt.Errorf("scan location: %w", err)
	}
	return &l, nil
}
