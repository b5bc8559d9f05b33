package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RevokedTokenRepository is the Postgres-backed token denylist. Expired rows
// are removed by PurgeExpired.
type RevokedTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRevokedTokenRepository(pool *pgxpool.Pool) *RevokedTokenRepository {
	return &RevokedTokenRepository{pool: pool}
}

// Revoke stores tokenID with until in expires_at. until is the later of the
// token's exp and the end of its refresh window.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if !validID(tokenID) {
		return fmt.Errorf("revoke token: malformed token id %q", tokenID)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO revoked_tokens (token_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_id) DO NOTHING`,
		tokenID, until,
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if !validID(tokenID) {
		return false, nil
	}
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1 AND expires_at > NOW())`,
		tokenID,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// PurgeExpired deletes up to limit entries whose horizon is at or before now.
func (r *RevokedTokenRepository) PurgeExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM revoked_tokens
		WHERE token_id IN (
			SELECT token_id FROM revoked_tokens
			WHERE expires_at <= $1
			LIMIT $2
		)`,
		before, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
