package repository

import (
	"context"
	"time"
)

// TokenDenylist records logged-out token IDs until until, the last instant
// the token could authenticate or be refreshed.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
