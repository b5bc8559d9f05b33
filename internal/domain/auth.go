package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email has already been taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)

// User is a registered account. PasswordHash holds a bcrypt hash and never
// leaves the service layer.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TokenUse string

const (
	TokenUseAccess TokenUse = "access"
	TokenUseID     TokenUse = "id"
)

// Claims is the verified content of a bearer token.
type Claims struct {
	UserID    string
	TokenID   string
	Use       TokenUse
	IssuedAt  time.Time
	ExpiresAt time.Time
	// SessionStart is the iat of the token minted at login; refreshed
	// tokens inherit it.
	SessionStart time.Time
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken string
	IDToken     string
	TokenType   string
	ExpiresIn   int64 // seconds
}
