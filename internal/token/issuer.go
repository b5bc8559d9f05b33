package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type claims struct {
	Use domain.TokenUse `json:"use"`
	// OrigIssuedAt is when the login that started this chain of refreshes
	// happened. The refresh window is measured from it, not from iat.
	OrigIssuedAt *jwt.NumericDate `json:"orig_iat,omitempty"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 tokens. ttl bounds how long a token is
// accepted for API calls; refreshTTL bounds how long after issue it can
// still be exchanged for a new one.
type Issuer struct {
	key        []byte
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(key []byte, ttl, refreshTTL time.Duration) *Issuer {
	return &Issuer{key: key, ttl: ttl, refreshTTL: refreshTTL, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Mint signs a token of the given use for userID that starts a new session.
func (i *Issuer) Mint(userID string, use domain.TokenUse) (string, *domain.Claims, error) {
	return i.mint(userID, use, time.Time{})
}

// Renew signs a token for the same user and session as prev, so the refresh
// window keeps counting from the original login.
func (i *Issuer) Renew(prev *domain.Claims, use domain.TokenUse) (string, *domain.Claims, error) {
	return i.mint(prev.UserID, use, prev.SessionStart)
}

// RefreshDeadline is the instant after which c can no longer be exchanged
// by VerifyForRefresh.
func (i *Issuer) RefreshDeadline(c *domain.Claims) time.Time {
	return c.SessionStart.Add(i.refreshTTL)
}

func (i *Issuer) mint(userID string, use domain.TokenUse, sessionStart time.Time) (string, *domain.Claims, error) {
	now := i.now()
	if sessionStart.IsZero() {
		sessionStart = now
	}
	c := claims{
		Use:          use,
		OrigIssuedAt: jwt.NewNumericDate(sessionStart),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(now.Add(i.ttl))),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, toDomain(&c), nil
}

// Verify accepts only a correctly signed, unexpired token.
func (i *Issuer) Verify(raw string) (*domain.Claims, error) {
	c, err := i.parse(raw, jwt.WithExpirationRequired(), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	return toDomain(c), nil
}

// VerifyForRefresh accepts a correctly signed token, expired or not, as long
// as its session started within the refresh window.
func (i *Issuer) VerifyForRefresh(raw string) (*domain.Claims, error) {
	c, err := i.parse(raw, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if c.IssuedAt == nil {
		return nil, domain.ErrTokenInvalid
	}
	dc := toDomain(c)
	if !i.now().Before(i.RefreshDeadline(dc)) {
		return nil, domain.ErrTokenInvalid
	}
	return dc, nil
}

func (i *Issuer) parse(raw string, opts ...jwt.ParserOption) (*claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if c.Subject == "" || c.ID == "" {
		return nil, domain.ErrTokenInvalid
	}
	return &c, nil
}

// exp is whole seconds on the wire; round up so a token never expires
// before now+ttl.
func ceilSecond(t time.Time) time.Time {
	if tr := t.Truncate(time.Second); !tr.Equal(t) {
		return tr.Add(time.Second)
	}
	return t
}

func toDomain(c *claims) *domain.Claims {
	dc := &domain.Claims{
		UserID:  c.Subject,
		TokenID: c.ID,
		Use:     c.Use,
	}
	if c.IssuedAt != nil {
		dc.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		dc.ExpiresAt = c.ExpiresAt.Time
	}
	dc.SessionStart = dc.IssuedAt
	if c.OrigIssuedAt != nil {
		dc.SessionStart = c.OrigIssuedAt.Time
	}
	return dc
}
