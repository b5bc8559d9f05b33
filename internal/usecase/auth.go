package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/ErlanBelekov/locations-api/internal/email"
	"github.com/ErlanBelekov/locations-api/internal/metrics"
	"github.com/ErlanBelekov/locations-api/internal/password"
	"github.com/ErlanBelekov/locations-api/internal/repository"
	"github.com/ErlanBelekov/locations-api/internal/validate"
)

const TokenTypeBearer = "bearer"

// TokenIssuer is satisfied by *token.Issuer.
type TokenIssuer interface {
	Mint(userID string, use domain.TokenUse) (string, *domain.Claims, error)
	Renew(prev *domain.Claims, use domain.TokenUse) (string, *domain.Claims, error)
	Verify(raw string) (*domain.Claims, error)
	VerifyForRefresh(raw string) (*domain.Claims, error)
	RefreshDeadline(c *domain.Claims) time.Time
	TTL() time.Duration
}

// PasswordHasher is satisfied by *password.Hasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

type AuthUsecase struct {
	users    repository.UserRepository
	tokens   TokenIssuer
	hasher   PasswordHasher
	denylist repository.TokenDenylist // nil: logout is advisory only
	mailer   email.Sender             // nil: no welcome email
	logger   *slog.Logger
	schema   validate.Schema
}

type AuthOption func(*AuthUsecase)

func WithDenylist(d repository.TokenDenylist) AuthOption {
	return func(u *AuthUsecase) { u.denylist = d }
}

func WithMailer(s email.Sender) AuthOption {
	return func(u *AuthUsecase) { u.mailer = s }
}

func NewAuthUsecase(users repository.UserRepository, tokens TokenIssuer, hasher PasswordHasher, logger *slog.Logger, opts ...AuthOption) *AuthUsecase {
	u := &AuthUsecase{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: logger.With("component", "auth_usecase"),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.schema = validate.Schema{
		{Name: "name", Checks: []validate.Check{validate.String(), validate.Max(255)}},
		{Name: "email", Checks: []validate.Check{
			validate.String(), validate.Email(), validate.Max(255), validate.Unique(users.EmailExists),
		}},
		{Name: "password", Checks: []validate.Check{validate.String(), validate.Min(8)}},
	}
	return u
}

// Register validates in, stores the user with a bcrypt hash of the password,
// and returns the stored record. Validation failures are *domain.ValidationError.
// String fields other than the password are trimmed first.
func (u *AuthUsecase) Register(ctx context.Context, in validate.Input) (*domain.User, error) {
	in = in.TrimStrings("password")
	if err := u.schema.Validate(ctx, in); err != nil {
		metrics.AuthEventsTotal.WithLabelValues("register", outcome(err)).Inc()
		return nil, err
	}

	name, _ := in.String("name")
	addr, _ := in.String("email")
	plain, _ := in.String("password")

	hash, err := u.hasher.Hash(plain)
	if err != nil {
		return nil, err
	}

	user, err := u.users.Create(ctx, &domain.User{Name: name, Email: addr, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			verr := domain.NewValidationError()
			verr.Add("email", "The email has already been taken.")
			metrics.AuthEventsTotal.WithLabelValues("register", outcome(verr)).Inc()
			return nil, verr
		}
		metrics.AuthEventsTotal.WithLabelValues("register", outcome(err)).Inc()
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.AuthEventsTotal.WithLabelValues("register", outcome(nil)).Inc()

	u.sendWelcome(ctx, user)
	return user, nil
}

func (u *AuthUsecase) sendWelcome(ctx context.Context, user *domain.User) {
	if u.mailer == nil {
		return
	}
	if err := u.mailer.Send(ctx, user.Email, email.Welcome(user.Name)); err != nil {
		u.logger.WarnContext(ctx, "welcome email", "user_id", user.ID, "error", err)
	}
}

// Login checks the credentials and issues an access/id token pair.
// Unknown email and wrong password both yield domain.ErrInvalidCredentials.
func (u *AuthUsecase) Login(ctx context.Context, addr, plain string) (*domain.TokenPair, error) {
	pair, err := u.login(ctx, addr, plain)
	metrics.AuthEventsTotal.WithLabelValues("login", outcome(err)).Inc()
	return pair, err
}

func (u *AuthUsecase) login(ctx context.Context, addr, plain string) (*domain.TokenPair, error) {
	if addr == "" || plain == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := u.users.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := u.hasher.Compare(user.PasswordHash, plain); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	return u.issuePair(func(use domain.TokenUse) (string, *domain.Claims, error) {
		return u.tokens.Mint(user.ID, use)
	})
}

// Authenticate verifies a bearer access token, including the denylist.
func (u *AuthUsecase) Authenticate(ctx context.Context, raw string) (*domain.Claims, error) {
	claims, err := u.tokens.Verify(raw)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Use != domain.TokenUseAccess {
		return nil, domain.ErrTokenInvalid
	}
	if err := u.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// UserInfo returns the user the claims were issued to.
func (u *AuthUsecase) UserInfo(ctx context.Context, claims *domain.Claims) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// Refresh exchanges a token, possibly expired but still inside the refresh
// window, for a new pair. The window is measured from the original login,
// so chained refreshes cannot extend it. The old token stays valid until
// its own expiry.
func (u *AuthUsecase) Refresh(ctx context.Context, raw string) (*domain.TokenPair, error) {
	pair, err := u.refresh(ctx, raw)
	metrics.AuthEventsTotal.WithLabelValues("refresh", outcome(err)).Inc()
	return pair, err
}

func (u *AuthUsecase) refresh(ctx context.Context, raw string) (*domain.TokenPair, error) {
	claims, err := u.tokens.VerifyForRefresh(raw)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Use != domain.TokenUseAccess {
		return nil, domain.ErrTokenInvalid
	}
	if err := u.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	if _, err := u.UserInfo(ctx, claims); err != nil {
		return nil, err
	}
	return u.issuePair(func(use domain.TokenUse) (string, *domain.Claims, error) {
		return u.tokens.Renew(claims, use)
	})
}

// Logout revokes the token when a denylist is configured. Without one it
// only records the event.
func (u *AuthUsecase) Logout(ctx context.Context, claims *domain.Claims) error {
	var err error
	if u.denylist != nil {
		if err = u.denylist.Revoke(ctx, claims.TokenID, u.revokeUntil(claims)); err != nil {
			err = fmt.Errorf("revoke token: %w", err)
		}
	}
	metrics.AuthEventsTotal.WithLabelValues("logout", outcome(err)).Inc()
	return err
}

// revokeUntil is the last instant the token is of any use: its expiry for
// API calls, or the end of its refresh window if that is later.
func (u *AuthUsecase) revokeUntil(claims *domain.Claims) time.Time {
	until := claims.ExpiresAt
	if deadline := u.tokens.RefreshDeadline(claims); deadline.After(until) {
		until = deadline
	}
	return until
}

func (u *AuthUsecase) checkRevoked(ctx context.Context, claims *domain.Claims) error {
	if u.denylist == nil {
		return nil
	}
	revoked, err := u.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return domain.ErrTokenInvalid
	}
	return nil
}

// issuePair mints the access token and an id token for the same subject.
func (u *AuthUsecase) issuePair(mint func(domain.TokenUse) (string, *domain.Claims, error)) (*domain.TokenPair, error) {
	access, _, err := mint(domain.TokenUseAccess)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	id, _, err := mint(domain.TokenUseID)
	if err != nil {
		return nil, fmt.Errorf("mint id token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken: access,
		IDToken:     id,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(u.tokens.TTL() / time.Second),
	}, nil
}

func outcome(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrTokenInvalid):
		return "denied"
	default:
		return "error"
	}
}
