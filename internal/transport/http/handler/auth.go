package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/ErlanBelekov/locations-api/internal/transport/http/middleware"
	"github.com/ErlanBelekov/locations-api/internal/validate"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, in validate.Input) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	UserInfo(ctx context.Context, claims *domain.Claims) (*domain.User, error)
	Refresh(ctx context.Context, raw string) (*domain.TokenPair, error)
	Logout(ctx context.Context, claims *domain.Claims) error
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

func newTokenResponse(p *domain.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken: p.AccessToken,
		TokenType:   p.TokenType,
		ExpiresIn:   p.ExpiresIn,
		IDToken:     p.IDToken,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var in validate.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.WarnContext(c.Request.Context(), "register: malformed body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": errMalformedBody})
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), in)
	if err != nil {
		if abortValidation(c, err) {
			h.logger.WarnContext(c.Request.Context(), "register: validation failed", "error", err)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user registered", "user_id", user.ID)
	c.JSON(http.StatusOK, registerResponse{
		Message: "User created successfully",
		User:    newUserResponse(user),
	})
}

// POST /auth/login
// Unknown email and wrong password are indistinguishable to the caller.
func (h *AuthHandler) Login(c *gin.Context) {
	// Credentials that are missing or not strings fail like wrong ones.
	var in validate.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.WarnContext(c.Request.Context(), "login rejected", "reason", "unreadable body")
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
		return
	}
	addr, _ := in.String("email")
	plain, _ := in.String("password")

	pair, err := h.authUsecase.Login(c.Request.Context(), addr, plain)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.logger.WarnContext(c.Request.Context(), "login rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user logged in")
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// GET /auth/userinfo
func (h *AuthHandler) UserInfo(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
		return
	}

	user, err := h.authUsecase.UserInfo(c.Request.Context(), claims)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "userinfo", "user_id", claims.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.logger.InfoContext(c.Request.Context(), "userinfo served", "user_id", user.ID)
	c.JSON(http.StatusOK, newUserResponse(user))
}

// POST /auth/refresh
// Takes the raw bearer token rather than going through the auth middleware,
// since an expired token is acceptable inside the refresh window.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
		return
	}

	pair, err := h.authUsecase.Refresh(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			h.logger.WarnContext(c.Request.Context(), "refresh rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "refresh", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.logger.InfoContext(c.Request.Context(), "token refreshed")
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// POST /auth/logout
// Always 200 once the token has been authenticated; a failed revocation is
// logged but not reported to the client.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
		return
	}

	if err := h.authUsecase.Logout(c.Request.Context(), claims); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "logout", "user_id", claims.UserID, "error", err)
	} else {
		h.logger.InfoContext(c.Request.Context(), "user logged out", "user_id", claims.UserID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "User successfully logged out"})
}
