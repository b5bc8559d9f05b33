package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	applog "github.com/ErlanBelekov/locations-api/internal/log"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized  = "Unauthorized"
	errInternal      = "Internal server error"
	claimsContextKey = "claims"
)

// Authenticator is satisfied by *usecase.AuthUsecase.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*domain.Claims, error)
}

// Auth validates a Bearer access token and stores its claims in the gin
// context. Handlers read them with ClaimsFrom.
func Auth(authn Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		claims, err := authn.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, domain.ErrTokenInvalid) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
				return
			}
			logger.ErrorContext(c.Request.Context(), "authenticate", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errInternal})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Request = c.Request.WithContext(applog.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return raw, raw != ""
}

// ClaimsFrom returns the claims Auth stored for this request.
func ClaimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok && claims != nil
}

// WithClaims stores claims the way Auth does. Used by handler tests.
func WithClaims(c *gin.Context, claims *domain.Claims) {
	c.Set(claimsContextKey, claims)
}
