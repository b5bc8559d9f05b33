package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/locations-api/internal/transport/http/handler"
	"github.com/ErlanBelekov/locations-api/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authn middleware.Authenticator, authHandler *handler.AuthHandler, locationHandler *handler.LocationHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(authn, logger)

	// Public auth routes. Refresh reads the bearer token itself so that an
	// expired token can still be exchanged inside the refresh window.
	auth := r.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/userinfo", authMW, authHandler.UserInfo)
	auth.POST("/logout", authMW, authHandler.Logout)

	// Protected location routes
	locations := r.Group("/locations", authMW)
	locations.GET("", locationHandler.List)
	locations.POST("", locationHandler.Create)
	locations.GET("/:id", locationHandler.GetByID)
	locations.PUT("/:id", locationHandler.Update)
	locations.PATCH("/:id", locationHandler.Update)
	locations.DELETE("/:id", locationHandler.Delete)

	return r
}
