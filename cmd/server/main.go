package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/locations-api/config"
	"github.com/ErlanBelekov/locations-api/internal/email"
	"github.com/ErlanBelekov/locations-api/internal/health"
	"github.com/ErlanBelekov/locations-api/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/locations-api/internal/infrastructure/redis"
	ctxlog "github.com/ErlanBelekov/locations-api/internal/log"
	"github.com/ErlanBelekov/locations-api/internal/metrics"
	"github.com/ErlanBelekov/locations-api/internal/password"
	"github.com/ErlanBelekov/locations-api/internal/repository"
	"github.com/ErlanBelekov/locations-api/internal/token"
	httptransport "github.com/ErlanBelekov/locations-api/internal/transport/http"
	"github.com/ErlanBelekov/locations-api/internal/transport/http/handler"
	"github.com/ErlanBelekov/locations-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			stop()
			pool.Close()
			log.Fatalf("migrate: %v", err)
		}
	}

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	// Revoked tokens live in redis when configured, otherwise in postgres
	// where cmd/scheduler purges them.
	var denylist repository.TokenDenylist = postgres.NewRevokedTokenRepository(pool)
	if cfg.RedisURL != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			stop()
			pool.Close()
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		redisDenylist := redis.NewDenylist(rdb)
		checker.Add("redis", redisDenylist)
		denylist = redisDenylist
		logger.Info("token denylist backed by redis")
	}

	// Auth
	userRepo := postgres.NewUserRepository(pool)
	issuer := token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL(), cfg.RefreshTTL())
	authUsecase := usecase.NewAuthUsecase(
		userRepo,
		issuer,
		password.NewHasher(bcrypt.DefaultCost),
		logger,
		usecase.WithDenylist(denylist),
		usecase.WithMailer(email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)),
	)
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	// Locations
	locationRepo := postgres.NewLocationRepository(pool, logger)
	locationUsecase := usecase.NewLocationUsecase(locationRepo)
	locationHandler := handler.NewLocationHandler(locationUsecase, logger)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, authUsecase, authHandler, locationHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
