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
	"github.com/ErlanBelekov/locations-api/internal/health"
	"github.com/ErlanBelekov/locations-api/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/locations-api/internal/log"
	"github.com/ErlanBelekov/locations-api/internal/metrics"
	"github.com/ErlanBelekov/locations-api/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
)

// scheduler runs background maintenance: today that is purging expired
// entries from the postgres token denylist on PURGE_CRON.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	purger, err := scheduler.NewPurger(postgres.NewRevokedTokenRepository(pool), cfg.PurgeCron, logger)
	if err != nil {
		stop()
		pool.Close()
		log.Fatalf("purger: %v", err)
	}
	go purger.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("scheduler shut down")
}
