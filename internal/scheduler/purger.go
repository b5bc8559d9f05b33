package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/locations-api/internal/metrics"
	"github.com/robfig/cron/v3"
)

const purgeBatchSize = 500

// RevokedTokenStore is satisfied by *postgres.RevokedTokenRepository.
type RevokedTokenStore interface {
	PurgeExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// Purger deletes denylist entries on a cron schedule once their horizon has
// passed. By then the token can neither authenticate nor be refreshed.
type Purger struct {
	store    RevokedTokenStore
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time
}

func NewPurger(store RevokedTokenStore, cronExpr string, logger *slog.Logger) (*Purger, error) {
	sched, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", cronExpr, err)
	}
	return &Purger{
		store:    store,
		schedule: sched,
		logger:   logger.With("component", "purger"),
		now:      time.Now,
	}, nil
}

// Start blocks, purging at every scheduled time until ctx is cancelled.
func (p *Purger) Start(ctx context.Context) {
	p.logger.Info("purger started", "next_run", p.schedule.Next(p.now()))

	for {
		timer := time.NewTimer(p.schedule.Next(p.now()).Sub(p.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("purger shut down")
			return
		case <-timer.C:
			if _, err := p.Purge(ctx); err != nil {
				p.logger.Error("purge revoked tokens", "error", err)
			}
		}
	}
}

// Purge removes expired entries in batches until a short batch signals the
// backlog is drained. It returns the number of rows removed.
func (p *Purger) Purge(ctx context.Context) (int, error) {
	start := p.now()
	defer func() {
		metrics.PurgeCycleDuration.Observe(time.Since(start).Seconds())
	}()

	total := 0
	for {
		n, err := p.store.PurgeExpired(ctx, start, purgeBatchSize)
		total += n
		metrics.RevokedTokensPurgedTotal.Add(float64(n))
		if err != nil {
			return total, err
		}
		if n < purgeBatchSize {
			break
		}
	}

	if total > 0 {
		p.logger.Info("purged revoked tokens", "count", total)
	}
	return total, nil
}
