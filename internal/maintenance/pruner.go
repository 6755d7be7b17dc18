// Package maintenance runs periodic housekeeping jobs for the calendar server.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultPruneInterval is used when no interval is configured.
const DefaultPruneInterval = time.Hour

// SessionPruner deletes login sessions whose expiry has passed.
type SessionPruner interface {
	PruneExpiredSessions(ctx context.Context) (int64, error)
}

// Pruner removes expired login sessions on a fixed interval.
type Pruner struct {
	sessions SessionPruner
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	scheduler *gocron.Scheduler
	cancel    context.CancelFunc
}

// NewPruner builds a pruner. A non-positive interval falls back to DefaultPruneInterval.
func NewPruner(sessions SessionPruner, interval time.Duration, logger *slog.Logger) *Pruner {
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{sessions: sessions, interval: interval, logger: logger}
}

// Start schedules the job. The first run happens immediately. Runs never overlap.
func (p *Pruner) Start(ctx context.Context) error {
	if p == nil || p.sessions == nil {
		return errors.New("maintenance: pruner not configured")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheduler != nil {
		return errors.New("maintenance: pruner already started")
	}

	jobCtx, cancel := context.WithCancel(ctx)
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Every(p.interval).Do(p.run, jobCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule session pruning: %w", err)
	}
	scheduler.StartAsync()

	p.scheduler = scheduler
	p.cancel = cancel
	p.logger.Info("session pruning scheduled", "interval", p.interval.String())
	return nil
}

// Stop halts the schedule and waits for a running job to observe cancellation.
func (p *Pruner) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheduler == nil {
		return
	}
	p.cancel()
	p.scheduler.Stop()
	p.scheduler = nil
	p.cancel = nil
}

func (p *Pruner) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	removed, err := p.sessions.PruneExpiredSessions(ctx)
	if err != nil {
		p.logger.Error("session pruning failed", "error", err)
		return
	}
	if removed > 0 {
		p.logger.Info("pruned expired sessions", "removed", removed)
	}
}
