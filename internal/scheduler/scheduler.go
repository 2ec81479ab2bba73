// Package scheduler registers the per-source cron triggers.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cinefeed/cinefeed/internal/crawl"
)

// Scheduler owns the cron runner that fires full-pass triggers on each
// source's schedule.
type Scheduler struct {
	cron     *cron.Cron
	registry *crawl.Registry
	logger   *zap.Logger
}

// New builds a Scheduler over the orchestrator registry.
func New(registry *crawl.Registry, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(),
		registry: registry,
		logger:   logger,
	}
}

// Register adds a cron entry for source using spec. Expected trigger
// refusals (already running, cooling down, disabled) are logged at info
// level; anything else is a warning.
func (s *Scheduler) Register(source, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		o := s.registry.Get(source)
		if o == nil {
			s.logger.Warn("scheduled source not registered", zap.String("source", source))
			return
		}
		err := o.Trigger(context.Background(), "")
		switch {
		case err == nil:
		case errors.Is(err, crawl.ErrAlreadyRunning),
			errors.Is(err, crawl.ErrCoolingDown),
			errors.Is(err, crawl.ErrSourceDisabled):
			// Trigger already logged the refusal with context.
		default:
			s.logger.Warn("scheduled crawl failed",
				zap.String("source", source), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("register cron %q for %s: %w", spec, source, err)
	}
	s.logger.Info("cron trigger registered",
		zap.String("source", source), zap.String("spec", spec))
	return nil
}

// Start launches the cron runner.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to hand back control.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
