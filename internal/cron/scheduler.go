package cron

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
)

// Scheduler triggers the runner on a fixed cadence. It owns its lifecycle:
// Start blocks until the context is canceled or Stop is called, and Stop
// waits for the loop to exit.
type Scheduler struct {
	runner    *Runner
	clock     adapter.Clock
	cadence   time.Duration
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewScheduler creates a scheduler that triggers the runner every cadence.
func NewScheduler(runner *Runner, clock adapter.Clock, cadence time.Duration) *Scheduler {
	return &Scheduler{
		runner:    runner,
		clock:     clock,
		cadence:   cadence,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the scheduler's name for logging
func (s *Scheduler) Name() string {
	return "product-aggregation-scheduler"
}

// Start begins the trigger loop. The first trigger fires immediately, then
// one per cadence tick. This is a blocking call.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting aggregation scheduler",
		zap.Duration("cadence", s.cadence),
	)

	s.trigger(ctx)

	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Scheduler stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Scheduler stop requested")
			return nil
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// Stop gracefully stops the scheduler, waiting for the loop to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	logger.InfoCtx(ctx, "Stopping aggregation scheduler")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Scheduler stop interrupted by context timeout")
		return ctx.Err()
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	if _, err := s.runner.Process(ctx, s.clock.Now()); err != nil {
		logger.ErrorCtx(ctx, err)
	}
}
