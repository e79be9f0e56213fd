package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DueSweeper is implemented by ProjectRegistry.
type DueSweeper interface {
	RunDueSweep(ctx context.Context, now time.Time) *SweepReport
}

// Scheduler runs the due sweep on a fixed interval inside the server process.
type Scheduler struct {
	enabled  bool
	interval time.Duration
	logger   *zap.Logger
	sweeper  DueSweeper
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	// running guards against overlapping sweeps when one outlasts the interval.
	running sync.Mutex
}

func NewScheduler(enabled bool, interval time.Duration, logger *zap.Logger, sweeper DueSweeper) *Scheduler {
	return &Scheduler{
		enabled:  enabled,
		interval: interval,
		logger:   logger,
		sweeper:  sweeper,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	s.logger.Info("Starting scheduler", zap.Duration("sweep_interval", s.interval))

	s.ticker = time.NewTicker(s.interval)

	// Run first sweep immediately
	go func() {
		s.logger.Info("Running initial sweep")
		s.runSweep(ctx)
	}()

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runSweep(ctx)
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.logger.Info("Scheduler shutdown completed")
	})
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("Previous sweep still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	start := time.Now()
	report := s.sweeper.RunDueSweep(ctx, start)
	duration := time.Since(start)

	if len(report.Errors) > 0 {
		s.logger.Error("Sweep completed with project errors",
			zap.Strings("errors", report.Errors),
			zap.Duration("duration", duration))
		return
	}

	s.logger.Debug("Sweep completed",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Count(SweepFailed)),
		zap.Duration("duration", duration))
}
