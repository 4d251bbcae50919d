package scheduler

import (
	"context"
	"sync"
	"time"

	appsub "github.com/discovery/subscription-controller/internal/application/subscription"
	"go.uber.org/zap"
)

// BatchSweeper runs one sweep over every client
type BatchSweeper interface {
	SweepAll(ctx context.Context) (*appsub.SweepSummary, error)
}

// SweepScheduler runs batch sweeps on a fixed interval. Runs never
// overlap; a tick that arrives while a sweep is still running is skipped.
type SweepScheduler struct {
	sweeper   BatchSweeper
	logger    *zap.Logger
	config    SweepSchedulerConfig
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  bool
	last      *appsub.SweepSummary
}

// SweepSchedulerConfig holds configuration for the sweep scheduler
type SweepSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval between the start of two sweeps
	Interval time.Duration

	// BatchTimeout bounds one SweepAll run
	BatchTimeout time.Duration

	// RunOnStart sweeps once as soon as the scheduler starts
	RunOnStart bool
}

// DefaultSweepSchedulerConfig returns default configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Enabled:      true,
		Interval:     5 * time.Minute,
		BatchTimeout: 10 * time.Minute,
		RunOnStart:   true,
	}
}

// NewSweepScheduler creates a new sweep scheduler
func NewSweepScheduler(sweeper BatchSweeper, logger *zap.Logger, config SweepSchedulerConfig) *SweepScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSweepSchedulerConfig().Interval
	}
	return &SweepScheduler{
		sweeper: sweeper,
		logger:  logger,
		config:  config,
	}
}

// Start starts the sweep loop
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Sweep scheduler is disabled")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.runCtx, s.cancel = ctx, cancel
	s.isRunning = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx)

	s.logger.Info("Sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("batch_timeout", s.config.BatchTimeout),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop cancels the running sweep and waits for it to return
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sweep scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *SweepScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.tryExecute(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sweep loop stopping")
			return
		case <-ticker.C:
			s.tryExecute(ctx)
		}
	}
}

// tryExecute runs a sweep unless one is already in flight
func (s *SweepScheduler) tryExecute(ctx context.Context) bool {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		s.logger.Warn("Previous sweep still running, skipping this tick")
		return false
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	s.execute(ctx)
	return true
}

func (s *SweepScheduler) execute(ctx context.Context) {
	sweepCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.config.BatchTimeout > 0 {
		sweepCtx, cancel = context.WithTimeout(ctx, s.config.BatchTimeout)
	}
	defer cancel()

	startTime := time.Now()
	summary, err := s.sweeper.SweepAll(sweepCtx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Scheduled sweep failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	if sweepCtx.Err() != nil {
		s.logger.Warn("Scheduled sweep cut short",
			zap.Duration("duration", duration),
			zap.Int("clients", summary.Clients),
			zap.Error(sweepCtx.Err()),
		)
	}
}

// TriggerImmediateSweep starts a sweep now without waiting for the next
// tick. The sweep is bound to the scheduler's lifetime, not to the caller.
func (s *SweepScheduler) TriggerImmediateSweep() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	if s.sweeping {
		s.mu.Unlock()
		return ErrSweepInProgress
	}
	s.wg.Add(1)
	ctx := s.runCtx
	s.mu.Unlock()

	s.logger.Info("Triggering immediate sweep")

	go func() {
		defer s.wg.Done()
		s.tryExecute(ctx)
	}()
	return nil
}

// LastSummary returns the summary of the last completed sweep, or nil
func (s *SweepScheduler) LastSummary() *appsub.SweepSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// IsRunning returns whether the scheduler is running
func (s *SweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
