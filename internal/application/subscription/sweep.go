package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/discovery/subscription-controller/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sweep modes, used as log and metric labels
const (
	ModeBatch       = "batch"
	ModeInteractive = "interactive"
	ModeUsage       = "usage"
)

// SweepConfig holds configuration for the sweep controller
type SweepConfig struct {
	Concurrency    int
	RetryTransient bool
	Timeouts       Timeouts
}

// DefaultSweepConfig returns default sweep configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Concurrency:    8,
		RetryTransient: true,
		Timeouts:       DefaultTimeouts(),
	}
}

// SweepOutcome is what one client sweep observed and changed
type SweepOutcome struct {
	ClientID        uuid.UUID                          `json:"client_id"`
	Exhausted       bool                               `json:"exhausted"`
	Diagnostic      subscription.Diagnostic            `json:"diagnostic"`
	SubscriptionID  uuid.UUID                          `json:"subscription_id"`
	Deactivated     bool                               `json:"deactivated"`
	Halted          []string                           `json:"halted,omitempty"`
	HaltFailures    []*subscription.JobControlError    `json:"-"`
	IntervalsClosed int                                `json:"intervals_closed"`
	Warnings        []*subscription.ConsistencyWarning `json:"-"`
}

// ClientFailure records a client skipped in a batch
type ClientFailure struct {
	ClientID uuid.UUID
	Err      error
}

// SweepSummary aggregates one SweepAll run
type SweepSummary struct {
	Clients         int             `json:"clients"`
	Exhausted       int             `json:"exhausted"`
	Deactivated     int             `json:"deactivated"`
	HaltFailures    int             `json:"halt_failures"`
	IntervalsClosed int             `json:"intervals_closed"`
	Warnings        int             `json:"warnings"`
	Retried         int             `json:"retried"`
	Failed          int             `json:"failed"`
	Failures        []ClientFailure `json:"-"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}

func (s *SweepSummary) record(id uuid.UUID, out *SweepOutcome, retried bool, err error) {
	if retried {
		s.Retried++
	}
	if err != nil {
		if errors.Is(err, subscription.ErrConsistency) {
			s.Warnings++
		}
		s.Failed++
		s.Failures = append(s.Failures, ClientFailure{ClientID: id, Err: err})
		return
	}
	if out == nil || !out.Exhausted {
		return
	}
	s.Exhausted++
	if out.Deactivated {
		s.Deactivated++
	}
	s.HaltFailures += len(out.HaltFailures)
	s.IntervalsClosed += out.IntervalsClosed
	s.Warnings += len(out.Warnings)
}

// JobSweepController evaluates clients and, for exhausted ones, halts their
// jobs, deactivates the subscription and closes open usage intervals.
type JobSweepController struct {
	clients   subscription.ClientRepository
	projects  subscription.ProjectRepository
	evaluator *QuotaEvaluator
	lifecycle *SubscriptionLifecycleManager
	ledger    *UsageIntervalLedger
	jobs      subscription.JobController
	config    SweepConfig
	logger    *zap.Logger
	metrics   *telemetry.SweepMetrics
	locks     *clientLocks
}

// NewJobSweepController creates a new JobSweepController
func NewJobSweepController(
	clients subscription.ClientRepository,
	projects subscription.ProjectRepository,
	evaluator *QuotaEvaluator,
	lifecycle *SubscriptionLifecycleManager,
	ledger *UsageIntervalLedger,
	jobs subscription.JobController,
	config SweepConfig,
	logger *zap.Logger,
) *JobSweepController {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &JobSweepController{
		clients:   clients,
		projects:  projects,
		evaluator: evaluator,
		lifecycle: lifecycle,
		ledger:    ledger,
		jobs:      jobs,
		config:    config,
		logger:    logger,
		locks:     newClientLocks(),
	}
}

// SetMetrics sets the sweep metrics collector
func (c *JobSweepController) SetMetrics(m *telemetry.SweepMetrics) {
	c.metrics = m
}

// SweepAll sweeps every client with bounded parallelism. A client that
// fails is recorded in the summary and never stops the batch; transient
// store failures are retried once when configured. Only a failure to list
// clients is returned as an error.
func (c *JobSweepController) SweepAll(ctx context.Context) (*SweepSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "sweep", "all")
	defer span.End()

	summary := &SweepSummary{StartedAt: time.Now()}
	ids, err := storeCall(ctx, c.config.Timeouts.Store, "clients.list",
		func(ctx context.Context) ([]uuid.UUID, error) {
			return c.clients.ListIDs(ctx)
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	summary.Clients = len(ids)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.config.Concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, out, retried, err := c.sweepWithRetry(ctx, id, ModeBatch)
			mu.Lock()
			summary.record(id, out, retried, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.FinishedAt = time.Now()
	c.metrics.BatchFinished(ctx, summary.FinishedAt.Sub(summary.StartedAt))
	c.logger.Info("Batch sweep completed",
		zap.Int("clients", summary.Clients),
		zap.Int("exhausted", summary.Exhausted),
		zap.Int("deactivated", summary.Deactivated),
		zap.Int("intervals_closed", summary.IntervalsClosed),
		zap.Int("halt_failures", summary.HaltFailures),
		zap.Int("warnings", summary.Warnings),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

// sweepWithRetry sweeps id and, when configured, repeats it once after a
// transient store failure. The third result reports whether it retried.
func (c *JobSweepController) sweepWithRetry(ctx context.Context, id uuid.UUID, mode string) (bool, *SweepOutcome, bool, error) {
	exhausted, out, err := c.sweepClient(ctx, id, mode)
	if err == nil || !c.config.RetryTransient || !errors.Is(err, shared.ErrTransientStore) || ctx.Err() != nil {
		c.logClientFailure(id, err)
		return exhausted, out, false, err
	}

	c.logger.Warn("Transient store failure, retrying client once",
		zap.String("client_id", id.String()),
		zap.String("mode", mode),
		zap.Error(err),
	)
	exhausted, out, err = c.sweepClient(ctx, id, mode)
	c.logClientFailure(id, err)
	return exhausted, out, true, err
}

func (c *JobSweepController) logClientFailure(id uuid.UUID, err error) {
	switch {
	case err == nil:
	case errors.Is(err, subscription.ErrConsistency):
		c.logger.Warn("Client skipped on consistency warning", zap.String("client_id", id.String()), zap.Error(err))
	default:
		c.logger.Error("Client sweep failed, skipped until next cycle", zap.String("client_id", id.String()), zap.Error(err))
	}
}

// SweepOne sweeps a single client. It returns whether the client was
// exhausted; the outcome tells whether this call deactivated anything.
// A client that is already settled returns true and writes nothing.
// Transient store failures are retried once like in SweepAll.
func (c *JobSweepController) SweepOne(ctx context.Context, clientID string) (bool, *SweepOutcome, error) {
	id, err := subscription.ParseClientID(clientID)
	if err != nil {
		return false, nil, err
	}
	exhausted, out, _, err := c.sweepWithRetry(ctx, id, ModeInteractive)
	return exhausted, out, err
}

// lockClient takes the per-client lock shared by sweeps and usage recording
func (c *JobSweepController) lockClient(id uuid.UUID) func() {
	return c.locks.lock(id)
}

func (c *JobSweepController) sweepClient(ctx context.Context, id uuid.UUID, mode string) (bool, *SweepOutcome, error) {
	unlock := c.locks.lock(id)
	defer unlock()
	return c.sweepLocked(ctx, id, mode)
}

// sweepLocked is sweepClient for callers already holding the client lock
func (c *JobSweepController) sweepLocked(ctx context.Context, id uuid.UUID, mode string) (bool, *SweepOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "sweep", "client",
		telemetry.AttrClientID.String(id.String()),
		telemetry.AttrSweepMode.String(mode),
	)
	defer span.End()

	exhausted, out, err := c.settle(ctx, id)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		telemetry.RecordError(span, err)
	case exhausted:
		outcome = "exhausted"
	}
	c.metrics.ClientSwept(ctx, mode, outcome)
	return exhausted, out, err
}

// settle runs evaluate, halt, deactivate and close for one client. The
// caller holds the client lock. Every step re-reads current state so a
// sweep interrupted halfway is completed by the next one.
func (c *JobSweepController) settle(ctx context.Context, id uuid.UUID) (bool, *SweepOutcome, error) {
	exhausted, diag, err := c.evaluator.isExhausted(ctx, id)
	if err != nil {
		return false, nil, err
	}
	out := &SweepOutcome{ClientID: id, Exhausted: exhausted, Diagnostic: diag}
	if !exhausted {
		return false, out, nil
	}
	c.metrics.Exhausted(ctx, string(diag.Quota))

	log := c.logger.With(zap.String("client_id", id.String()))
	log.Debug("Client exhausted",
		zap.String("quota", string(diag.Quota)),
		zap.String("reason", diag.Reason),
	)

	// Read before deactivating: intervals are keyed by this subscription.
	sub, err := c.lifecycle.ResolveSubscription(ctx, id)
	if err != nil {
		return true, out, err
	}

	streaming, err := storeCall(ctx, c.config.Timeouts.Store, "projects.find_streaming",
		func(ctx context.Context) ([]subscription.Project, error) {
			return c.projects.FindStreaming(ctx, id)
		})
	if err != nil {
		return true, out, err
	}
	c.haltProjects(ctx, log, out, streaming)

	if sub == nil {
		return true, out, nil
	}
	out.SubscriptionID = sub.ID

	if sub.IsActive {
		res, err := c.lifecycle.deactivate(ctx, id)
		if err != nil {
			return true, out, err
		}
		out.Deactivated = res.Changed
		if res.Changed {
			c.metrics.Deactivated(ctx)
		}
	}

	open, err := c.ledger.OpenProjects(ctx, sub.ID)
	if err != nil {
		return true, out, err
	}
	targets := lo.Uniq(append(
		lo.Map(streaming, func(p subscription.Project, _ int) string { return p.SnetID }),
		open...,
	))
	for _, snetID := range targets {
		res, err := c.ledger.CloseOpenIntervalFor(ctx, sub, snetID)
		if err != nil {
			return true, out, err
		}
		if res.Closed {
			out.IntervalsClosed++
		}
		if res.Warning != nil {
			out.Warnings = append(out.Warnings, res.Warning)
			c.metrics.ConsistencyWarning(ctx, "close_interval")
		}
	}
	c.metrics.IntervalsClosed(ctx, out.IntervalsClosed)

	if out.Deactivated || out.IntervalsClosed > 0 || len(out.Halted) > 0 {
		log.Info("Client settled",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("quota", string(diag.Quota)),
			zap.Bool("deactivated", out.Deactivated),
			zap.Strings("halted", out.Halted),
			zap.Int("halt_failures", len(out.HaltFailures)),
			zap.Int("intervals_closed", out.IntervalsClosed),
		)
	}
	return true, out, nil
}

// haltProjects asks job control to stop each project. Projects whose halt
// is confirmed are marked inactive; the rest stay active so the next sweep
// tries again. Failures never stop the sweep.
func (c *JobSweepController) haltProjects(ctx context.Context, log *zap.Logger, out *SweepOutcome, projects []subscription.Project) {
	if len(projects) == 0 {
		return
	}

	reachCtx, cancel := bounded(ctx, c.config.Timeouts.Job)
	reachable := c.jobs.IsReachable(reachCtx)
	cancel()

	for _, p := range projects {
		plog := log.With(zap.String("snet_id", p.SnetID), zap.String("mode", string(p.Mode)))

		if !reachable {
			out.HaltFailures = append(out.HaltFailures, &subscription.JobControlError{SnetID: p.SnetID, Unreachable: true})
			c.metrics.Halt(ctx, "unreachable")
			plog.Warn("Job control unreachable, project left active")
			continue
		}

		haltCtx, cancel := bounded(ctx, c.config.Timeouts.Job)
		outcome, err := c.jobs.HaltJob(haltCtx, p.SnetID)
		cancel()
		c.metrics.Halt(ctx, outcome.String())

		if err != nil || !outcome.Stopped() {
			jerr := &subscription.JobControlError{SnetID: p.SnetID, Outcome: outcome, Err: err}
			out.HaltFailures = append(out.HaltFailures, jerr)
			plog.Warn("Job halt failed, project left active", zap.Error(jerr))
			continue
		}

		if _, err := storeCall(ctx, c.config.Timeouts.Store, "projects.mark_inactive",
			func(ctx context.Context) (int64, error) {
				return c.projects.MarkInactive(ctx, p.ClientID, p.SnetID)
			}); err != nil {
			plog.Warn("Job halted but project not marked inactive", zap.Error(err))
			continue
		}
		out.Halted = append(out.Halted, p.SnetID)
		plog.Info("Job halted", zap.String("outcome", outcome.String()))
	}
}
