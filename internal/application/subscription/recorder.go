package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/discovery/subscription-controller/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Usage event outcomes, used as metric labels
const (
	UsageRecorded  = "recorded"
	UsageDuplicate = "duplicate"
	UsageRejected  = "rejected"
)

// RecordResult describes how a usage event was handled
type RecordResult struct {
	EventID        string        `json:"event_id,omitempty"`
	Outcome        string        `json:"outcome"`
	SubscriptionID uuid.UUID     `json:"subscription_id,omitempty"`
	NewEntry       bool          `json:"new_entry"`
	Sweep          *SweepOutcome `json:"sweep,omitempty"`
}

// UsageRecorder applies metering events with a check-then-record policy:
// usage is only recorded while the client's subscription is not exhausted.
type UsageRecorder struct {
	sweeper  *JobSweepController
	subs     subscription.SubscriptionRepository
	projects subscription.ProjectRepository
	usage    subscription.UsageRepository
	events   shared.IdempotencyStore
	eventTTL time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *telemetry.SweepMetrics
}

// NewUsageRecorder creates a new UsageRecorder. events may be nil, in which
// case event ids are not deduplicated.
func NewUsageRecorder(
	sweeper *JobSweepController,
	subs subscription.SubscriptionRepository,
	projects subscription.ProjectRepository,
	usage subscription.UsageRepository,
	events shared.IdempotencyStore,
	eventTTL time.Duration,
	timeout time.Duration,
	logger *zap.Logger,
) *UsageRecorder {
	return &UsageRecorder{
		sweeper:  sweeper,
		subs:     subs,
		projects: projects,
		usage:    usage,
		events:   events,
		eventTTL: eventTTL,
		timeout:  timeout,
		logger:   logger,
	}
}

// SetMetrics sets the metrics collector
func (r *UsageRecorder) SetMetrics(m *telemetry.SweepMetrics) {
	r.metrics = m
}

// RecordUsage sweeps the client first and records the event only when the
// subscription is still within quota. Sentences and messages are added to
// the project's entry; credits replace the stored figure.
func (r *UsageRecorder) RecordUsage(ctx context.Context, ev subscription.UsageEvent) (*RecordResult, error) {
	if ev.ClientID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidIdentifier.Code, "client id is required")
	}
	if err := subscription.ValidateSnetID(ev.SnetID); err != nil {
		return nil, err
	}

	res := &RecordResult{EventID: ev.EventID}
	marked := false
	if ev.EventID != "" && r.events != nil {
		fresh, err := r.markProcessed(ctx, ev)
		if err != nil {
			return nil, shared.NewStoreError("usage_events.mark", err)
		}
		if !fresh {
			res.Outcome = UsageDuplicate
			r.metrics.UsageEvent(ctx, res.Outcome)
			return res, nil
		}
		marked = true
	}

	err := r.record(ctx, ev, res)
	if err != nil && marked {
		// let a retry of this event apply it
		if ferr := r.forget(context.WithoutCancel(ctx), ev); ferr != nil {
			r.logger.Warn("Failed to release usage event id", zap.String("event_id", ev.EventID), zap.Error(ferr))
		}
	}
	if err != nil {
		return nil, err
	}
	r.metrics.UsageEvent(ctx, res.Outcome)
	return res, nil
}

func (r *UsageRecorder) markProcessed(ctx context.Context, ev subscription.UsageEvent) (bool, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()
	return r.events.MarkProcessed(ctx, eventKey(ev), r.eventTTL)
}

func (r *UsageRecorder) forget(ctx context.Context, ev subscription.UsageEvent) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()
	return r.events.Forget(ctx, eventKey(ev))
}

// record holds the sweeper's client lock from the quota check through the
// write, so no sweep of the same client can deactivate in between.
func (r *UsageRecorder) record(ctx context.Context, ev subscription.UsageEvent, res *RecordResult) error {
	unlock := r.sweeper.lockClient(ev.ClientID)
	defer unlock()

	exhausted, out, err := r.sweeper.sweepLocked(ctx, ev.ClientID, ModeUsage)
	if err != nil {
		return err
	}
	if exhausted {
		res.Outcome = UsageRejected
		res.Sweep = out
		r.logger.Info("Usage rejected, subscription exhausted",
			zap.String("client_id", ev.ClientID.String()),
			zap.String("snet_id", ev.SnetID),
			zap.String("quota", string(out.Diagnostic.Quota)),
		)
		return nil
	}

	active, err := storeCall(ctx, r.timeout, "subscriptions.find_active",
		func(ctx context.Context) ([]subscription.Subscription, error) {
			return r.subs.FindActive(ctx, ev.ClientID)
		})
	if err != nil {
		return err
	}
	switch len(active) {
	case 0:
		// deactivated by another controller instance since the check
		res.Outcome = UsageRejected
		return nil
	case 1:
	default:
		return &subscription.ConsistencyWarning{ClientID: ev.ClientID, Matches: len(active), Reason: "multiple active subscriptions"}
	}
	sub := active[0]
	res.SubscriptionID = sub.ID

	project, err := storeCall(ctx, r.timeout, "projects.find",
		func(ctx context.Context) (*subscription.Project, error) {
			return r.projects.FindBySnetID(ctx, ev.ClientID, ev.SnetID)
		})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError(shared.ErrNotFound.Code, "project "+ev.SnetID+" not found for client")
		}
		return err
	}

	record, err := storeCall(ctx, r.timeout, "usage.ensure_record",
		func(ctx context.Context) (*subscription.UsageRecord, error) {
			return r.usage.EnsureRecord(ctx, ev.ClientID, sub.ID, sub.PlanRefID)
		})
	if err != nil {
		return err
	}

	sentences, messages, credits := ev.Normalized()
	rows, err := storeCall(ctx, r.timeout, "usage.increment_entry",
		func(ctx context.Context) (int64, error) {
			return r.usage.IncrementEntry(ctx, record.ID, ev.SnetID, sentences, messages, ev.Credits)
		})
	if err != nil {
		return err
	}
	if rows == 0 {
		entry := subscription.UsageEntry{
			SnetID:         ev.SnetID,
			ProjectName:    project.Label,
			SentencesCount: sentences,
			MessagesCount:  messages,
			CreditUnits:    credits,

			CreditsReported: ev.Credits != nil,
		}
		if _, err := storeCall(ctx, r.timeout, "usage.append_entry",
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, r.usage.AppendEntry(ctx, record.ID, entry)
			}); err != nil {
			return err
		}
		res.NewEntry = true
	}

	res.Outcome = UsageRecorded
	r.logger.Debug("Usage recorded",
		zap.String("client_id", ev.ClientID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.String("snet_id", ev.SnetID),
		zap.Int64("sentences", sentences),
		zap.Int64("messages", messages),
		zap.Bool("new_entry", res.NewEntry),
	)
	return nil
}

func eventKey(ev subscription.UsageEvent) string {
	return "usage:" + ev.ClientID.String() + ":" + ev.EventID
}
