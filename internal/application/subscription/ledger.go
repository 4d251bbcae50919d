package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UsageIntervalLedger closes the open usage interval of a project once its
// subscription stops.
type UsageIntervalLedger struct {
	lifecycle *SubscriptionLifecycleManager
	projects  subscription.ProjectRepository
	intervals subscription.IntervalRepository
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewUsageIntervalLedger creates a new UsageIntervalLedger
func NewUsageIntervalLedger(
	lifecycle *SubscriptionLifecycleManager,
	projects subscription.ProjectRepository,
	intervals subscription.IntervalRepository,
	timeout time.Duration,
	logger *zap.Logger,
) *UsageIntervalLedger {
	return &UsageIntervalLedger{
		lifecycle: lifecycle,
		projects:  projects,
		intervals: intervals,
		timeout:   timeout,
		now:       time.Now,
		logger:    logger,
	}
}

// CloseResult describes what CloseOpenInterval did
type CloseResult struct {
	SnetID             string                           `json:"snet_id"`
	SubscriptionID     uuid.UUID                        `json:"subscription_id"`
	Matches            int                              `json:"matches"`
	Closed             bool                             `json:"closed"`
	StreamUsageUpdated bool                             `json:"stream_usage_updated"`
	Warning            *subscription.ConsistencyWarning `json:"-"`
}

// CloseOpenInterval closes the open interval of a project under the
// client's active or most recently active subscription. Nothing to close is
// a no-op.
func (l *UsageIntervalLedger) CloseOpenInterval(ctx context.Context, clientID, snetID string) (CloseResult, error) {
	id, err := subscription.ParseClientID(clientID)
	if err != nil {
		return CloseResult{SnetID: snetID}, err
	}
	if err := subscription.ValidateSnetID(snetID); err != nil {
		return CloseResult{SnetID: snetID}, err
	}

	sub, err := l.lifecycle.ResolveSubscription(ctx, id)
	if err != nil || sub == nil {
		return CloseResult{SnetID: snetID}, err
	}
	return l.CloseOpenIntervalFor(ctx, sub, snetID)
}

// CloseOpenIntervalFor closes the project's open interval under sub. The
// match key is subscription, project, the open marker and the project's
// current query signature. Exactly one match is closed; more than one is
// left untouched and reported as a consistency warning.
func (l *UsageIntervalLedger) CloseOpenIntervalFor(ctx context.Context, sub *subscription.Subscription, snetID string) (CloseResult, error) {
	res := CloseResult{SnetID: snetID, SubscriptionID: sub.ID}
	if err := subscription.ValidateSnetID(snetID); err != nil {
		return res, err
	}
	log := l.logger.With(
		zap.String("client_id", sub.ClientID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.String("snet_id", snetID),
	)

	project, err := storeCall(ctx, l.timeout, "projects.find",
		func(ctx context.Context) (*subscription.Project, error) {
			return l.projects.FindBySnetID(ctx, sub.ClientID, snetID)
		})
	if errors.Is(err, shared.ErrNotFound) {
		log.Debug("Project not found, no interval to close")
		return res, nil
	}
	if err != nil {
		return res, err
	}

	open, err := storeCall(ctx, l.timeout, "intervals.find_open",
		func(ctx context.Context) ([]subscription.UsageInterval, error) {
			return l.intervals.FindOpen(ctx, sub.ID, snetID, project.QuerySignature)
		})
	if err != nil {
		return res, err
	}
	res.Matches = len(open)

	switch len(open) {
	case 0:
		return res, nil
	case 1:
	default:
		res.Warning = &subscription.ConsistencyWarning{
			ClientID:       sub.ClientID,
			SubscriptionID: sub.ID,
			SnetID:         snetID,
			Matches:        len(open),
			Reason:         "multiple open usage intervals",
		}
		log.Warn("Ambiguous open intervals, leaving them open", zap.Int("matches", len(open)))
		return res, nil
	}

	// The stream summary goes first so the still-open interval keeps marking
	// the project as unsettled if the close below never happens.
	rows, err := storeCall(ctx, l.timeout, "stream_usages.deactivate",
		func(ctx context.Context) (int64, error) {
			return l.intervals.DeactivateStreamUsage(ctx, sub.ID, snetID)
		})
	if err != nil {
		return res, err
	}
	res.StreamUsageUpdated = rows > 0

	rows, err = storeCall(ctx, l.timeout, "intervals.close",
		func(ctx context.Context) (int64, error) {
			return l.intervals.Close(ctx, open[0].ID, l.now())
		})
	if err != nil {
		return res, err
	}
	res.Closed = rows > 0

	if res.Closed {
		log.Info("Usage interval closed", zap.String("interval_id", open[0].ID.String()))
	} else {
		log.Debug("Usage interval closed concurrently", zap.String("interval_id", open[0].ID.String()))
	}
	return res, nil
}

// OpenProjects lists projects that still have an open interval under the subscription
func (l *UsageIntervalLedger) OpenProjects(ctx context.Context, subscriptionID uuid.UUID) ([]string, error) {
	return storeCall(ctx, l.timeout, "intervals.open_projects",
		func(ctx context.Context) ([]string, error) {
			return l.intervals.OpenSnetIDs(ctx, subscriptionID)
		})
}
