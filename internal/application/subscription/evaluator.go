package subscription

import (
	"context"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuotaEvaluator decides whether a client's subscription has expired or
// exhausted its sentence or credit quota.
type QuotaEvaluator struct {
	subs       subscription.SubscriptionRepository
	aggregator *UsageAggregator
	timeout    time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// EvaluatorOption configures a QuotaEvaluator
type EvaluatorOption func(*QuotaEvaluator)

// WithClock overrides the evaluation clock
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *QuotaEvaluator) {
		e.now = now
	}
}

// NewQuotaEvaluator creates a new QuotaEvaluator
func NewQuotaEvaluator(
	subs subscription.SubscriptionRepository,
	aggregator *UsageAggregator,
	timeout time.Duration,
	logger *zap.Logger,
	opts ...EvaluatorOption,
) *QuotaEvaluator {
	e := &QuotaEvaluator{
		subs:       subs,
		aggregator: aggregator,
		timeout:    timeout,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// QuotaReport carries all three quota decisions for a client
type QuotaReport struct {
	ClientID  uuid.UUID                `json:"client_id"`
	Exhausted bool                     `json:"exhausted"`
	Checks    []subscription.Diagnostic `json:"checks"`
}

// evaluation is the state one decision is made against
type evaluation struct {
	clientID    uuid.UUID
	active      *subscription.Subscription
	now         time.Time
	usage       *subscription.UsageTotals
	usageLoaded bool
}

// Expired reports whether the client has no active subscription or the
// active one ended before now.
func (e *QuotaEvaluator) Expired(ctx context.Context, clientID string) (bool, subscription.Diagnostic, error) {
	id, err := subscription.ParseClientID(clientID)
	if err != nil {
		return false, subscription.Diagnostic{}, err
	}
	ev, err := e.begin(ctx, id)
	if err != nil {
		return false, subscription.Diagnostic{}, err
	}
	d := e.checkExpiry(ev)
	return d.Exhausted, d, nil
}

// SentencesExhausted reports whether the active subscription's sentence sum
// has reached its quota.
func (e *QuotaEvaluator) SentencesExhausted(ctx context.Context, clientID string) (bool, subscription.Diagnostic, error) {
	id, err := subscription.ParseClientID(clientID)
	if err != nil {
		return false, subscription.Diagnostic{}, err
	}
	ev, err := e.begin(ctx, id)
	if err != nil {
		return false, subscription.Diagnostic{}, err
	}
	d, err := e.checkSentences(ctx, ev)
	return d.Exhausted, d, err
}

// CreditsExhausted reports whether the active subscription's credit sum,
// rounded to cents, has reached its quota.
func (e *QuotaEvaluator) CreditsExhausted(ctx context.Context, clientID string) (bool, subscription.Diagnostic, error) {
	id, err := subscription.ParseClientID(clientID)
	if err != nil {
		return false, subscription.Diagnostic{}, err
	}
	ev, err := e.begin(ctx, id)
	if err != nil {
		return false, subscription.Diagnostic{}, err
	}
	d, err := e.checkCredits(ctx, ev)
	return d.Exhausted, d, err
}

// IsExhausted checks expiry, then sentences, then credits, and stops at the
// first quota that is exhausted. The diagnostic names that quota, or the
// last one checked when none is.
func (e *QuotaEvaluator) IsExhausted(ctx context.Context, clientID string) (bool, subscription.Diagnostic, error) {
	id, err := subscription.ParseClientID(clientID)
	if err != nil {
		return false, subscription.Diagnostic{}, err
	}
	return e.isExhausted(ctx, id)
}

func (e *QuotaEvaluator) isExhausted(ctx context.Context, id uuid.UUID) (bool, subscription.Diagnostic, error) {
	ev, err := e.begin(ctx, id)
	if err != nil {
		return false, subscription.Diagnostic{}, err
	}

	d := e.checkExpiry(ev)
	if d.Exhausted {
		return true, d, nil
	}
	if d, err = e.checkSentences(ctx, ev); err != nil || d.Exhausted {
		return d.Exhausted, d, err
	}
	d, err = e.checkCredits(ctx, ev)
	return d.Exhausted, d, err
}

// Report evaluates every quota without short-circuiting
func (e *QuotaEvaluator) Report(ctx context.Context, clientID string) (*QuotaReport, error) {
	id, err := subscription.ParseClientID(clientID)
	if err != nil {
		return nil, err
	}
	ev, err := e.begin(ctx, id)
	if err != nil {
		return nil, err
	}

	expiry := e.checkExpiry(ev)
	sentences, err := e.checkSentences(ctx, ev)
	if err != nil {
		return nil, err
	}
	credits, err := e.checkCredits(ctx, ev)
	if err != nil {
		return nil, err
	}

	return &QuotaReport{
		ClientID:  id,
		Exhausted: expiry.Exhausted || sentences.Exhausted || credits.Exhausted,
		Checks:    []subscription.Diagnostic{expiry, sentences, credits},
	}, nil
}

func (e *QuotaEvaluator) begin(ctx context.Context, id uuid.UUID) (*evaluation, error) {
	active, err := storeCall(ctx, e.timeout, "subscriptions.find_active",
		func(ctx context.Context) ([]subscription.Subscription, error) {
			return e.subs.FindActive(ctx, id)
		})
	if err != nil {
		return nil, err
	}
	if len(active) > 1 {
		return nil, &subscription.ConsistencyWarning{
			ClientID: id,
			Matches:  len(active),
			Reason:   "multiple active subscriptions",
		}
	}

	ev := &evaluation{clientID: id, now: e.now()}
	if len(active) == 1 {
		ev.active = &active[0]
	}
	return ev, nil
}

func (e *QuotaEvaluator) checkExpiry(ev *evaluation) subscription.Diagnostic {
	d := subscription.Diagnostic{
		Quota:       subscription.QuotaTime,
		ClientID:    ev.clientID,
		EvaluatedAt: ev.now,
	}
	if ev.active == nil {
		d.Exhausted = true
		d.Reason = subscription.ReasonNoActiveSubscription
		e.logger.Debug("No active subscription", zap.String("client_id", ev.clientID.String()))
		return d
	}

	end := ev.active.EndDate
	d.SubscriptionID = ev.active.ID
	d.EndDate = &end
	if ev.active.ExpiredAt(ev.now) {
		d.Exhausted = true
		d.Reason = subscription.ReasonPastEndDate
	} else {
		d.Reason = subscription.ReasonWithinEndDate
	}
	return d
}

func (e *QuotaEvaluator) checkSentences(ctx context.Context, ev *evaluation) (subscription.Diagnostic, error) {
	d := subscription.Diagnostic{
		Quota:       subscription.QuotaSentences,
		ClientID:    ev.clientID,
		EvaluatedAt: ev.now,
	}
	if ev.active == nil {
		d.Reason = subscription.ReasonNoActiveSubscription
		return d, nil
	}
	d.SubscriptionID = ev.active.ID
	d.Limit = decimal.NewFromInt(ev.active.TotalSentences)

	usage, err := e.activeUsage(ctx, ev)
	if err != nil {
		return d, err
	}
	if usage == nil {
		d.Reason = subscription.ReasonNoActiveUsage
		return d, nil
	}

	d.Observed = decimal.NewFromInt(usage.Sentences)
	d.Exhausted = ev.active.SentencesReached(usage.Sentences)
	d.Reason = limitReason(d.Exhausted)
	return d, nil
}

func (e *QuotaEvaluator) checkCredits(ctx context.Context, ev *evaluation) (subscription.Diagnostic, error) {
	d := subscription.Diagnostic{
		Quota:       subscription.QuotaCredits,
		ClientID:    ev.clientID,
		EvaluatedAt: ev.now,
	}
	if ev.active == nil {
		d.Reason = subscription.ReasonNoActiveSubscription
		return d, nil
	}
	d.SubscriptionID = ev.active.ID
	d.Limit = ev.active.TotalCredits

	usage, err := e.activeUsage(ctx, ev)
	if err != nil {
		return d, err
	}
	if usage == nil {
		d.Reason = subscription.ReasonNoActiveUsage
		return d, nil
	}

	d.Observed = subscription.RoundCredits(usage.Credits)
	d.Exhausted = ev.active.CreditsReached(usage.Credits)
	d.Reason = limitReason(d.Exhausted)
	return d, nil
}

// activeUsage aggregates at most once per evaluation
func (e *QuotaEvaluator) activeUsage(ctx context.Context, ev *evaluation) (*subscription.UsageTotals, error) {
	if ev.usageLoaded {
		return ev.usage, nil
	}
	usage, err := e.aggregator.ActiveUsage(ctx, ev.clientID, []subscription.Subscription{*ev.active})
	if err != nil {
		return nil, err
	}
	ev.usage, ev.usageLoaded = usage, true
	return usage, nil
}

func limitReason(exhausted bool) string {
	if exhausted {
		return subscription.ReasonLimitReached
	}
	return subscription.ReasonWithinLimit
}
