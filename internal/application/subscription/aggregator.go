package subscription

import (
	"context"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageAggregator sums a client's usage entries per subscription
type UsageAggregator struct {
	usage   subscription.UsageRepository
	timeout time.Duration
}

// NewUsageAggregator creates a new UsageAggregator
func NewUsageAggregator(usage subscription.UsageRepository, timeout time.Duration) *UsageAggregator {
	return &UsageAggregator{usage: usage, timeout: timeout}
}

// Aggregate returns usage totals keyed by the subscription that owns each
// usage record. It never writes.
func (a *UsageAggregator) Aggregate(ctx context.Context, clientID uuid.UUID) (map[uuid.UUID]subscription.UsageTotals, error) {
	groups, err := storeCall(ctx, a.timeout, "usage.sum_by_subscription",
		func(ctx context.Context) ([]subscription.UsageTotals, error) {
			return a.usage.SumBySubscription(ctx, clientID)
		})
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]subscription.UsageTotals, len(groups))
	for _, g := range groups {
		cur, ok := totals[g.SubscriptionID]
		if !ok {
			cur = subscription.UsageTotals{SubscriptionID: g.SubscriptionID, Credits: decimal.Zero}
		}
		totals[g.SubscriptionID] = cur.Add(g)
	}
	return totals, nil
}

// ActiveUsage aggregates the client's usage and selects the group of the
// given active subscriptions.
func (a *UsageAggregator) ActiveUsage(ctx context.Context, clientID uuid.UUID, active []subscription.Subscription) (*subscription.UsageTotals, error) {
	totals, err := a.Aggregate(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return SelectActive(clientID, totals, active)
}

// SelectActive picks the usage group owned by the client's active
// subscription. It returns nil when there is no active subscription or no
// usage was recorded under it. More than one active subscription is a
// precondition violation and is reported, not resolved.
func SelectActive(clientID uuid.UUID, totals map[uuid.UUID]subscription.UsageTotals, active []subscription.Subscription) (*subscription.UsageTotals, error) {
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, &subscription.ConsistencyWarning{
			ClientID: clientID,
			Matches:  len(active),
			Reason:   "multiple active subscriptions",
		}
	}

	t, ok := totals[active[0].ID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}
