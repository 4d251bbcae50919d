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

// SubscriptionLifecycleManager owns the active to inactive transition
type SubscriptionLifecycleManager struct {
	subs    subscription.SubscriptionRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewSubscriptionLifecycleManager creates a new SubscriptionLifecycleManager
func NewSubscriptionLifecycleManager(subs subscription.SubscriptionRepository, timeout time.Duration, logger *zap.Logger) *SubscriptionLifecycleManager {
	return &SubscriptionLifecycleManager{subs: subs, timeout: timeout, logger: logger}
}

// DeactivationResult reports whether Deactivate changed anything
type DeactivationResult struct {
	ClientID uuid.UUID `json:"client_id"`
	Changed  bool      `json:"changed"`
}

// Deactivate sets is_active to false on the client's active subscription.
// A client with no active subscription is already in the desired state and
// is not an error.
func (m *SubscriptionLifecycleManager) Deactivate(ctx context.Context, clientID string) (DeactivationResult, error) {
	id, err := subscription.ParseClientID(clientID)
	if err != nil {
		return DeactivationResult{}, err
	}
	return m.deactivate(ctx, id)
}

func (m *SubscriptionLifecycleManager) deactivate(ctx context.Context, id uuid.UUID) (DeactivationResult, error) {
	res := DeactivationResult{ClientID: id}
	rows, err := storeCall(ctx, m.timeout, "subscriptions.deactivate",
		func(ctx context.Context) (int64, error) {
			return m.subs.DeactivateActive(ctx, id)
		})
	if err != nil {
		return res, err
	}

	res.Changed = rows > 0
	if res.Changed {
		m.logger.Info("Subscription deactivated",
			zap.String("client_id", id.String()),
			zap.Int64("rows", rows),
		)
	} else {
		m.logger.Debug("Subscription already inactive", zap.String("client_id", id.String()))
	}
	return res, nil
}

// ResolveSubscription returns the subscription usage intervals are keyed on:
// the active one, or else the most recently active one. It returns nil when
// the client has no subscription at all.
func (m *SubscriptionLifecycleManager) ResolveSubscription(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	active, err := storeCall(ctx, m.timeout, "subscriptions.find_active",
		func(ctx context.Context) ([]subscription.Subscription, error) {
			return m.subs.FindActive(ctx, id)
		})
	if err != nil {
		return nil, err
	}
	switch len(active) {
	case 0:
	case 1:
		return &active[0], nil
	default:
		return nil, &subscription.ConsistencyWarning{
			ClientID: id,
			Matches:  len(active),
			Reason:   "multiple active subscriptions",
		}
	}

	latest, err := storeCall(ctx, m.timeout, "subscriptions.find_latest",
		func(ctx context.Context) (*subscription.Subscription, error) {
			return m.subs.FindLatest(ctx, id)
		})
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return latest, err
}
