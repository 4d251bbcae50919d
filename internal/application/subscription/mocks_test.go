package subscription

import (
	"context"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockClientRepository struct {
	mock.Mock
}

func (m *mockClientRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) FindActive(ctx context.Context, clientID uuid.UUID) ([]subscription.Subscription, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindLatest(ctx context.Context, clientID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) DeactivateActive(ctx context.Context, clientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).(int64), args.Error(1)
}

type mockProjectRepository struct {
	mock.Mock
}

func (m *mockProjectRepository) FindStreaming(ctx context.Context, clientID uuid.UUID) ([]subscription.Project, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Project), args.Error(1)
}

func (m *mockProjectRepository) FindBySnetID(ctx context.Context, clientID uuid.UUID, snetID string) (*subscription.Project, error) {
	args := m.Called(ctx, clientID, snetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Project), args.Error(1)
}

func (m *mockProjectRepository) MarkInactive(ctx context.Context, clientID uuid.UUID, snetID string) (int64, error) {
	args := m.Called(ctx, clientID, snetID)
	return args.Get(0).(int64), args.Error(1)
}

type mockUsageRepository struct {
	mock.Mock
}

func (m *mockUsageRepository) SumBySubscription(ctx context.Context, clientID uuid.UUID) ([]subscription.UsageTotals, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.UsageTotals), args.Error(1)
}

func (m *mockUsageRepository) EnsureRecord(ctx context.Context, clientID, subscriptionID uuid.UUID, planRefID string) (*subscription.UsageRecord, error) {
	args := m.Called(ctx, clientID, subscriptionID, planRefID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.UsageRecord), args.Error(1)
}

func (m *mockUsageRepository) IncrementEntry(ctx context.Context, recordID uuid.UUID, snetID string, sentences, messages int64, credits *decimal.Decimal) (int64, error) {
	args := m.Called(ctx, recordID, snetID, sentences, messages, credits)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageRepository) AppendEntry(ctx context.Context, recordID uuid.UUID, entry subscription.UsageEntry) error {
	args := m.Called(ctx, recordID, entry)
	return args.Error(0)
}

type mockIntervalRepository struct {
	mock.Mock
}

func (m *mockIntervalRepository) FindOpen(ctx context.Context, subscriptionID uuid.UUID, snetID, querySignature string) ([]subscription.UsageInterval, error) {
	args := m.Called(ctx, subscriptionID, snetID, querySignature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.UsageInterval), args.Error(1)
}

func (m *mockIntervalRepository) OpenSnetIDs(ctx context.Context, subscriptionID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockIntervalRepository) Close(ctx context.Context, intervalID uuid.UUID, endedAt time.Time) (int64, error) {
	args := m.Called(ctx, intervalID, endedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockIntervalRepository) DeactivateStreamUsage(ctx context.Context, subscriptionID uuid.UUID, snetID string) (int64, error) {
	args := m.Called(ctx, subscriptionID, snetID)
	return args.Get(0).(int64), args.Error(1)
}

type mockJobController struct {
	mock.Mock
}

func (m *mockJobController) IsReachable(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockJobController) HaltJob(ctx context.Context, snetID string) (subscription.HaltOutcome, error) {
	args := m.Called(ctx, snetID)
	return args.Get(0).(subscription.HaltOutcome), args.Error(1)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Forget(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}
