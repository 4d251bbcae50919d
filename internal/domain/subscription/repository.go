package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientRepository enumerates clients for batch sweeps
type ClientRepository interface {
	// ListIDs returns every client id in a stable order
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SubscriptionRepository reads subscriptions and performs the single
// lifecycle write this system owns.
type SubscriptionRepository interface {
	// FindActive returns every subscription of the client with is_active set.
	// More than one result is a precondition violation the caller reports.
	FindActive(ctx context.Context, clientID uuid.UUID) ([]Subscription, error)

	// FindLatest returns the most recently active subscription (latest end
	// date, then latest creation), or shared.ErrNotFound.
	FindLatest(ctx context.Context, clientID uuid.UUID) (*Subscription, error)

	// DeactivateActive flips is_active from true to false for the client in
	// one conditional update and returns the number of rows changed.
	DeactivateActive(ctx context.Context, clientID uuid.UUID) (int64, error)
}

// ProjectRepository reads projects and marks halted ones inactive
type ProjectRepository interface {
	// FindStreaming returns the client's active projects, realtime and offline
	FindStreaming(ctx context.Context, clientID uuid.UUID) ([]Project, error)

	// FindBySnetID returns one project of the client or shared.ErrNotFound
	FindBySnetID(ctx context.Context, clientID uuid.UUID, snetID string) (*Project, error)

	// MarkInactive flips is_active from true to false and returns rows changed
	MarkInactive(ctx context.Context, clientID uuid.UUID, snetID string) (int64, error)
}

// UsageRepository aggregates and records usage counters
type UsageRepository interface {
	// SumBySubscription returns sentence and credit sums grouped by the
	// subscription that owns each usage record.
	SumBySubscription(ctx context.Context, clientID uuid.UUID) ([]UsageTotals, error)

	// EnsureRecord returns the record for (client, subscription, plan),
	// creating an empty one when none exists.
	EnsureRecord(ctx context.Context, clientID, subscriptionID uuid.UUID, planRefID string) (*UsageRecord, error)

	// IncrementEntry adds sentences and messages to the project's entry and
	// overwrites its credit units unless credits is nil. It returns rows
	// changed; zero means the entry does not exist yet.
	IncrementEntry(ctx context.Context, recordID uuid.UUID, snetID string, sentences, messages int64, credits *decimal.Decimal) (int64, error)

	// AppendEntry adds a new project entry to the record
	AppendEntry(ctx context.Context, recordID uuid.UUID, entry UsageEntry) error
}

// IntervalRepository reads and closes usage intervals
type IntervalRepository interface {
	// FindOpen returns the open intervals matching subscription, project and
	// query signature.
	FindOpen(ctx context.Context, subscriptionID uuid.UUID, snetID, querySignature string) ([]UsageInterval, error)

	// OpenSnetIDs lists projects that still have an open interval under the subscription
	OpenSnetIDs(ctx context.Context, subscriptionID uuid.UUID) ([]string, error)

	// Close sets the end of an interval that is still open and marks it
	// inactive. It returns rows changed; zero means it was already closed.
	Close(ctx context.Context, intervalID uuid.UUID, endedAt time.Time) (int64, error)

	// DeactivateStreamUsage marks the project's stream usage summary inactive
	DeactivateStreamUsage(ctx context.Context, subscriptionID uuid.UUID, snetID string) (int64, error)
}
