package subscription

import (
	"time"

	"github.com/google/uuid"
)

// UsageStatus is the status of an interval or stream usage summary
type UsageStatus string

const (
	UsageStatusActive   UsageStatus = "active"
	UsageStatusInactive UsageStatus = "inactive"
)

// UsageInterval is one contiguous streaming window of a project under a
// subscription. A nil EndedAt marks the interval as open.
type UsageInterval struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	SubscriptionID uuid.UUID
	SnetID         string
	QuerySignature string
	StartedAt      time.Time
	EndedAt        *time.Time
	Status         UsageStatus
}

// Open reports whether the interval has not been closed yet
func (i *UsageInterval) Open() bool {
	return i.EndedAt == nil
}

// StreamUsage summarises a project's streaming under a subscription
type StreamUsage struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	SubscriptionID uuid.UUID
	SnetID         string
	Status         UsageStatus
}
