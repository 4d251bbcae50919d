package persistence

import (
	"context"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IntervalRepository implements the subscription.IntervalRepository interface
type IntervalRepository struct {
	db *gorm.DB
}

// NewIntervalRepository creates a new interval repository
func NewIntervalRepository(db *gorm.DB) *IntervalRepository {
	return &IntervalRepository{db: db}
}

// Save persists a usage interval
func (r *IntervalRepository) Save(ctx context.Context, iv *subscription.UsageInterval) error {
	return r.db.WithContext(ctx).Create(UsageIntervalModelFromEntity(iv)).Error
}

// FindOpen returns the open intervals matching the key
func (r *IntervalRepository) FindOpen(ctx context.Context, subscriptionID uuid.UUID, snetID, querySignature string) ([]subscription.UsageInterval, error) {
	var models []UsageIntervalModel
	err := r.db.WithContext(ctx).
		Where("subscription_id = ? AND snet_id = ? AND query_signature = ? AND ended_at IS NULL",
			subscriptionID, snetID, querySignature).
		Order("started_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	intervals := make([]subscription.UsageInterval, len(models))
	for i := range models {
		intervals[i] = models[i].ToEntity()
	}
	return intervals, nil
}

// OpenSnetIDs lists the distinct projects with an open interval
func (r *IntervalRepository) OpenSnetIDs(ctx context.Context, subscriptionID uuid.UUID) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&UsageIntervalModel{}).
		Distinct().
		Where("subscription_id = ? AND ended_at IS NULL", subscriptionID).
		Order("snet_id ASC").
		Pluck("snet_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Close ends an interval that is still open
func (r *IntervalRepository) Close(ctx context.Context, intervalID uuid.UUID, endedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&UsageIntervalModel{}).
		Where("id = ? AND ended_at IS NULL", intervalID).
		Updates(map[string]any{
			"ended_at": endedAt,
			"status":   string(subscription.UsageStatusInactive),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeactivateStreamUsage marks the project's active stream summaries inactive
func (r *IntervalRepository) DeactivateStreamUsage(ctx context.Context, subscriptionID uuid.UUID, snetID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&StreamUsageModel{}).
		Where("subscription_id = ? AND snet_id = ? AND status = ?",
			subscriptionID, snetID, string(subscription.UsageStatusActive)).
		Updates(map[string]any{
			"status":     string(subscription.UsageStatusInactive),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
