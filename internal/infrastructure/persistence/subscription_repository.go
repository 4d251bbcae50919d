package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionRepository implements the subscription.SubscriptionRepository interface
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Save persists a subscription
func (r *SubscriptionRepository) Save(ctx context.Context, sub *subscription.Subscription) error {
	return r.db.WithContext(ctx).Create(SubscriptionModelFromEntity(sub)).Error
}

// FindActive returns the client's subscriptions with is_active set, oldest first
func (r *SubscriptionRepository) FindActive(ctx context.Context, clientID uuid.UUID) ([]subscription.Subscription, error) {
	var models []SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND is_active = ?", clientID, true).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	subs := make([]subscription.Subscription, len(models))
	for i := range models {
		subs[i] = models[i].ToEntity()
	}
	return subs, nil
}

// FindLatest returns the subscription with the latest end date
func (r *SubscriptionRepository) FindLatest(ctx context.Context, clientID uuid.UUID) (*subscription.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("end_date DESC").
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	sub := model.ToEntity()
	return &sub, nil
}

// DeactivateActive flips is_active in one conditional update. A second call
// matches no rows.
func (r *SubscriptionRepository) DeactivateActive(ctx context.Context, clientID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("client_id = ? AND is_active = ?", clientID, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
