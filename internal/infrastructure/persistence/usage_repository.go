package persistence

import (
	"context"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRepository implements the subscription.UsageRepository interface
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

type usageSumRow struct {
	SubscriptionID uuid.UUID
	Sentences      int64
	Credits        decimal.Decimal
}

// SumBySubscription sums the client's usage entries grouped by the
// subscription owning each record. Records without entries yield no group.
func (r *UsageRepository) SumBySubscription(ctx context.Context, clientID uuid.UUID) ([]subscription.UsageTotals, error) {
	var rows []usageSumRow
	err := r.db.WithContext(ctx).
		Table("usage_entries AS e").
		Select("r.subscription_id AS subscription_id, " +
			"COALESCE(SUM(e.sentences_count), 0) AS sentences, " +
			"COALESCE(SUM(e.credit_units), 0) AS credits").
		Joins("JOIN usage_records AS r ON r.id = e.record_id").
		Where("r.client_id = ?", clientID).
		Group("r.subscription_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]subscription.UsageTotals, len(rows))
	for i, row := range rows {
		totals[i] = subscription.UsageTotals{
			SubscriptionID: row.SubscriptionID,
			Sentences:      row.Sentences,
			Credits:        row.Credits,
		}
	}
	return totals, nil
}

// EnsureRecord returns the subscription's usage record, creating it when
// missing. Concurrent callers converge on the same row.
func (r *UsageRepository) EnsureRecord(ctx context.Context, clientID, subscriptionID uuid.UUID, planRefID string) (*subscription.UsageRecord, error) {
	db := r.db.WithContext(ctx)
	candidate := UsageRecordModel{
		ID:             uuid.New(),
		ClientID:       clientID,
		SubscriptionID: subscriptionID,
		PlanRefID:      planRefID,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}},
		DoNothing: true,
	}).Create(&candidate).Error
	if err != nil {
		return nil, err
	}

	var model UsageRecordModel
	if err := db.Where("subscription_id = ?", subscriptionID).First(&model).Error; err != nil {
		return nil, err
	}
	return model.ToEntity(), nil
}

// IncrementEntry adds to the entry's sentence and message counters in place
func (r *UsageRepository) IncrementEntry(ctx context.Context, recordID uuid.UUID, snetID string, sentences, messages int64, credits *decimal.Decimal) (int64, error) {
	updates := map[string]any{
		"sentences_count": gorm.Expr("sentences_count + ?", sentences),
		"messages_count":  gorm.Expr("messages_count + ?", messages),
		"updated_at":      time.Now(),
	}
	if credits != nil {
		updates["credit_units"] = *credits
	}

	result := r.db.WithContext(ctx).
		Model(&UsageEntryModel{}).
		Where("record_id = ? AND snet_id = ?", recordID, snetID).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AppendEntry inserts the project's entry. When a concurrent writer created
// it first, the counters are added to that row instead and the stored
// credits are only replaced by a reported figure.
func (r *UsageRepository) AppendEntry(ctx context.Context, recordID uuid.UUID, entry subscription.UsageEntry) error {
	model := UsageEntryModel{
		ID:             uuid.New(),
		RecordID:       recordID,
		SnetID:         entry.SnetID,
		ProjectName:    entry.ProjectName,
		SentencesCount: entry.SentencesCount,
		MessagesCount:  entry.MessagesCount,
		CreditUnits:    entry.CreditUnits,
	}
	updates := map[string]any{
		"sentences_count": gorm.Expr("usage_entries.sentences_count + excluded.sentences_count"),
		"messages_count":  gorm.Expr("usage_entries.messages_count + excluded.messages_count"),
	}
	if entry.CreditsReported {
		updates["credit_units"] = gorm.Expr("excluded.credit_units")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_id"}, {Name: "snet_id"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&model).Error
}

// FindEntries returns the entries of a record ordered by project
func (r *UsageRepository) FindEntries(ctx context.Context, recordID uuid.UUID) ([]subscription.UsageEntry, error) {
	var models []UsageEntryModel
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("snet_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]subscription.UsageEntry, len(models))
	for i := range models {
		entries[i] = models[i].ToEntity()
	}
	return entries, nil
}
