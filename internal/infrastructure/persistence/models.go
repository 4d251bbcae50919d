package persistence

import (
	"time"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Models lists every table the controller reads or writes
func Models() []any {
	return []any{
		&ClientModel{},
		&SubscriptionModel{},
		&ProjectModel{},
		&UsageRecordModel{},
		&UsageEntryModel{},
		&UsageIntervalModel{},
		&StreamUsageModel{},
	}
}

// ClientModel is the GORM model for clients
type ClientModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(200);not null;default:''"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for the model
func (ClientModel) TableName() string {
	return "clients"
}

// SubscriptionModel is the GORM model for subscriptions
type SubscriptionModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ClientID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_subscriptions_client_active,priority:1"`
	PlanRefID      string          `gorm:"type:varchar(100);not null;default:''"`
	EndDate        time.Time       `gorm:"not null"`
	TotalSentences int64           `gorm:"not null;default:0"`
	TotalCredits   decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	IsActive       bool            `gorm:"not null;index:idx_subscriptions_client_active,priority:2"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToEntity converts the model to a domain entity
func (m *SubscriptionModel) ToEntity() subscription.Subscription {
	return subscription.Subscription{
		ID:             m.ID,
		ClientID:       m.ClientID,
		PlanRefID:      m.PlanRefID,
		EndDate:        m.EndDate,
		TotalSentences: m.TotalSentences,
		TotalCredits:   m.TotalCredits,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// SubscriptionModelFromEntity creates a model from a domain entity
func SubscriptionModelFromEntity(e *subscription.Subscription) *SubscriptionModel {
	return &SubscriptionModel{
		ID:             e.ID,
		ClientID:       e.ClientID,
		PlanRefID:      e.PlanRefID,
		EndDate:        e.EndDate,
		TotalSentences: e.TotalSentences,
		TotalCredits:   e.TotalCredits,
		IsActive:       e.IsActive,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// ProjectModel is the GORM model for projects
type ProjectModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SnetID         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_projects_client_snet,priority:2"`
	ClientID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_projects_client_snet,priority:1"`
	Label          string    `gorm:"type:varchar(200);not null;default:''"`
	QuerySignature string    `gorm:"type:text;not null;default:''"`
	Mode           string    `gorm:"type:varchar(20);not null;default:'realtime'"`
	IsActive       bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ProjectModel) TableName() string {
	return "projects"
}

// ToEntity converts the model to a domain entity
func (m *ProjectModel) ToEntity() subscription.Project {
	return subscription.Project{
		ID:             m.ID,
		SnetID:         m.SnetID,
		ClientID:       m.ClientID,
		Label:          m.Label,
		QuerySignature: m.QuerySignature,
		Mode:           subscription.ProjectMode(m.Mode),
		IsActive:       m.IsActive,
	}
}

// ProjectModelFromEntity creates a model from a domain entity
func ProjectModelFromEntity(e *subscription.Project) *ProjectModel {
	return &ProjectModel{
		ID:             e.ID,
		SnetID:         e.SnetID,
		ClientID:       e.ClientID,
		Label:          e.Label,
		QuerySignature: e.QuerySignature,
		Mode:           string(e.Mode),
		IsActive:       e.IsActive,
	}
}

// UsageRecordModel is the GORM model for usage records. There is one
// record per subscription.
type UsageRecordModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClientID       uuid.UUID `gorm:"type:uuid;not null;index"`
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	PlanRefID      string    `gorm:"type:varchar(100);not null;default:''"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for the model
func (UsageRecordModel) TableName() string {
	return "usage_records"
}

// ToEntity converts the model to a domain entity
func (m *UsageRecordModel) ToEntity() *subscription.UsageRecord {
	return &subscription.UsageRecord{
		ID:             m.ID,
		ClientID:       m.ClientID,
		SubscriptionID: m.SubscriptionID,
		PlanRefID:      m.PlanRefID,
		CreatedAt:      m.CreatedAt,
	}
}

// UsageEntryModel is the GORM model for per-project usage counters
type UsageEntryModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RecordID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_usage_entries_record_snet,priority:1"`
	SnetID         string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_usage_entries_record_snet,priority:2"`
	ProjectName    string          `gorm:"type:varchar(200);not null;default:''"`
	SentencesCount int64           `gorm:"not null;default:0"`
	MessagesCount  int64           `gorm:"not null;default:0"`
	CreditUnits    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (UsageEntryModel) TableName() string {
	return "usage_entries"
}

// ToEntity converts the model to a domain entity
func (m *UsageEntryModel) ToEntity() subscription.UsageEntry {
	return subscription.UsageEntry{
		SnetID:         m.SnetID,
		ProjectName:    m.ProjectName,
		SentencesCount: m.SentencesCount,
		MessagesCount:  m.MessagesCount,
		CreditUnits:    m.CreditUnits,
	}
}

// UsageIntervalModel is the GORM model for usage intervals. A NULL
// ended_at marks the interval open.
type UsageIntervalModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ClientID       uuid.UUID  `gorm:"type:uuid;not null"`
	SubscriptionID uuid.UUID  `gorm:"type:uuid;not null;index:idx_usage_intervals_open,priority:1"`
	SnetID         string     `gorm:"type:varchar(100);not null;index:idx_usage_intervals_open,priority:2"`
	QuerySignature string     `gorm:"type:text;not null;default:''"`
	StartedAt      time.Time  `gorm:"not null"`
	EndedAt        *time.Time `gorm:"index:idx_usage_intervals_open,priority:3"`
	Status         string     `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for the model
func (UsageIntervalModel) TableName() string {
	return "usage_intervals"
}

// ToEntity converts the model to a domain entity
func (m *UsageIntervalModel) ToEntity() subscription.UsageInterval {
	return subscription.UsageInterval{
		ID:             m.ID,
		ClientID:       m.ClientID,
		SubscriptionID: m.SubscriptionID,
		SnetID:         m.SnetID,
		QuerySignature: m.QuerySignature,
		StartedAt:      m.StartedAt,
		EndedAt:        m.EndedAt,
		Status:         subscription.UsageStatus(m.Status),
	}
}

// UsageIntervalModelFromEntity creates a model from a domain entity
func UsageIntervalModelFromEntity(e *subscription.UsageInterval) *UsageIntervalModel {
	return &UsageIntervalModel{
		ID:             e.ID,
		ClientID:       e.ClientID,
		SubscriptionID: e.SubscriptionID,
		SnetID:         e.SnetID,
		QuerySignature: e.QuerySignature,
		StartedAt:      e.StartedAt,
		EndedAt:        e.EndedAt,
		Status:         string(e.Status),
	}
}

// StreamUsageModel is the GORM model for per-project stream summaries
type StreamUsageModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClientID       uuid.UUID `gorm:"type:uuid;not null"`
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null;index:idx_stream_usages_sub_snet,priority:1"`
	SnetID         string    `gorm:"type:varchar(100);not null;index:idx_stream_usages_sub_snet,priority:2"`
	Status         string    `gorm:"type:varchar(20);not null;default:'active'"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (StreamUsageModel) TableName() string {
	return "stream_usages"
}
