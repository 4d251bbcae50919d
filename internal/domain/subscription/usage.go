package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageRecord collects the usage entries of one client under one subscription
// and plan.
type UsageRecord struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	SubscriptionID uuid.UUID
	PlanRefID      string
	Entries        []UsageEntry
	CreatedAt      time.Time
}

// UsageEntry holds cumulative counters for one project
type UsageEntry struct {
	SnetID         string
	ProjectName    string
	SentencesCount int64
	MessagesCount  int64
	CreditUnits    decimal.Decimal

	// CreditsReported is set when CreditUnits came from the event rather
	// than defaulting to zero; only a reported figure replaces a stored one.
	CreditsReported bool
}

// UsageTotals is the grouped sum of usage entries for one subscription
type UsageTotals struct {
	SubscriptionID uuid.UUID
	Sentences      int64
	Credits        decimal.Decimal
}

// Add accumulates another group into t
func (t UsageTotals) Add(o UsageTotals) UsageTotals {
	return UsageTotals{
		SubscriptionID: t.SubscriptionID,
		Sentences:      t.Sentences + o.Sentences,
		Credits:        t.Credits.Add(o.Credits),
	}
}

// UsageEvent is one metering report for a project. Sentences and messages
// are deltas; Credits is the cumulative credit figure reported by metering.
type UsageEvent struct {
	EventID   string
	ClientID  uuid.UUID
	SnetID    string
	Sentences *int64
	Messages  *int64
	Credits   *decimal.Decimal
}

// Normalized returns the event counters with missing values defaulted to zero
func (e UsageEvent) Normalized() (sentences, messages int64, credits decimal.Decimal) {
	if e.Sentences != nil {
		sentences = *e.Sentences
	}
	if e.Messages != nil {
		messages = *e.Messages
	}
	credits = decimal.Zero
	if e.Credits != nil {
		credits = *e.Credits
	}
	return sentences, messages, credits
}
