package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription grants a client a time window, a sentence quota and a credit
// quota. At most one subscription per client is active at a time.
type Subscription struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	PlanRefID      string
	EndDate        time.Time
	TotalSentences int64
	TotalCredits   decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ExpiredAt reports whether the subscription ended strictly before now
func (s *Subscription) ExpiredAt(now time.Time) bool {
	return s.EndDate.Before(now)
}

// SentencesReached reports whether used sentences meet or exceed the quota
func (s *Subscription) SentencesReached(used int64) bool {
	return used >= s.TotalSentences
}

// CreditsReached compares the credit sum, rounded to cents, against the quota
func (s *Subscription) CreditsReached(used decimal.Decimal) bool {
	return RoundCredits(used).GreaterThanOrEqual(s.TotalCredits)
}

// RoundCredits rounds a credit amount to two decimal places, half up.
// Credit sums are never negative so decimal's half-away-from-zero rounding
// matches half-up.
func RoundCredits(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
