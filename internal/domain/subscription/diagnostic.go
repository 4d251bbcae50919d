package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuotaKind names the quota a predicate checks
type QuotaKind string

const (
	QuotaTime      QuotaKind = "time"
	QuotaSentences QuotaKind = "sentences"
	QuotaCredits   QuotaKind = "credits"
)

// Reasons recorded on a Diagnostic
const (
	ReasonNoActiveSubscription = "no_active_subscription"
	ReasonPastEndDate          = "past_end_date"
	ReasonWithinEndDate        = "within_end_date"
	ReasonNoActiveUsage        = "no_active_usage"
	ReasonLimitReached         = "limit_reached"
	ReasonWithinLimit          = "within_limit"
)

// Diagnostic explains a single quota decision
type Diagnostic struct {
	Quota          QuotaKind       `json:"quota"`
	ClientID       uuid.UUID       `json:"client_id"`
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	Exhausted      bool            `json:"exhausted"`
	Reason         string          `json:"reason"`
	Observed       decimal.Decimal `json:"observed"`
	Limit          decimal.Decimal `json:"limit"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	EvaluatedAt    time.Time       `json:"evaluated_at"`
}
