package subscription

import (
	"fmt"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrConsistency matches every ConsistencyWarning under errors.Is
var ErrConsistency = shared.NewDomainError("CONSISTENCY_WARNING", "Stored data violates a single-active precondition")

// ErrJobControl matches every JobControlError under errors.Is
var ErrJobControl = shared.NewDomainError("JOB_CONTROL_FAILURE", "Job control call failed")

// ConsistencyWarning reports data that breaks an upstream precondition, such
// as two active subscriptions for one client or several open intervals for
// one project. The affected operation is skipped, never guessed.
type ConsistencyWarning struct {
	ClientID       uuid.UUID
	SubscriptionID uuid.UUID
	SnetID         string
	Matches        int
	Reason         string
}

func (w *ConsistencyWarning) Error() string {
	if w.SnetID != "" {
		return fmt.Sprintf("consistency warning: %s (client %s, subscription %s, project %s, %d matches)",
			w.Reason, w.ClientID, w.SubscriptionID, w.SnetID, w.Matches)
	}
	return fmt.Sprintf("consistency warning: %s (client %s, %d matches)", w.Reason, w.ClientID, w.Matches)
}

// Is makes every ConsistencyWarning match ErrConsistency
func (w *ConsistencyWarning) Is(target error) bool {
	return target == ErrConsistency
}

// JobControlError records a halt that did not complete
type JobControlError struct {
	SnetID      string
	Outcome     HaltOutcome
	Unreachable bool
	Err         error
}

func (e *JobControlError) Error() string {
	switch {
	case e.Unreachable:
		return fmt.Sprintf("job control unreachable, project %s not halted", e.SnetID)
	case e.Err != nil:
		return fmt.Sprintf("halt project %s: %v", e.SnetID, e.Err)
	default:
		return fmt.Sprintf("halt project %s: outcome %s", e.SnetID, e.Outcome)
	}
}

func (e *JobControlError) Unwrap() error { return e.Err }

// Is makes every JobControlError match ErrJobControl
func (e *JobControlError) Is(target error) bool {
	return target == ErrJobControl
}
