package subscription

import "context"

// HaltOutcome is the result of asking job control to stop a project's job
type HaltOutcome int

const (
	HaltFailed HaltOutcome = iota
	HaltSucceeded
	HaltAlreadyStopped
)

func (o HaltOutcome) String() string {
	switch o {
	case HaltSucceeded:
		return "succeeded"
	case HaltAlreadyStopped:
		return "already_stopped"
	default:
		return "failed"
	}
}

// Stopped reports whether the job is known to no longer run
func (o HaltOutcome) Stopped() bool {
	return o == HaltSucceeded || o == HaltAlreadyStopped
}

// JobController is the external job-control capability
type JobController interface {
	// IsReachable reports whether the job-control service answers
	IsReachable(ctx context.Context) bool

	// HaltJob stops the job for a project. A non-nil error always comes with
	// HaltFailed.
	HaltJob(ctx context.Context, snetID string) (HaltOutcome, error)
}
