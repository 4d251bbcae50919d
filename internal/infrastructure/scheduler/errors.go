package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSweepInProgress is returned when a sweep is triggered while one runs
	ErrSweepInProgress = errors.New("sweep already in progress")
)
