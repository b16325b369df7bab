package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when stopping a scheduler that never started
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrRunInProgress is returned when another run holds the day-close lock
	ErrRunInProgress = errors.New("day close already in progress")
)
