package scheduler

import "errors"

var (
	// ErrInvalidSchedule is returned for a cron expression that does not parse
	ErrInvalidSchedule = errors.New("invalid cron schedule")

	// ErrDuplicateJob is returned when a job name is registered twice
	ErrDuplicateJob = errors.New("job already registered")

	// ErrJobNotFound is returned by RunNow for an unknown job name
	ErrJobNotFound = errors.New("job not found")
)
