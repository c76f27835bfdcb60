package schedule

import "errors"

var (
	// ErrScheduleRepositoryRequired indicates a nil schedule repository was provided.
	ErrScheduleRepositoryRequired = errors.New("schedule repository is required")

	// ErrJobRepositoryRequired indicates a nil job repository was provided.
	ErrJobRepositoryRequired = errors.New("job repository is required")

	// ErrRunnerRequired indicates a nil job runner was provided.
	ErrRunnerRequired = errors.New("job runner is required")

	// ErrInvalidInterval indicates a non-positive poll interval.
	ErrInvalidInterval = errors.New("poll interval must be positive")
)
