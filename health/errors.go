package health

import "errors"

var (
	// ErrCheckTimeout indicates a check did not finish before the deadline.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrProbeMismatch indicates a probe read back a different value than it wrote.
	ErrProbeMismatch = errors.New("health: probe read back a different value")
)
