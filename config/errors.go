package config

import "errors"

var (
	// ErrInvalidDriver indicates an unknown persistent store driver.
	ErrInvalidDriver = errors.New("config: unknown store driver")

	// ErrMissingPath indicates a sqlite store without a database path.
	ErrMissingPath = errors.New("config: sqlite store requires a path")

	// ErrMissingURL indicates a redis store without a URL.
	ErrMissingURL = errors.New("config: redis store requires a url")

	// ErrInvalidQuota indicates a session quota that is not a byte size.
	ErrInvalidQuota = errors.New("config: invalid session quota")

	// ErrInvalidBackend indicates an unknown backend kind.
	ErrInvalidBackend = errors.New("config: unknown backend")

	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")

	// ErrInvalidGuard indicates negative guard settings.
	ErrInvalidGuard = errors.New("config: guard settings must not be negative")
)
