package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrUnknownBackend is returned when resolving an unsupported Kind.
	ErrUnknownBackend = errors.New("storage: unknown backend")

	// ErrUnknownSerializer is returned for an unsupported serializer name.
	ErrUnknownSerializer = errors.New("storage: unknown serializer")
)
