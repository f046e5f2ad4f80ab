package memo

import "errors"

// Sentinel errors for memoized functions.
var (
	// ErrNilFuture is returned when a wrapped function returns a nil Future.
	ErrNilFuture = errors.New("memo: function returned a nil future")

	// ErrNilStream is returned when a wrapped function returns a nil Stream.
	ErrNilStream = errors.New("memo: function returned a nil stream")
)
