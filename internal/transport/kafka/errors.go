package kafka

import (
	"errors"

	"service-dispatch/internal/apperr"
)

// PermanentError marks a message that will never succeed. The consumer
// commits its offset and moves on.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	return PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var perm PermanentError
	return errors.As(err, &perm)
}

// isRetryable reports whether the message should be redelivered: only store
// outages are, and never a permanent failure.
func isRetryable(err error) bool {
	return !IsPermanent(err) && errors.Is(err, apperr.ErrUnavailable)
}
