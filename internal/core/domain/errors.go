package domain

import "errors"

// ValidationError means a caller-supplied or state-derived precondition
// was violated. User-facing and non-retryable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError means the referenced payment or card number has no
// matching records.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

// ErrStorageUnavailable hides transient store failures from callers.
// A request that hits it fails whole, no partial state is left behind.
var ErrStorageUnavailable = errors.New("payment store is unavailable")

// IsDomainError reports whether err belongs to the service's own error
// taxonomy, as opposed to an opaque infrastructure failure.
func IsDomainError(err error) bool {
	var ve *ValidationError
	var nf *NotFoundError
	return errors.As(err, &ve) || errors.As(err, &nf)
}
