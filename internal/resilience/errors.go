package resilience

import (
	"errors"
	"net/http"
)

// TransientError marks a failed call as worth repeating. StatusCode is the
// HTTP status that caused it, or 0 for a transport failure.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err's chain holds a TransientError. Callers
// decide what is transient when they build the error; nothing is inferred
// from messages.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRateLimitStatus reports whether a registry or search provider asked us
// to slow down. Only 429 and 503 are retried; any other non-200 response
// means no data from that call.
func IsRateLimitStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable
}

// StatusCode returns the HTTP status carried by a TransientError in err's
// chain, or 0 for transport failures and non-transient errors.
func StatusCode(err error) int {
	var te *TransientError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
