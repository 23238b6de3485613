package resilience

import (
	"errors"
	"net/http"
)

// TransientError marks a failed Overpass call that may succeed if tried
// again. Callers that talk to the network decide what is transient and wrap
// the error; IsTransient only looks for the marker.
type TransientError struct {
	Err        error
	StatusCode int // 0 for transport failures
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err carries a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsTransientHTTPStatus reports whether an Overpass status is worth another
// try: 429 when the client has used up its slots, 504 when the dispatcher is
// saturated and 408 when the server gave up waiting for the request.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusGatewayTimeout:
		return true
	}
	return false
}
