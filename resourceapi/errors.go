package resourceapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the structured form of every resource API failure. Code is the envelope
// code, or the HTTP status when the envelope has none, or 0 when no response arrived.
type APIError struct {
	Code    int
	Message string
	Err     string // machine-readable reason, e.g. "invalid credentials"

	cause error
}

func (e *APIError) Error() string {
	if e.Err != "" && e.Err != e.Message {
		return fmt.Sprintf("api error %d: %s (%s)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError builds an APIError for a response that arrived.
func NewAPIError(code int, message, reason string) *APIError {
	if message == "" {
		message = reason
	}
	if message == "" {
		message = http.StatusText(code)
	}
	return &APIError{Code: code, Message: message, Err: reason}
}

// NetworkError wraps a failure where no response was received.
func NetworkError(err error) *APIError {
	return &APIError{Code: 0, Message: err.Error(), cause: err}
}

// Kind is the closed set of failure classes callers branch on.
type Kind int

const (
	KindUnknown Kind = iota
	KindCredential
	KindValidation
	KindRateLimited
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// KindOf classifies err. It is the only place status codes are mapped to kinds.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return KindNetwork
		}
		return KindUnknown
	}
	switch c := apiErr.Code; {
	case c == 0:
		return KindNetwork
	case c == http.StatusUnauthorized || c == http.StatusForbidden:
		return KindCredential
	case c == http.StatusTooManyRequests:
		return KindRateLimited
	case c >= 500:
		return KindServer
	case c >= 400:
		return KindValidation
	default:
		return KindUnknown
	}
}

// AsAPIError returns the *APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
