package ledger

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies every failure a Client call can produce.
type ErrorKind string

const (
	// KindNetwork means the request never produced an HTTP response.
	KindNetwork ErrorKind = "network"
	// KindTimeout means an attempt exceeded its time budget.
	KindTimeout ErrorKind = "timeout"
	// KindUnauthorized maps HTTP 401 and 403.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindNotFound maps HTTP 404.
	KindNotFound ErrorKind = "not_found"
	// KindValidation maps HTTP 400 and 422, and envelopes reporting success=false.
	KindValidation ErrorKind = "validation_error"
	// KindServerError maps HTTP 5xx.
	KindServerError ErrorKind = "server_error"
	// KindParseError means a 2xx body was not the JSON the endpoint declared.
	KindParseError ErrorKind = "parse_error"
	// KindUnknownHTTP covers every other non-2xx status.
	KindUnknownHTTP ErrorKind = "unknown_http_error"
	// KindInvalidRequest is a caller mistake detected before anything is sent.
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Sentinels matched by errors.Is against a *Failure of the same kind.
var (
	ErrNetwork        = errors.New("network failure")
	ErrTimeout        = errors.New("request timed out")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrServerError    = errors.New("server error")
	ErrParse          = errors.New("malformed response")
	ErrUnknownHTTP    = errors.New("unexpected HTTP status")
	ErrInvalidRequest = errors.New("invalid request")
)

// Static errors for err113 compliance.
var (
	ErrBaseURLRequired  = errors.New("base URL is required")
	ErrInvalidBaseURL   = errors.New("base URL must have a scheme and host")
	ErrInvalidTimeout   = errors.New("timeout must be positive")
	ErrNegativeRetries  = errors.New("retries must not be negative")
	ErrConfigRequired   = errors.New("config is required")
	ErrNoDefaultClient  = errors.New("no default client has been configured")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token available")
)

var kindSentinels = map[ErrorKind]error{
	KindNetwork:        ErrNetwork,
	KindTimeout:        ErrTimeout,
	KindUnauthorized:   ErrUnauthorized,
	KindNotFound:       ErrNotFound,
	KindValidation:     ErrValidation,
	KindServerError:    ErrServerError,
	KindParseError:     ErrParse,
	KindUnknownHTTP:    ErrUnknownHTTP,
	KindInvalidRequest: ErrInvalidRequest,
}

// Failure is the error half of a Result.
type Failure struct {
	Kind    ErrorKind `json:"kind"              yaml:"kind"`
	Message string    `json:"message"           yaml:"message"`
	// Status is the HTTP status code, zero for transport failures.
	Status int `json:"status,omitempty"  yaml:"status,omitempty"`
	// Attempts is the number of attempts made before the result was produced.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	cause error
}

// NewFailure creates a Failure of the given kind.
func NewFailure(kind ErrorKind, status int, message string) *Failure {
	return &Failure{Kind: kind, Status: status, Message: message}
}

// WithCause attaches the underlying error and returns f.
func (f *Failure) WithCause(err error) *Failure {
	f.cause = err
	return f
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", f.Kind, f.Status, f.Message)
	}

	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause, if any.
func (f *Failure) Unwrap() error {
	return f.cause
}

// Is reports whether target is the sentinel for f's kind.
func (f *Failure) Is(target error) bool {
	sentinel, ok := kindSentinels[f.Kind]

	return ok && sentinel == target
}

// KindForStatus maps a non-2xx HTTP status code to its ErrorKind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= http.StatusInternalServerError && status < 600:
		return KindServerError
	default:
		return KindUnknownHTTP
	}
}

// IsTransient reports whether kind is eligible for retry.
func IsTransient(kind ErrorKind) bool {
	return kind == KindNetwork || kind == KindTimeout
}

// KindOf extracts the ErrorKind from err, or "" if err is not a *Failure.
func KindOf(err error) ErrorKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	return ""
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsUnauthorized checks if an error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsTimeout checks if an error is a per-attempt timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
