package extract

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies an extraction failure for retry decisions upstream.
type ErrorKind string

const (
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindAuthFailure        ErrorKind = "AUTH_FAILURE"
	KindServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	KindUnknown            ErrorKind = "UNKNOWN"
)

// ClassifiedError is the typed failure a provider returns. RetryAfter is
// only meaningful for rate limits and may be zero when the provider did not
// say.
type ClassifiedError struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether a later attempt could plausibly succeed without
// the caller changing anything.
func (e *ClassifiedError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindServiceUnavailable || e.Kind == KindUnknown
}

// Classify maps an HTTP status from the provider to an error kind.
func Classify(status int, message string, retryAfter time.Duration) *ClassifiedError {
	kind := KindUnknown
	switch {
	case status == 401 || status == 403:
		kind = KindAuthFailure
	case status == 429:
		kind = KindRateLimited
	case status >= 500:
		kind = KindServiceUnavailable
	}
	return &ClassifiedError{Kind: kind, Message: message, RetryAfter: retryAfter}
}

// AsClassified unwraps err to a ClassifiedError, defaulting to Unknown.
func AsClassified(err error) *ClassifiedError {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}
	return &ClassifiedError{Kind: KindUnknown, Message: err.Error(), Cause: err}
}
