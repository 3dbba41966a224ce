package fallback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Class buckets a provider failure for the retry loop.
type Class int

const (
	// ClassTransient failures (timeouts, 5xx, rate limits, network
	// errors) are retried with backoff against the same provider.
	ClassTransient Class = iota
	// ClassPermanent failures (bad credentials, malformed requests,
	// exhausted quota) skip straight to the next provider.
	ClassPermanent
)

// ClassifiedError wraps a provider error with its retry class.
type ClassifiedError struct {
	Class Class
	Err   error
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Transient marks err as retryable against the same provider.
func Transient(err error) error { return &ClassifiedError{Class: ClassTransient, Err: err} }

// Permanent marks err as not worth retrying; the executor moves on to
// the next provider immediately.
func Permanent(err error) error { return &ClassifiedError{Class: ClassPermanent, Err: err} }

// ClassOf returns the class of err. Unclassified errors count as
// transient so flaky providers get their retry budget; context
// cancellation is permanent so aborts propagate without sleeping.
func ClassOf(err error) Class {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ClassTransient
	}
	return ClassTransient
}

// FromHTTPStatus classifies an HTTP response code the way every
// provider adapter in this repo needs: 429 and 5xx are transient,
// other non-2xx codes are permanent.
func FromHTTPStatus(status int, body string) error {
	err := fmt.Errorf("HTTP %d: %s", status, body)
	if status == http.StatusTooManyRequests || status >= 500 {
		return Transient(err)
	}
	return Permanent(err)
}
