// Package errors provides the typed failures shared by the assistant, OCR,
// speech and session packages.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Sentinel errors for common cases
var (
	ErrTimeout      = errors.New("request timed out")
	ErrNetwork      = errors.New("network error")
	ErrNoContent    = errors.New("no content in response")
	ErrMissingKey   = errors.New("no API key configured")
	ErrUnknownModel = errors.New("unknown provider")
)

// TimeoutError represents a request that exceeded its deadline
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *TimeoutError) Is(target error) bool {
	if target == ErrTimeout {
		return true
	}
	_, ok := target.(*TimeoutError)
	return ok
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{Message: message}
}

// NetworkError represents a transport-level failure (DNS, connection refused, reset)
type NetworkError struct {
	Message string
	Cause   error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// Is allows comparison with sentinel errors
func (e *NetworkError) Is(target error) bool {
	if target == ErrNetwork {
		return true
	}
	_, ok := target.(*NetworkError)
	return ok
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(cause error) *NetworkError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &NetworkError{Message: msg, Cause: cause}
}

// APIError represents a request the provider answered with a failure
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] from %s: %s", e.StatusCode, e.Provider, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Provider, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, provider, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Provider:   provider,
		Message:    message,
	}
}

// Kind buckets a failure into the three user-visible categories.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindNetwork
)

// Classify decides which category err belongs to. Deadline expiry wins over
// transport errors because an expired client timeout often surfaces as a
// url.Error wrapping context.DeadlineExceeded.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, ErrNetwork) {
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindNetwork
	}
	return KindOther
}

// Message returns the description shown after "Network error: " or
// "Error: ". Transport failures are reduced to their cause so the request
// line and SDK wrapping are not repeated.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ne *NetworkError
	if errors.As(err, &ne) && ne.Cause != nil {
		return ne.Cause.Error()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
