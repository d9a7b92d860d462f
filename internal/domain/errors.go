package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stable error codes surfaced to callers in structured tool results.
const (
	CodeTransport         = "TRANSPORT_ERROR"
	CodeTimeout           = "TIMEOUT"
	CodeUpstream          = "UPSTREAM_ERROR"
	CodeParse             = "PARSE_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeDiscoveryRequired = "DISCOVERY_REQUIRED"
	CodeInternal          = "INTERNAL_ERROR"
)

// TransportError is a network or HTTP-layer failure talking to the provider.
type TransportError struct {
	Operation  string
	StatusCode int // 0 when no response was received
	Timeout    bool
	Challenge  bool
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: upstream timeout", e.Operation)
	case e.Challenge:
		return fmt.Sprintf("%s: bot protection challenge (status %d)", e.Operation, e.StatusCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream status %d", e.Operation, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return e.Operation + ": transport failure"
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Code() string {
	if e.Timeout {
		return CodeTimeout
	}
	return CodeTransport
}

// Retryable is false for challenges and for rate limits that ask us to go away for hours.
func (e *TransportError) Retryable() bool {
	if e.Challenge || e.RetryAfter > time.Hour {
		return false
	}
	return true
}

// UpstreamError means the provider answered 2xx with an explicit error list.
type UpstreamError struct {
	Operation string
	Messages  []string
}

func (e *UpstreamError) Error() string {
	if len(e.Messages) == 0 {
		return e.Operation + ": upstream reported errors"
	}
	return fmt.Sprintf("%s: upstream errors: %s", e.Operation, strings.Join(e.Messages, "; "))
}

func (e *UpstreamError) Code() string    { return CodeUpstream }
func (e *UpstreamError) Retryable() bool { return false }

// ParseError means the payload did not have the expected shape.
type ParseError struct {
	Operation string
	Err       error
}

func (e *ParseError) Error() string   { return fmt.Sprintf("%s: unexpected payload: %v", e.Operation, e.Err) }
func (e *ParseError) Unwrap() error   { return e.Err }
func (e *ParseError) Code() string    { return CodeParse }
func (e *ParseError) Retryable() bool { return false }

// ValidationError reports caller input that never reached the provider.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Code() string    { return CodeValidation }
func (e *ValidationError) Retryable() bool { return false }

// DiscoveryRequiredError is the guard's policy rejection, not a fault.
type DiscoveryRequiredError struct {
	LocationKey string
	Retry       RetryParams
}

func (e *DiscoveryRequiredError) Error() string {
	return fmt.Sprintf("discovery search required before filtering at %s", e.LocationKey)
}

func (e *DiscoveryRequiredError) Code() string    { return CodeDiscoveryRequired }
func (e *DiscoveryRequiredError) Retryable() bool { return true }

type coded interface {
	Code() string
	Retryable() bool
}

// ErrorCode returns the stable code of the first typed error in err's chain.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

func IsRetryable(err error) bool {
	var c coded
	if errors.As(err, &c) {
		return c.Retryable()
	}
	return false
}
