// Package ferrors defines the structured error vocabulary shared across the
// fetch, cache, store, and diagnostics layers.
package ferrors

import (
	"fmt"
	"time"
)

// Code is a structured error code, grouped into categories by getCategory.
type Code string

const (
	CodeNetworkTimeout  Code = "NETWORK_TIMEOUT"
	CodeDNSResolution   Code = "DNS_RESOLUTION"
	CodeConnectionReset Code = "CONNECTION_RESET"
	CodeTLSHandshake    Code = "TLS_HANDSHAKE"

	CodeProtocolError  Code = "PROTOCOL_ERROR"
	CodeJSONInvalid    Code = "JSON_INVALID"
	CodeSchemaMissing  Code = "SCHEMA_MISSING_FIELD"
	CodeHTTPStatus     Code = "HTTP_STATUS"
	CodeNoDataNotFound Code = "NO_DATA_AVAILABLE"

	CodeCacheCorrupt Code = "CACHE_CORRUPT"
	CodeStateCorrupt Code = "STATE_CORRUPT"

	CodeConfigError Code = "CONFIG_ERROR"

	CodeInvariantViolation Code = "INVARIANT_VIOLATION"

	CodeContextCanceled  Code = "CONTEXT_CANCELED"
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"

	CodeUnknown Code = "UNKNOWN"
)

// Category groups related codes for coarse-grained handling.
type Category string

const (
	CategoryNetwork   Category = "NETWORK"
	CategoryProtocol  Category = "PROTOCOL"
	CategoryCache     Category = "CACHE"
	CategoryConfig    Category = "CONFIG"
	CategoryInvariant Category = "INVARIANT"
	CategoryContext   Category = "CONTEXT"
	CategoryUnknown   Category = "UNKNOWN"
)

// FetchError is the structured error returned by the fetch and source
// layers (components A and C of the pipeline).
type FetchError struct {
	Code      Code
	Category  Category
	Message   string
	Source    string // API name (e.g. "onionoo_details"), or the request URL for errors from the fetcher
	Elapsed   time.Duration
	Retryable bool
	Cause     error
}

func (e *FetchError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", e.Code, e.Source, e.Category, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsTimeout reports whether the error represents the fetcher's own
// wall-clock deadline firing (as opposed to a transport-level error).
func (e *FetchError) IsTimeout() bool {
	return e.Code == CodeNetworkTimeout || e.Code == CodeDeadlineExceeded
}

func getCategory(code Code) Category {
	switch code {
	case CodeNetworkTimeout, CodeDNSResolution, CodeConnectionReset, CodeTLSHandshake:
		return CategoryNetwork
	case CodeProtocolError, CodeJSONInvalid, CodeSchemaMissing, CodeHTTPStatus, CodeNoDataNotFound:
		return CategoryProtocol
	case CodeCacheCorrupt, CodeStateCorrupt:
		return CategoryCache
	case CodeConfigError:
		return CategoryConfig
	case CodeInvariantViolation:
		return CategoryInvariant
	case CodeContextCanceled, CodeDeadlineExceeded:
		return CategoryContext
	default:
		return CategoryUnknown
	}
}

func isRetryable(code Code) bool {
	switch code {
	case CodeNetworkTimeout, CodeDNSResolution, CodeConnectionReset, CodeHTTPStatus:
		return true
	default:
		return false
	}
}

// New creates a FetchError for the given source API.
func New(code Code, source, message string) *FetchError {
	return &FetchError{
		Code:      code,
		Category:  getCategory(code),
		Message:   message,
		Source:    source,
		Retryable: isRetryable(code),
	}
}

// Wrap creates a FetchError carrying an underlying cause.
func Wrap(code Code, source, message string, cause error) *FetchError {
	e := New(code, source, message)
	e.Cause = cause
	return e
}

// Timeout creates the distinguished timeout error the fetcher contract
// (spec §4.A) requires, carrying elapsed wall-clock time.
func Timeout(source string, elapsed time.Duration) *FetchError {
	e := New(CodeNetworkTimeout, source, fmt.Sprintf("deadline exceeded after %s", elapsed))
	e.Elapsed = elapsed
	return e
}
