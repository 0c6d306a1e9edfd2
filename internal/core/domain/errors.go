package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorCategory is the closed classification set used for retry decisions
// and health accounting.
type ErrorCategory string

const (
	CategoryNone        ErrorCategory = ""
	CategoryNetwork     ErrorCategory = "network"
	CategoryTimeout     ErrorCategory = "timeout"
	CategoryRateLimit   ErrorCategory = "rate_limit"
	CategoryServer5xx   ErrorCategory = "server_5xx"
	CategoryAuth        ErrorCategory = "auth"
	CategoryNotFound    ErrorCategory = "not_found"
	CategoryBadRequest  ErrorCategory = "bad_request"
	CategoryCircuitOpen ErrorCategory = "circuit_open"
	CategoryUnknown     ErrorCategory = "unknown"
)

// Retryable reports whether the resilience kernel may retry this category.
func (c ErrorCategory) Retryable() bool {
	switch c {
	case CategoryNetwork, CategoryTimeout, CategoryServer5xx, CategoryRateLimit:
		return true
	default:
		return false
	}
}

// ErrorKind is the surface taxonomy callers above the registry see.
type ErrorKind string

const (
	KindUnavailable  ErrorKind = "unavailable"
	KindRateLimited  ErrorKind = "rate_limited"
	KindAuthRequired ErrorKind = "auth_required"
	KindNotFound     ErrorKind = "not_found"
	KindAPIError     ErrorKind = "api_error"
)

// Prefix returns the stable user-facing prefix for the kind. Callers render
// it directly in chat output.
func (k ErrorKind) Prefix() string {
	switch k {
	case KindUnavailable:
		return "⚠️"
	case KindRateLimited:
		return "⏳"
	case KindAuthRequired:
		return "🔒"
	case KindNotFound:
		return "❌"
	default:
		return "❌"
	}
}

// Surface maps a category to the kind shown to callers.
func (c ErrorCategory) Surface() ErrorKind {
	switch c {
	case CategoryNetwork, CategoryTimeout, CategoryServer5xx, CategoryCircuitOpen:
		return KindUnavailable
	case CategoryRateLimit:
		return KindRateLimited
	case CategoryAuth:
		return KindAuthRequired
	case CategoryNotFound:
		return KindNotFound
	default:
		return KindAPIError
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// PlatformError carries the classification, the owning platform and the
// original cause across layer boundaries.
type PlatformError struct {
	Cause    error
	Platform string
	Message  string
	Category ErrorCategory
	// FailedInstances/TotalInstances are populated by the federated source
	// so "all N instances failed" stays transparent to the user.
	FailedInstances int
	TotalInstances  int
}

func (e *PlatformError) Error() string {
	kind := e.Category.Surface()
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", kind.Prefix(), e.Platform, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", kind.Prefix(), e.Platform, e.Message)
}

func (e *PlatformError) Unwrap() error { return e.Cause }

// Kind returns the surface kind for the wrapped category.
func (e *PlatformError) Kind() ErrorKind { return e.Category.Surface() }

// NewPlatformError wraps err with its classification and platform tag.
func NewPlatformError(platform, message string, category ErrorCategory, err error) *PlatformError {
	return &PlatformError{
		Platform: platform,
		Message:  message,
		Category: category,
		Cause:    err,
	}
}

// StatusError represents a non-2xx HTTP response from a backend.
type StatusError struct {
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// ClassifyStatus maps an HTTP status code onto the error taxonomy.
func ClassifyStatus(code int) ErrorCategory {
	switch {
	case code == http.StatusTooManyRequests:
		return CategoryRateLimit
	case code >= 500 && code < 600:
		return CategoryServer5xx
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return CategoryAuth
	case code == http.StatusNotFound || code == http.StatusGone:
		return CategoryNotFound
	case code >= 400 && code < 500:
		return CategoryBadRequest
	default:
		return CategoryUnknown
	}
}

// Classify places an arbitrary error into the taxonomy. Already-classified
// errors keep their category.
func Classify(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}

	var perr *PlatformError
	if errors.As(err, &perr) {
		return perr.Category
	}
	if errors.Is(err, ErrCircuitOpen) {
		return CategoryCircuitOpen
	}

	var serr *StatusError
	if errors.As(err, &serr) {
		return ClassifyStatus(serr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return CategoryRateLimit
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "broken pipe"):
		return CategoryNetwork
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return CategoryTimeout
	}

	return CategoryUnknown
}

// IsQuotaExceeded reports whether the error is the API-gated platform's
// daily-quota rejection, which drives fallback escalation rather than retry.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "quotaexceeded") ||
		strings.Contains(strings.ToLower(err.Error()), "quota exceeded")
}
