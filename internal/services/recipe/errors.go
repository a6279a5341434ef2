package recipe

import (
	"errors"
	"strings"

	apperrors "github.com/socialchef/recipekeeper/internal/errors"
)

var (
	// ErrQuotaExceeded marks a generation failure caused by provider rate or
	// quota limits.
	ErrQuotaExceeded = errors.New("generation quota exceeded")
	// ErrMediaUnsupported is returned by text-only providers when asked to
	// process a media file.
	ErrMediaUnsupported = errors.New("provider does not accept media input")
)

// Provider error classes.
const (
	ErrorTypeQuota           = "quota_exceeded"
	ErrorTypeRateLimit       = "rate_limit"
	ErrorTypeCreditExhausted = "credit_exhausted"
	ErrorTypeServer          = "server_error"
	ErrorTypeClient          = "client_error"
	ErrorTypeUnsupported     = "unsupported"
	ErrorTypeUnknown         = "unknown"
)

// ProviderError represents a classified error from an AI provider
type ProviderError struct {
	Type     string
	Message  string
	Provider string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Message
}

// ClassifyError analyzes an error and returns a ProviderError with classification
func ClassifyError(err error, provider string) *ProviderError {
	if err == nil {
		return nil
	}

	msg := err.Error()
	classified := func(t string) *ProviderError {
		return &ProviderError{Type: t, Message: msg, Provider: provider}
	}

	if errors.Is(err, ErrQuotaExceeded) ||
		containsAny(msg, "RESOURCE_EXHAUSTED", "quota") {
		return classified(ErrorTypeQuota)
	}

	if errors.Is(err, ErrMediaUnsupported) {
		return classified(ErrorTypeUnsupported)
	}

	if containsAny(msg, "status 429", "HTTP 429", "rate limit", "too many requests") {
		return classified(ErrorTypeRateLimit)
	}

	if containsAny(msg, "status 402", "HTTP 402", "insufficient credit", "credit exhausted", "billing") {
		return classified(ErrorTypeCreditExhausted)
	}

	if appErr, ok := apperrors.As(err); ok {
		if appErr.Type == apperrors.ErrorTypeQuotaExceeded {
			return classified(ErrorTypeQuota)
		}
		if appErr.StatusCode >= 500 {
			return classified(ErrorTypeServer)
		}
		if appErr.StatusCode >= 400 {
			return classified(ErrorTypeClient)
		}
	}

	if containsAny(msg, "status 5", "HTTP 5", "server error", "internal error") {
		return classified(ErrorTypeServer)
	}

	if containsAny(msg, "status 4", "HTTP 4", "bad request", "unauthorized", "forbidden") {
		return classified(ErrorTypeClient)
	}

	return classified(ErrorTypeUnknown)
}

// IsQuotaError reports whether err is a rate, quota or credit limit failure.
func IsQuotaError(err error) bool {
	pe := ClassifyError(err, "")
	if pe == nil {
		return false
	}
	switch pe.Type {
	case ErrorTypeQuota, ErrorTypeRateLimit, ErrorTypeCreditExhausted:
		return true
	default:
		return false
	}
}

// IsRetryableError returns true if another provider may succeed where this
// one failed (quota, rate limit, credit exhausted, server error or a media
// request the provider cannot serve).
func IsRetryableError(err error) bool {
	pe := ClassifyError(err, "")
	if pe == nil {
		return false
	}
	switch pe.Type {
	case ErrorTypeQuota, ErrorTypeRateLimit, ErrorTypeCreditExhausted, ErrorTypeServer, ErrorTypeUnsupported:
		return true
	default:
		return false
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive)
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
