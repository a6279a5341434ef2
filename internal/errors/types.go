package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnsupported      ErrorType = "UNSUPPORTED_ERROR"
	ErrorTypeScraper          ErrorType = "SCRAPER_ERROR"
	ErrorTypeAccessBlocked    ErrorType = "ACCESS_BLOCKED_ERROR"
	ErrorTypeRecipeGeneration ErrorType = "RECIPE_GENERATION_ERROR"
	ErrorTypeQuotaExceeded    ErrorType = "QUOTA_EXCEEDED_ERROR"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeQuotaExceeded:
		return true
	case ErrorTypeScraper, ErrorTypeRecipeGeneration:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err's chain carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// IsQuota reports whether err's chain carries a quota failure.
func IsQuota(err error) bool {
	return IsType(err, ErrorTypeQuotaExceeded)
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewUnsupportedError creates an error for URLs no extractor handles (400)
func NewUnsupportedError(message string) *AppError {
	return &AppError{
		Type:          ErrorTypeUnsupported,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     "UNSUPPORTED_URL",
		IsOperational: true,
		Recovery:      "Provide a YouTube, TikTok, Instagram or recipe website URL.",
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewAccessBlockedError creates an error for content behind anti-automation defenses (403)
func NewAccessBlockedError(message string, errorCode string, suggestion string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeAccessBlocked,
		Message:       message,
		StatusCode:    http.StatusForbidden,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
		Err:           err,
	}
}

// NewQuotaExceededError creates a new quota error (429)
func NewQuotaExceededError(message string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeQuotaExceeded,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     "QUOTA_EXCEEDED",
		IsOperational: true,
		Recovery:      "The extraction model quota is exhausted. Try again later.",
		Err:           err,
	}
}

// NewScraperError creates a new scraper error (502)
func NewScraperError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeScraper,
		Message:       message,
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Verify the URL is accessible and try again later.",
		Err:           err,
	}
}

// NewRecipeGenerationError creates a new recipe generation error (500)
func NewRecipeGenerationError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeRecipeGeneration,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Wait for the extraction service to be available and retry.",
		Err:           err,
	}
}

// NewInternalError creates a new internal error (500)
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInternal,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "INTERNAL_ERROR",
		IsOperational: false,
		Err:           err,
	}
}
