// Package errors provides a lightweight structured error type (PublishError)
// for category-based classification across the publishing pipeline and CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a publish error for classification
type ErrorCategory string

const (
	// Content-side errors: the author's source tree is malformed
	CategoryScan       ErrorCategory = "scan"
	CategoryValidation ErrorCategory = "validation"

	// Pipeline errors
	CategoryRender   ErrorCategory = "render"
	CategoryHistory  ErrorCategory = "history"
	CategoryAssembly ErrorCategory = "assembly"

	// Runtime and infrastructure errors
	CategoryConfig   ErrorCategory = "config"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the run
	SeverityError   ErrorSeverity = "error"   // Error, but the run continues
	SeverityWarning ErrorSeverity = "warning" // Degraded output, reported in the summary
)

// PublishError is a structured error with category, severity, and context
type PublishError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for PublishError
type ContextFields map[string]any

// Error implements the error interface
func (e *PublishError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *PublishError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *PublishError) WithContext(key string, value any) *PublishError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PublishError
func New(category ErrorCategory, severity ErrorSeverity, message string) *PublishError {
	return &PublishError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new PublishError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *PublishError {
	return &PublishError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// ScanError creates a fatal scan error: the content root is malformed and
// generation must not proceed on a partial manifest.
func ScanError(message string) *PublishError {
	return New(CategoryScan, SeverityFatal, message)
}

// RenderWarning creates a recoverable per-page rendering warning.
func RenderWarning(message string) *PublishError {
	return New(CategoryRender, SeverityWarning, message)
}

// HistoryError creates a fatal history error: the change ledger could not be
// read or appended, so the run cannot produce a reliable record.
func HistoryError(err error, message string) *PublishError {
	return Wrap(err, CategoryHistory, SeverityFatal, message)
}

// AssemblyError creates a per-page assembly error.
func AssemblyError(err error, message string) *PublishError {
	return Wrap(err, CategoryAssembly, SeverityError, message)
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Category == category
	}
	return false
}

// IsFatal checks if an error carries fatal severity
func IsFatal(err error) bool {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Severity == SeverityFatal
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if it is not a PublishError
func GetCategory(err error) ErrorCategory {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryInternal
}
