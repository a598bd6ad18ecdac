// Package errhandling provides error types and classification utilities.
// This file defines error categories, classification functions, and helper utilities
// used at the load, filter and output boundaries of a dashboard run.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryDataUnavailable marks a source that could not be read or parsed.
	// The run continues with an empty table and reports the message.
	CategoryDataUnavailable ErrorCategory = "data_unavailable"

	// CategoryConfig represents invalid dashboard or module configuration.
	CategoryConfig ErrorCategory = "config"

	// CategoryFilter represents a failure while evaluating a filter.
	CategoryFilter ErrorCategory = "filter"

	// CategoryOutput represents a failure while writing a report.
	CategoryOutput ErrorCategory = "output"

	// CategoryCanceled represents a run stopped by context cancellation or deadline.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// Path is the file involved, if any.
	Path string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error: %s (%s)", e.Category, e.Message, e.Path)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// NewDataUnavailableError wraps a load failure for path.
func NewDataUnavailableError(path string, err error) *ClassifiedError {
	msg := "data unavailable"
	if err != nil {
		msg = describeLoadFailure(err)
	}
	return &ClassifiedError{
		Category:    CategoryDataUnavailable,
		Message:     msg,
		Path:        path,
		OriginalErr: err,
	}
}

// NewConfigError reports invalid configuration for a module.
func NewConfigError(format string, args ...interface{}) *ClassifiedError {
	err := fmt.Errorf(format, args...)
	return &ClassifiedError{
		Category:    CategoryConfig,
		Message:     err.Error(),
		OriginalErr: errors.Unwrap(err),
	}
}

// Wrap classifies err under category with a message prefix.
// A nil err returns nil.
func Wrap(category ErrorCategory, message string, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Category:    category,
		Message:     fmt.Sprintf("%s: %v", message, err),
		OriginalErr: err,
	}
}

func describeLoadFailure(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "file not found"
	case errors.Is(err, fs.ErrPermission):
		return "permission denied"
	default:
		return err.Error()
	}
}

// Classify classifies any error into a ClassifiedError.
// Already classified errors are returned as is.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{
			Category:    CategoryCanceled,
			Message:     "context canceled",
			OriginalErr: err,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryCanceled,
			Message:     "deadline exceeded",
			OriginalErr: err,
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return NewDataUnavailableError(pathErr.Path, err)
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return Classify(err).Category
}

// IsDataUnavailable reports whether err is a source load failure.
func IsDataUnavailable(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryDataUnavailable
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryConfig
}

// UserMessage renders err for display next to an empty result.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	c := Classify(err)
	if c.Category == CategoryDataUnavailable {
		if c.Path != "" {
			return fmt.Sprintf("Data unavailable: %s (%s)", c.Message, c.Path)
		}
		return "Data unavailable: " + c.Message
	}
	return c.Error()
}
