// Package errors classifies flowchart failures and retries transient ones.
//
// The package implements a layered approach:
//   - Categorization: map any error from the engine, the repository or a
//     request validator onto a Category and a stable Code
//   - Retry: re-run an operation with exponential backoff while its error
//     stays retryable (transient failures, and version conflicts when asked)
package errors

import (
	"errors"
	"fmt"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryInternal indicates a bug or an unclassified failure.
	CategoryInternal Category = iota

	// CategoryInvalid indicates the caller sent something malformed.
	// Examples: request validation failures, structurally invalid graphs.
	CategoryInvalid

	// CategoryNotFound indicates a referenced flowchart, edge, node or run does not exist.
	CategoryNotFound

	// CategoryConflict indicates the request raced another writer or reused an id.
	CategoryConflict

	// CategoryTransient indicates retry will likely help.
	// Examples: dropped database connections, timeouts.
	CategoryTransient

	// CategoryRuntime indicates the flowchart itself failed while executing.
	// Examples: evaluation faults, dangling branches, exhausted step budgets.
	CategoryRuntime
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryInternal:
		return "internal"
	case CategoryInvalid:
		return "invalid"
	case CategoryNotFound:
		return "not_found"
	case CategoryConflict:
		return "conflict"
	case CategoryTransient:
		return "transient"
	case CategoryRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Invalid creates an invalid-input error.
func Invalid(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryInvalid, context)
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	cat, _ := Classify(err)
	return cat
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsConflict reports whether the error is a lost optimistic-concurrency race
// or an id collision.
func IsConflict(err error) bool {
	return Categorize(err) == CategoryConflict
}

// ErrInvalidRequest marks a request rejected before any work was done.
var ErrInvalidRequest = errors.New("invalid request")
