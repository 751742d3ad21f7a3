package errors

import (
	"errors"
	"fmt"
)

// SearchError is the structured error type for hybridsearch.
// It provides rich context for error handling, logging, and user presentation.
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_208_CACHE_MISSING").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a SearchError with the same code.
// This lets callers match the package sentinels with errors.Is.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *SearchError) WithSuggestion(suggestion string) *SearchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SearchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SearchError from an existing error.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for the index lifecycle and input conditions. Match with errors.Is;
// the constructors below attach context to fresh copies.
var (
	ErrNotLoaded        = &SearchError{Code: ErrCodeIndexNotLoaded}
	ErrCacheMissing     = &SearchError{Code: ErrCodeCacheMissing}
	ErrInvalidTermArity = &SearchError{Code: ErrCodeInvalidTermArity}
	ErrEmptyInput       = &SearchError{Code: ErrCodeEmptyInput}
)

// NotLoaded reports an index operation invoked before build or load.
func NotLoaded(index string) *SearchError {
	return New(ErrCodeIndexNotLoaded, fmt.Sprintf("%s index is not loaded", index), nil).
		WithDetail("index", index).
		WithSuggestion("Run 'hybridsearch build' or load the index before querying")
}

// CacheMissing reports a persisted artifact that does not exist.
func CacheMissing(artifact string, cause error) *SearchError {
	return New(ErrCodeCacheMissing, fmt.Sprintf("cache artifact %q not found", artifact), cause).
		WithDetail("artifact", artifact).
		WithSuggestion("Run 'hybridsearch build' to create the cache")
}

// InvalidTermArity reports single-term input that tokenized to a different number of terms.
func InvalidTermArity(input string, got int) *SearchError {
	return New(ErrCodeInvalidTermArity,
		fmt.Sprintf("expected exactly one term in %q, got %d", input, got), nil).
		WithDetail("input", input).
		WithDetail("terms", fmt.Sprintf("%d", got))
}

// EmptyInput reports an embedding request for empty or whitespace-only text.
func EmptyInput(what string) *SearchError {
	return New(ErrCodeEmptyInput, fmt.Sprintf("%s must not be empty", what), nil)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SearchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SearchError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are retryable.
func NetworkError(message string, cause error) *SearchError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SearchError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether any SearchError in err's chain is retryable.
func IsRetryable(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCode extracts the error code of the first SearchError in err's chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
