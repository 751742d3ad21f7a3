// Package mcp implements the Model Context Protocol (MCP) server exposing the
// hybridsearch query surface as tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeIndexNotLoaded indicates the indexes are not built or not loaded.
	ErrCodeIndexNotLoaded = -32001

	// ErrCodeProviderFailed indicates an embedding, generation or rerank
	// provider failed.
	ErrCodeProviderFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var se *apperrors.SearchError
	if errors.As(err, &se) {
		return mapSearchError(se)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

// mapSearchError converts a SearchError to an MCPError, appending the
// suggestion to the message when present.
func mapSearchError(se *apperrors.SearchError) *MCPError {
	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s %s", se.Message, se.Suggestion)
	}

	switch se.Category {
	case apperrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case apperrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeProviderFailed, Message: message}
	case apperrors.CategoryIO:
		switch se.Code {
		case apperrors.ErrCodeIndexNotLoaded, apperrors.ErrCodeCacheMissing, apperrors.ErrCodeCorruptIndex:
			return &MCPError{Code: ErrCodeIndexNotLoaded, Message: message}
		}
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	default:
		switch se.Code {
		case apperrors.ErrCodeEmbeddingFailed, apperrors.ErrCodeRerankFailed, apperrors.ErrCodeGenerateFailed:
			return &MCPError{Code: ErrCodeProviderFailed, Message: message}
		}
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
