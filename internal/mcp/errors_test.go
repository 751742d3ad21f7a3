package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"empty query", apperrors.New(apperrors.ErrCodeQueryEmpty, "query is empty", nil), ErrCodeInvalidParams},
		{"invalid fusion", apperrors.New(apperrors.ErrCodeInvalidFusion, "alpha", nil), ErrCodeInvalidParams},
		{"index not loaded", apperrors.NotLoaded("semantic"), ErrCodeIndexNotLoaded},
		{"cache missing", apperrors.CacheMissing("embeddings.npy", nil), ErrCodeIndexNotLoaded},
		{"provider rejected", apperrors.New(apperrors.ErrCodeProviderRejected, "401", nil), ErrCodeProviderFailed},
		{"circuit open", apperrors.New(apperrors.ErrCodeProviderCircuitOpen, "open", nil), ErrCodeProviderFailed},
		{"rerank failed", apperrors.New(apperrors.ErrCodeRerankFailed, "bad json", nil), ErrCodeProviderFailed},
		{"wrapped search error", fmt.Errorf("outer: %w", apperrors.NotLoaded("lexical")), ErrCodeIndexNotLoaded},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), ErrCodeTimeout},
		{"plain error", errors.New("boom"), ErrCodeInternalError},
		{"already mapped", NewInvalidParamsError("bad"), ErrCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_AppendsSuggestion(t *testing.T) {
	err := apperrors.New(apperrors.ErrCodeInvalidInput, "unknown rerank method \"x\"", nil).
		WithSuggestion("Available methods: batch")

	got := MapError(err)

	assert.Equal(t, "unknown rerank method \"x\" Available methods: batch", got.Message)
}

func TestMapError_HidesInternalDetail(t *testing.T) {
	got := MapError(errors.New("open /secret/path: permission denied"))

	assert.Equal(t, "Internal server error.", got.Message)
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("search_docs")

	assert.Equal(t, "MCP error -32601: Tool 'search_docs' not found.", err.Error())
}
