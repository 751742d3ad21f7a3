// Package embed provides the embedding providers used by the semantic index:
// an offline hashing embedder, an Ollama HTTP embedder and an LRU cache
// decorator.
package embed

import (
	"context"
	"math"
	"strings"
	"time"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

const (
	// MaxBatchSize caps texts per provider request.
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// StaticDimensions is the embedding dimension for the static embedder
	StaticDimensions = 384
)

// Embedder generates vector embeddings for text.
// Embed and EmbedBatch reject empty or whitespace-only text with
// errors.ErrEmptyInput.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	Close() error
}

// checkInput rejects blank texts before any provider work is done.
func checkInput(texts ...string) error {
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return apperrors.EmptyInput("embedding text")
		}
	}
	return nil
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
