// Package store provides the lexical (BM25) and semantic (vector) indexes and
// the artifact persistence behind them.
package store

import (
	"context"

	"github.com/Aman-CERP/hybridsearch/internal/corpus"
)

// Lexical artifact names. Each is persisted independently.
const (
	ArtifactIndex           = "index"
	ArtifactDocmap          = "docmap"
	ArtifactTermFrequencies = "term_frequencies"
	ArtifactDocLengths      = "doc_lengths"
)

// SnippetLength is the number of description runes carried by a SemanticHit.
const SnippetLength = 100

// Tokenizer turns text into ordered normalized terms.
// Empty input yields an empty slice, never an error.
type Tokenizer interface {
	Tokenize(text string) []string
}

// TokenizerFunc adapts a function to the Tokenizer interface.
type TokenizerFunc func(text string) []string

// Tokenize implements Tokenizer.
func (f TokenizerFunc) Tokenize(text string) []string { return f(text) }

// Embedder is the subset of the embedding provider the vector index needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LexicalHit is one BM25 search result.
type LexicalHit struct {
	Document corpus.Document
	Score    float64
}

// ChunkMeta locates a chunk within its document.
type ChunkMeta struct {
	DocumentID  int
	ChunkIndex  int
	TotalChunks int
}

// SemanticHit is one semantic search result: the document's best chunk score
// and the metadata of that chunk.
type SemanticHit struct {
	ID          int
	Title       string
	Description string // truncated to SnippetLength runes
	Score       float64
	Chunk       ChunkMeta
	Document    corpus.Document
}

// BM25Config holds the BM25 saturation and length normalization parameters.
type BM25Config struct {
	// K1 is the term frequency saturation parameter (default: 1.5)
	K1 float64

	// B is the length normalization parameter (default: 0.75)
	B float64
}

// DefaultBM25Config returns default BM25 configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.5, B: 0.75}
}

// IndexStats provides statistics about the lexical index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}
