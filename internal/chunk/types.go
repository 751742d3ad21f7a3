// Package chunk splits document text into overlapping groups of sentences or
// words for embedding.
package chunk

import (
	"fmt"
	"strings"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// Defaults used by the chunked semantic index.
const (
	DefaultSentenceChunkSize = 4
	DefaultSentenceOverlap   = 1
	DefaultWordChunkSize     = 200
	DefaultWordOverlap       = 0
)

// Chunker turns text into an ordered list of chunk texts.
type Chunker interface {
	Chunk(text string) ([]string, error)

	// Name identifies the strategy in cache artifact names and logs.
	Name() string
}

// Group slides a window of size blocks over the input, starting each window
// size-overlap blocks after the previous one. The final window may be shorter
// than size. Zero blocks yield zero groups.
func Group(blocks []string, size, overlap int) ([][]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	var groups [][]string
	for {
		end := min(size, len(blocks))
		groups = append(groups, blocks[:end:end])
		if size >= len(blocks) {
			break
		}
		blocks = blocks[size-overlap:]
	}
	return groups, nil
}

// Join groups blocks with Group and joins each group with a single space.
func Join(blocks []string, size, overlap int) ([]string, error) {
	groups, err := Group(blocks, size, overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]string, len(groups))
	for i, g := range groups {
		chunks[i] = strings.Join(g, " ")
	}
	return chunks, nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunk size must be positive, got %d", size), nil)
	}
	if overlap < 0 || overlap >= size {
		return apperrors.New(apperrors.ErrCodeInvalidChunking,
			fmt.Sprintf("overlap must be in [0,%d), got %d", size, overlap), nil)
	}
	return nil
}
