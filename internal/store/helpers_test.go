package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// whitespaceTokenizer lowercases and splits on whitespace, keeping formula
// tests independent of stemming and stopwords.
var whitespaceTokenizer = TokenizerFunc(func(text string) []string {
	return strings.Fields(strings.ToLower(text))
})

func bearCorpus() []corpus.Document {
	return []corpus.Document{
		{ID: 1, Title: "Bear Attack", Description: "bear"},
		{ID: 2, Title: "Paddington Bear", Description: ""},
		{ID: 3, Title: "Space Opera", Description: "stars"},
	}
}

// mapEmbedder returns fixed vectors per text and counts batch calls.
type mapEmbedder struct {
	vectors    map[string][]float32
	dims       int
	batchCalls int
}

func (m *mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.EmptyInput("text")
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, m.dims), nil
}

func (m *mapEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
