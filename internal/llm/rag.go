package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// RAG generates prose from retrieved documents.
type RAG struct {
	gen Generator
}

// NewRAG creates a RAG helper over gen.
func NewRAG(gen Generator) (*RAG, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	return &RAG{gen: gen}, nil
}

// Answer responds to the query from the documents.
func (r *RAG) Answer(ctx context.Context, query string, docs []corpus.Document) (string, error) {
	return r.run(ctx, answerPrompt, query, docs, false)
}

// Summarize synthesizes the documents into a short overview for the query.
func (r *RAG) Summarize(ctx context.Context, query string, docs []corpus.Document) (string, error) {
	return r.run(ctx, summarizePrompt, query, docs, false)
}

// Cite answers with [n] citations that index into docs, 1-based.
func (r *RAG) Cite(ctx context.Context, query string, docs []corpus.Document) (string, error) {
	return r.run(ctx, citePrompt, query, docs, true)
}

func (r *RAG) run(ctx context.Context, prompt, query string, docs []corpus.Document, numbered bool) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", apperrors.New(apperrors.ErrCodeQueryEmpty, "query is empty", nil)
	}
	reply, err := r.gen.Generate(ctx, fmt.Sprintf(prompt, query, FormatDocuments(docs, numbered)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// FormatDocuments renders documents for a prompt, one per line. Numbered
// output prefixes each with its 1-based citation index.
func FormatDocuments(docs []corpus.Document, numbered bool) string {
	var b strings.Builder
	for i, d := range docs {
		if numbered {
			fmt.Fprintf(&b, "[%d] ", i+1)
		}
		fmt.Fprintf(&b, "%s - %s\n", d.Title, d.Description)
	}
	return b.String()
}
