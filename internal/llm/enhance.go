package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/search"
)

// Query enhancement methods.
const (
	EnhanceSpell   = "spell"
	EnhanceRewrite = "rewrite"
	EnhanceExpand  = "expand"
)

// EnhanceMethods lists the accepted enhancement methods.
var EnhanceMethods = []string{EnhanceSpell, EnhanceRewrite, EnhanceExpand}

// Enhancer rewrites queries with a Generator. Spell and rewrite replace the
// query; expand appends the generated terms to it.
type Enhancer struct {
	gen Generator
}

var _ search.QueryRewriter = (*Enhancer)(nil)

// NewEnhancer creates an enhancer over gen.
func NewEnhancer(gen Generator) (*Enhancer, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	return &Enhancer{gen: gen}, nil
}

// Rewrite implements search.QueryRewriter. An empty reply keeps the query.
func (e *Enhancer) Rewrite(ctx context.Context, method, query string) (string, error) {
	var prompt string
	switch method {
	case EnhanceSpell:
		prompt = spellPrompt
	case EnhanceRewrite:
		prompt = rewritePrompt
	case EnhanceExpand:
		prompt = expandPrompt
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown enhancement method %q", method), nil).
			WithSuggestion("Use one of: " + strings.Join(EnhanceMethods, ", "))
	}

	reply, err := e.gen.Generate(ctx, fmt.Sprintf(prompt, query))
	if err != nil {
		return "", err
	}
	reply = cleanReply(reply)

	enhanced := query
	switch {
	case reply == "":
	case method == EnhanceExpand:
		enhanced = query + " " + reply
	default:
		enhanced = reply
	}

	slog.Info("query_enhanced",
		slog.String("method", method),
		slog.String("original", query),
		slog.String("enhanced", enhanced))
	return enhanced, nil
}

// cleanReply trims whitespace and one pair of surrounding quotes.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
