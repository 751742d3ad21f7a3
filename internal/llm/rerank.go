package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/search"
)

// MaxRating is the top of the pointwise rating scale.
const MaxRating = 10.0

var (
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	scalePattern  = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:-|\bto\b)\s*\d+(?:\.\d+)?|(?:/|\bout of\b)\s*\d+(?:\.\d+)?`)
)

// PointwiseScorer asks the generator to rate each candidate from 0 to 10.
type PointwiseScorer struct {
	gen Generator
}

var _ search.PointwiseScorer = (*PointwiseScorer)(nil)

// NewPointwiseScorer creates a rating scorer over gen.
func NewPointwiseScorer(gen Generator) (*PointwiseScorer, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	return &PointwiseScorer{gen: gen}, nil
}

// Score implements search.PointwiseScorer. See ParseRating for how the reply
// is read.
func (s *PointwiseScorer) Score(ctx context.Context, query string, c search.FusedCandidate) (float64, error) {
	reply, err := s.gen.Generate(ctx, fmt.Sprintf(pointwisePrompt, query, c.Document.Title, c.Document.Description))
	if err != nil {
		return 0, err
	}
	return ParseRating(reply)
}

// ParseRating extracts a 0-10 rating from a model reply. The rating is the
// last number once scale mentions such as "0-10", "/10" and "out of 10" are
// removed, so a preamble describing the scale never wins.
func ParseRating(reply string) (float64, error) {
	ms := numberPattern.FindAllString(scalePattern.ReplaceAllString(reply, " "), -1)
	if len(ms) == 0 {
		return 0, apperrors.New(apperrors.ErrCodeRerankFailed,
			fmt.Sprintf("no rating in reply %q", truncate(reply, 80)), nil)
	}
	v, err := strconv.ParseFloat(ms[len(ms)-1], 64)
	if err != nil {
		return 0, apperrors.New(apperrors.ErrCodeRerankFailed, "unparsable rating", err)
	}
	return min(max(v, 0), MaxRating), nil
}

// ListwiseScorer asks the generator to order all candidates in one call.
type ListwiseScorer struct {
	gen Generator
}

var _ search.ListwiseScorer = (*ListwiseScorer)(nil)

// NewListwiseScorer creates an ordering scorer over gen.
func NewListwiseScorer(gen Generator) (*ListwiseScorer, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	return &ListwiseScorer{gen: gen}, nil
}

// Order implements search.ListwiseScorer.
func (s *ListwiseScorer) Order(ctx context.Context, query string, candidates []search.FusedCandidate) ([]int, error) {
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "%d: %s - %s\n", c.ID, c.Document.Title, c.Document.Snippet(200))
	}
	reply, err := s.gen.Generate(ctx, fmt.Sprintf(listwisePrompt, query, b.String()))
	if err != nil {
		return nil, err
	}
	return ParseIDList(reply)
}

// ParseIDList reads the first JSON array of integers in a model reply,
// tolerating surrounding prose or code fences. Brackets after that array are
// ignored.
func ParseIDList(reply string) ([]int, error) {
	var lastErr error
	for start := strings.Index(reply, "["); start >= 0; {
		var ids []int
		err := json.NewDecoder(strings.NewReader(reply[start:])).Decode(&ids)
		if err == nil {
			return ids, nil
		}
		lastErr = err
		next := strings.Index(reply[start+1:], "[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	if lastErr != nil {
		return nil, apperrors.New(apperrors.ErrCodeRerankFailed, "malformed id list", lastErr)
	}
	return nil, apperrors.New(apperrors.ErrCodeRerankFailed,
		fmt.Sprintf("no id list in reply %q", truncate(reply, 80)), nil)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
