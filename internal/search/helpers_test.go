package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/store"
)

// --- Test Helpers ---

func doc(id int, title string) corpus.Document {
	return corpus.Document{ID: id, Title: title, Description: title + " description"}
}

func ranked(ids []int, scores []float64) []Ranked {
	out := make([]Ranked, len(ids))
	for i, id := range ids {
		score := 1.0
		if i < len(scores) {
			score = scores[i]
		}
		out[i] = Ranked{ID: id, Document: doc(id, "doc"), Score: score}
	}
	return out
}

func idsOf(cs []FusedCandidate) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func resultIDs(rs []RerankedResult) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

type fakeLexical struct {
	mu     sync.Mutex
	hits   []store.LexicalHit
	err    error
	limits []int
}

func (f *fakeLexical) Search(_ context.Context, _ string, limit int) ([]store.LexicalHit, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

type fakeSemantic struct {
	mu      sync.Mutex
	hits    []store.SemanticHit
	err     error
	limits  []int
	queries []string
}

func (f *fakeSemantic) Search(_ context.Context, query string, limit int) ([]store.SemanticHit, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func lexHits(docs ...corpus.Document) []store.LexicalHit {
	out := make([]store.LexicalHit, len(docs))
	for i, d := range docs {
		out[i] = store.LexicalHit{Document: d, Score: float64(len(docs) - i)}
	}
	return out
}

func semHits(docs ...corpus.Document) []store.SemanticHit {
	out := make([]store.SemanticHit, len(docs))
	for i, d := range docs {
		out[i] = store.SemanticHit{ID: d.ID, Title: d.Title, Document: d, Score: 1.0 / float64(i+1)}
	}
	return out
}

// vectorEmbedder returns fixed vectors per text; unknown text maps to zeros.
type vectorEmbedder struct {
	vectors map[string][]float32
	dims    int
}

func (v *vectorEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.EmptyInput("text")
	}
	if vec, ok := v.vectors[text]; ok {
		return vec, nil
	}
	return make([]float32, v.dims), nil
}

func (v *vectorEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := v.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

type recordedQuery struct {
	mode    string
	query   string
	results int
	err     error
}

type fakeRecorder struct {
	mu      sync.Mutex
	queries []recordedQuery
}

func (f *fakeRecorder) ObserveQuery(mode, query string, _ time.Duration, results int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, recordedQuery{mode: mode, query: query, results: results, err: err})
}

type fakeRewriter struct {
	calls []string
	err   error
}

func (f *fakeRewriter) Rewrite(_ context.Context, method, query string) (string, error) {
	f.calls = append(f.calls, method)
	if f.err != nil {
		return "", f.err
	}
	return query + " rewritten", nil
}

// recordingReranker keeps the candidates it saw and reverses them.
type recordingReranker struct {
	name string
	seen []FusedCandidate
}

func (r *recordingReranker) Name() string { return r.name }

func (r *recordingReranker) Rerank(_ context.Context, _ string, candidates []FusedCandidate, limit int) ([]RerankedResult, error) {
	r.seen = candidates
	out := make([]RerankedResult, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		out = append(out, RerankedResult{FusedCandidate: candidates[i], Rank: len(out) + 1, Reranked: true})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type funcPointwise func(FusedCandidate) (float64, error)

func (f funcPointwise) Score(_ context.Context, _ string, c FusedCandidate) (float64, error) {
	return f(c)
}

type funcListwise func([]FusedCandidate) ([]int, error)

func (f funcListwise) Order(_ context.Context, _ string, cs []FusedCandidate) ([]int, error) {
	return f(cs)
}

type funcPairs func(texts []string) ([]float64, error)

func (f funcPairs) ScorePairs(_ context.Context, _ string, texts []string) ([]float64, error) {
	return f(texts)
}
