package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// Reranker method names, as accepted by SearchOptions.Rerank.
const (
	RerankPointwise    = "individual"
	RerankListwise     = "batch"
	RerankCrossEncoder = "cross_encoder"
)

// Reranker reorders fused candidates for a query and keeps at most limit of
// them. Implementations hold orchestration only; scoring is injected.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []FusedCandidate, limit int) ([]RerankedResult, error)

	// Name is the method name the engine registers the reranker under.
	Name() string
}

// PointwiseScorer rates one candidate against the query.
type PointwiseScorer interface {
	Score(ctx context.Context, query string, candidate FusedCandidate) (float64, error)
}

// ListwiseScorer returns candidate ids in relevance order. Ids it omits are
// dropped from the result.
type ListwiseScorer interface {
	Order(ctx context.Context, query string, candidates []FusedCandidate) ([]int, error)
}

// PairScorer scores (query, text) pairs, one score per text in input order.
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error)
}

// PointwiseReranker calls its scorer once per candidate.
type PointwiseReranker struct {
	scorer PointwiseScorer
}

var _ Reranker = (*PointwiseReranker)(nil)

// NewPointwiseReranker creates a pointwise reranker.
func NewPointwiseReranker(scorer PointwiseScorer) (*PointwiseReranker, error) {
	if scorer == nil {
		return nil, fmt.Errorf("%w: pointwise scorer is required", ErrNilDependency)
	}
	return &PointwiseReranker{scorer: scorer}, nil
}

// Name implements Reranker.
func (r *PointwiseReranker) Name() string { return RerankPointwise }

// Rerank implements Reranker.
func (r *PointwiseReranker) Rerank(ctx context.Context, query string, candidates []FusedCandidate, limit int) ([]RerankedResult, error) {
	start := time.Now()
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := r.scorer.Score(ctx, query, c)
		if err != nil {
			return nil, scorerFailed(r.Name(), err)
		}
		scores[i] = s
	}
	out := sortByScore(candidates, scores, limit)
	logRerank(r.Name(), len(candidates), len(out), time.Since(start))
	return out, nil
}

// ListwiseReranker calls its scorer once with every candidate and rebuilds
// the list in the returned order.
type ListwiseReranker struct {
	scorer ListwiseScorer
}

var _ Reranker = (*ListwiseReranker)(nil)

// NewListwiseReranker creates a listwise reranker.
func NewListwiseReranker(scorer ListwiseScorer) (*ListwiseReranker, error) {
	if scorer == nil {
		return nil, fmt.Errorf("%w: listwise scorer is required", ErrNilDependency)
	}
	return &ListwiseReranker{scorer: scorer}, nil
}

// Name implements Reranker.
func (r *ListwiseReranker) Name() string { return RerankListwise }

// Rerank implements Reranker. Unknown and repeated ids in the scorer's
// answer are ignored.
func (r *ListwiseReranker) Rerank(ctx context.Context, query string, candidates []FusedCandidate, limit int) ([]RerankedResult, error) {
	start := time.Now()
	if len(candidates) == 0 {
		return []RerankedResult{}, nil
	}
	ids, err := r.scorer.Order(ctx, query, candidates)
	if err != nil {
		return nil, scorerFailed(r.Name(), err)
	}

	byID := make(map[int]FusedCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	out := make([]RerankedResult, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			continue
		}
		delete(byID, id)
		out = append(out, RerankedResult{FusedCandidate: c, Rank: len(out) + 1, Reranked: true})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	logRerank(r.Name(), len(candidates), len(out), time.Since(start))
	return out, nil
}

// CrossEncoderReranker sends every (query, candidate) pair to a PairScorer in
// one call, leaving batching to the scorer.
type CrossEncoderReranker struct {
	scorer PairScorer
}

var _ Reranker = (*CrossEncoderReranker)(nil)

// NewCrossEncoderReranker creates a cross-encoder reranker.
func NewCrossEncoderReranker(scorer PairScorer) (*CrossEncoderReranker, error) {
	if scorer == nil {
		return nil, fmt.Errorf("%w: pair scorer is required", ErrNilDependency)
	}
	return &CrossEncoderReranker{scorer: scorer}, nil
}

// Name implements Reranker.
func (r *CrossEncoderReranker) Name() string { return RerankCrossEncoder }

// Rerank implements Reranker.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, candidates []FusedCandidate, limit int) ([]RerankedResult, error) {
	start := time.Now()
	if len(candidates) == 0 {
		return []RerankedResult{}, nil
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = PairText(c)
	}
	scores, err := r.scorer.ScorePairs(ctx, query, texts)
	if err != nil {
		return nil, scorerFailed(r.Name(), err)
	}
	if len(scores) != len(candidates) {
		return nil, apperrors.New(apperrors.ErrCodeRerankFailed,
			fmt.Sprintf("pair scorer returned %d scores for %d candidates", len(scores), len(candidates)), nil)
	}
	out := sortByScore(candidates, scores, limit)
	logRerank(r.Name(), len(candidates), len(out), time.Since(start))
	return out, nil
}

// PairText is the candidate text a cross-encoder scores against the query.
func PairText(c FusedCandidate) string {
	return c.Document.Title + " - " + c.Document.Description
}

// sortByScore orders candidates by descending score, keeping fused order on
// ties, and truncates to limit.
func sortByScore(candidates []FusedCandidate, scores []float64, limit int) []RerankedResult {
	out := make([]RerankedResult, len(candidates))
	for i, c := range candidates {
		out[i] = RerankedResult{FusedCandidate: c, RerankScore: scores[i], Reranked: true}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// passthrough wraps fused candidates when no reranker runs.
func passthrough(candidates []FusedCandidate) []RerankedResult {
	out := make([]RerankedResult, len(candidates))
	for i, c := range candidates {
		out[i] = RerankedResult{FusedCandidate: c, Rank: i + 1}
	}
	return out
}

// scorerFailed logs a scorer error and returns it unchanged.
func scorerFailed(method string, err error) error {
	slog.Warn("rerank_scorer_failed",
		slog.String("method", method),
		slog.String("error", err.Error()))
	return err
}

func logRerank(method string, in, out int, d time.Duration) {
	slog.Debug("rerank_complete",
		slog.String("method", method),
		slog.Int("candidates", in),
		slog.Int("results", out),
		slog.Duration("duration", d))
}
