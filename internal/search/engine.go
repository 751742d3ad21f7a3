package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// LexicalSearcher is the part of the BM25 index the engine queries.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]store.LexicalHit, error)
}

// SemanticSearcher is the part of the vector index the engine queries.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]store.SemanticHit, error)
}

// QueryRewriter rewrites a query before retrieval (spelling fixes, rewrites,
// expansions).
type QueryRewriter interface {
	Rewrite(ctx context.Context, method, query string) (string, error)
}

// MetricsRecorder receives one observation per engine query.
type MetricsRecorder interface {
	ObserveQuery(mode, query string, duration time.Duration, results int, err error)
}

// Engine answers lexical, semantic and fused queries over two indexes.
// It holds no mutable state after construction and is safe for concurrent use
// once both indexes are loaded.
type Engine struct {
	lexical   LexicalSearcher
	semantic  SemanticSearcher
	config    EngineConfig
	rerankers map[string]Reranker
	rewriter  QueryRewriter
	metrics   MetricsRecorder
}

// EngineOption configures optional engine dependencies.
type EngineOption func(*Engine)

// WithConfig replaces the engine configuration. Zero fields take defaults.
func WithConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) {
		e.config = cfg.withDefaults()
	}
}

// WithReranker registers a reranker under its Name.
func WithReranker(r Reranker) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.rerankers[r.Name()] = r
		}
	}
}

// WithQueryRewriter sets the rewriter used by SearchOptions.Enhance.
func WithQueryRewriter(r QueryRewriter) EngineOption {
	return func(e *Engine) {
		e.rewriter = r
	}
}

// WithMetrics sets the query metrics recorder.
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a search engine over a lexical and a semantic index.
func NewEngine(lexical LexicalSearcher, semantic SemanticSearcher, opts ...EngineOption) (*Engine, error) {
	if lexical == nil {
		return nil, fmt.Errorf("%w: lexical index is required", ErrNilDependency)
	}
	if semantic == nil {
		return nil, fmt.Errorf("%w: semantic index is required", ErrNilDependency)
	}

	e := &Engine{
		lexical:   lexical,
		semantic:  semantic,
		config:    DefaultEngineConfig(),
		rerankers: make(map[string]Reranker),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.Alpha < 0 || e.config.Alpha > 1 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidFusion,
			fmt.Sprintf("alpha must be within [0,1], got %g", e.config.Alpha), nil)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Rerankers returns the registered reranker names, sorted.
func (e *Engine) Rerankers() []string {
	names := make([]string, 0, len(e.rerankers))
	for name := range e.rerankers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BM25Search returns the top lexical hits for the query.
func (e *Engine) BM25Search(ctx context.Context, query string, limit int) (hits []store.LexicalHit, err error) {
	defer e.observe(ModeBM25, query, time.Now(), func() int { return len(hits) }, &err)
	if err = checkQuery(query); err != nil {
		return nil, err
	}
	return e.lexical.Search(ctx, query, e.limit(limit))
}

// SemanticSearch returns the top semantic hits for the query.
func (e *Engine) SemanticSearch(ctx context.Context, query string, limit int) (hits []store.SemanticHit, err error) {
	defer e.observe(ModeSemantic, query, time.Now(), func() int { return len(hits) }, &err)
	if err = checkQuery(query); err != nil {
		return nil, err
	}
	return e.semantic.Search(ctx, query, e.limit(limit))
}

// WeightedSearch fuses over-fetched lexical and semantic lists with weighted
// min-max fusion.
func (e *Engine) WeightedSearch(ctx context.Context, query string, alpha float64, limit int) (out []FusedCandidate, err error) {
	defer e.observe(ModeWeighted, query, time.Now(), func() int { return len(out) }, &err)
	if err = checkQuery(query); err != nil {
		return nil, err
	}
	fuser, err := NewWeightedFusion(alpha)
	if err != nil {
		return nil, err
	}
	return e.fuse(ctx, query, fuser, e.limit(limit))
}

// RRFSearch fuses over-fetched lexical and semantic lists with Reciprocal
// Rank Fusion. A non-positive k uses the configured constant.
func (e *Engine) RRFSearch(ctx context.Context, query string, k, limit int) (out []FusedCandidate, err error) {
	defer e.observe(ModeRRF, query, time.Now(), func() int { return len(out) }, &err)
	if err = checkQuery(query); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = e.config.RRFK
	}
	return e.fuse(ctx, query, NewRRFFusionWithK(k), e.limit(limit))
}

// Search runs the full pipeline: optional query rewriting, retrieval in the
// requested mode, optional reranking over an enlarged candidate list, and
// truncation to the limit.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) (out []RerankedResult, err error) {
	opts = e.applyDefaults(opts)
	defer e.observe(opts.Mode, query, time.Now(), func() int { return len(out) }, &err)

	if err = checkQuery(query); err != nil {
		return nil, err
	}

	if opts.Enhance != "" {
		if e.rewriter == nil {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
				"query enhancement requested but no query rewriter is configured", nil).
				WithSuggestion("Configure a generation provider to enable --enhance")
		}
		rewritten, rerr := e.rewriter.Rewrite(ctx, opts.Enhance, query)
		if rerr != nil {
			return nil, rerr
		}
		slog.Debug("query_enhanced",
			slog.String("method", opts.Enhance),
			slog.String("original", query),
			slog.String("enhanced", rewritten))
		query = rewritten
	}

	var reranker Reranker
	fetch := opts.Limit
	if opts.Rerank != "" {
		r, ok := e.rerankers[opts.Rerank]
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
				fmt.Sprintf("unknown rerank method %q", opts.Rerank), nil).
				WithSuggestion("Available methods: " + strings.Join(e.Rerankers(), ", "))
		}
		reranker = r
		fetch = opts.Limit * e.config.RerankMultiplier
	}

	candidates, err := e.retrieve(ctx, query, opts, fetch)
	if err != nil {
		return nil, err
	}

	if reranker == nil {
		out = passthrough(candidates)
	} else {
		out, err = reranker.Rerank(ctx, query, candidates, opts.Limit)
		if err != nil {
			return nil, err
		}
	}
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// retrieve produces fused candidates for the mode. Single-index modes go
// through the same merge with one side empty so every mode yields
// FusedCandidate values.
func (e *Engine) retrieve(ctx context.Context, query string, opts SearchOptions, limit int) ([]FusedCandidate, error) {
	switch opts.Mode {
	case ModeBM25:
		hits, err := e.lexical.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return rawScores(LexicalRanking(hits), nil, limit), nil
	case ModeSemantic:
		hits, err := e.semantic.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return rawScores(nil, SemanticRanking(hits), limit), nil
	case ModeWeighted:
		alpha := e.config.Alpha
		if opts.Alpha != nil {
			alpha = *opts.Alpha
		}
		fuser, err := NewWeightedFusion(alpha)
		if err != nil {
			return nil, err
		}
		return e.fuse(ctx, query, fuser, limit)
	case ModeRRF:
		k := opts.K
		if k <= 0 {
			k = e.config.RRFK
		}
		return e.fuse(ctx, query, NewRRFFusionWithK(k), limit)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown search mode %q", opts.Mode), nil).
			WithSuggestion("Use one of: bm25, semantic, weighted, rrf")
	}
}

// fuse fetches both lists in parallel at limit*oversample and fuses them.
// The first failure cancels the other fetch and is returned unchanged.
func (e *Engine) fuse(ctx context.Context, query string, fuser Fuser, limit int) ([]FusedCandidate, error) {
	start := time.Now()
	fetch := limit * e.config.Oversample

	var lexHits []store.LexicalHit
	var semHits []store.SemanticHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexHits, err = e.lexical.Search(gctx, query, fetch)
		return err
	})
	g.Go(func() error {
		var err error
		semHits, err = e.semantic.Search(gctx, query, fetch)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuser.Fuse(LexicalRanking(lexHits), SemanticRanking(semHits), limit)

	slog.Debug("fusion_complete",
		slog.String("strategy", fuser.Name()),
		slog.Int("lexical", len(lexHits)),
		slog.Int("semantic", len(semHits)),
		slog.Int("results", len(fused)),
		slog.Duration("duration", time.Since(start)))

	return fused, nil
}

// rawScores wraps one index's hits as candidates whose fused score is the raw
// score.
func rawScores(lexical, semantic []Ranked, limit int) []FusedCandidate {
	raw := func(list []Ranked) side {
		return side{list: list, contribute: func(pos int) float64 { return list[pos].Score }}
	}
	return merge(raw(lexical), raw(semantic), limit)
}

func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Mode == "" {
		opts.Mode = ModeRRF
	}
	opts.Limit = e.limit(opts.Limit)
	return opts
}

func (e *Engine) limit(limit int) int {
	if limit <= 0 {
		return e.config.DefaultLimit
	}
	return limit
}

func (e *Engine) observe(mode, query string, start time.Time, results func() int, err *error) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveQuery(mode, query, time.Since(start), results(), *err)
}

func checkQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return apperrors.New(apperrors.ErrCodeQueryEmpty, "query is empty", nil).
			WithSuggestion("Provide a non-empty search query")
	}
	return nil
}
