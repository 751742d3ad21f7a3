package search

import (
	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	"github.com/Aman-CERP/hybridsearch/internal/store"
)

// Search modes accepted by Engine.Search.
const (
	ModeBM25     = "bm25"
	ModeSemantic = "semantic"
	ModeWeighted = "weighted"
	ModeRRF      = "rrf"
)

// Engine defaults.
const (
	DefaultLimit            = 5
	DefaultOversample       = 500
	DefaultAlpha            = 0.5
	DefaultRerankMultiplier = 5
)

// Ranked is one entry of a relevance-sorted input list handed to a Fuser.
type Ranked struct {
	ID       int
	Document corpus.Document
	Score    float64
}

// LexicalRanking adapts BM25 hits to fusion input, keeping their order.
func LexicalRanking(hits []store.LexicalHit) []Ranked {
	out := make([]Ranked, len(hits))
	for i, h := range hits {
		out[i] = Ranked{ID: h.Document.ID, Document: h.Document, Score: h.Score}
	}
	return out
}

// SemanticRanking adapts semantic hits to fusion input, keeping their order.
// The document comes from the semantic index's own document map.
func SemanticRanking(hits []store.SemanticHit) []Ranked {
	out := make([]Ranked, len(hits))
	for i, h := range hits {
		out[i] = Ranked{ID: h.ID, Document: h.Document, Score: h.Score}
	}
	return out
}

// Signal is one side's contribution to a fused candidate.
// Rank is 1-based; zero means the document was absent from that list.
type Signal struct {
	Rank         int
	Score        float64 // raw score from the source list
	Normalized   float64 // min-max normalized score, weighted fusion only
	Contribution float64 // amount added to the fused score
}

// Present reports whether the document appeared in this side's list.
func (s Signal) Present() bool { return s.Rank > 0 }

// FusedCandidate is a document after score fusion.
type FusedCandidate struct {
	ID       int
	Document corpus.Document
	Score    float64
	Lexical  Signal
	Semantic Signal
}

// InBoth reports whether both lists contributed to the candidate.
func (c FusedCandidate) InBoth() bool {
	return c.Lexical.Present() && c.Semantic.Present()
}

// RerankedResult is a fused candidate after the optional reranking stage.
type RerankedResult struct {
	FusedCandidate

	// Rank is the 1-based final position.
	Rank int

	// RerankScore is the reranker's score. Listwise reranking has no score
	// and leaves it zero.
	RerankScore float64

	// Reranked is false when no reranker ran.
	Reranked bool
}

// EngineConfig holds the engine's tunables.
type EngineConfig struct {
	// DefaultLimit applies when a query passes a non-positive limit (default: 5)
	DefaultLimit int

	// Oversample multiplies the limit when fetching lists for fusion (default: 500)
	Oversample int

	// Alpha is the lexical weight of weighted fusion (default: 0.5)
	Alpha float64

	// RRFK is the RRF smoothing constant (default: 60)
	RRFK int

	// RerankMultiplier enlarges the fused list handed to a reranker (default: 5)
	RerankMultiplier int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:     DefaultLimit,
		Oversample:       DefaultOversample,
		Alpha:            DefaultAlpha,
		RRFK:             DefaultRRFConstant,
		RerankMultiplier: DefaultRerankMultiplier,
	}
}

// withDefaults fills zero fields with defaults. Alpha is left alone because
// zero is a meaningful weight.
func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.Oversample <= 0 {
		c.Oversample = d.Oversample
	}
	if c.RRFK <= 0 {
		c.RRFK = d.RRFK
	}
	if c.RerankMultiplier <= 0 {
		c.RerankMultiplier = d.RerankMultiplier
	}
	return c
}

// SearchOptions configures Engine.Search.
type SearchOptions struct {
	// Mode is one of ModeBM25, ModeSemantic, ModeWeighted, ModeRRF (default: rrf)
	Mode string

	// Limit is the number of results (default: EngineConfig.DefaultLimit)
	Limit int

	// Alpha overrides EngineConfig.Alpha for weighted fusion. Nil keeps the default.
	Alpha *float64

	// K overrides EngineConfig.RRFK for RRF. Non-positive keeps the default.
	K int

	// Enhance names a query rewriting method (spell, rewrite, expand). Empty disables it.
	Enhance string

	// Rerank names a registered reranker. Empty disables reranking.
	Rerank string
}

// Float returns a pointer to v, for optional float fields like SearchOptions.Alpha.
func Float(v float64) *float64 { return &v }
