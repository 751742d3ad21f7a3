// Package search fuses lexical and semantic rankings and orchestrates the
// optional reranking stage.
package search

import (
	"fmt"
	"sort"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// Fuser combines a lexical and a semantic ranking into one list.
type Fuser interface {
	// Fuse returns at most limit candidates, best first, with no duplicate
	// ids. A non-positive limit returns every candidate.
	Fuse(lexical, semantic []Ranked, limit int) []FusedCandidate

	// Name identifies the strategy in logs and metrics.
	Name() string
}

// side is one input list plus the per-position contribution it makes.
type side struct {
	list       []Ranked
	normalized []float64
	contribute func(pos int) float64
}

// merge is the skeleton shared by every fusion strategy. Both sides are
// walked the same way; strategies differ only in the contribution function.
func merge(lexical, semantic side, limit int) []FusedCandidate {
	byID := make(map[int]*FusedCandidate, len(lexical.list)+len(semantic.list))
	order := make([]int, 0, len(lexical.list)+len(semantic.list))

	walk := func(s side, signal func(*FusedCandidate) *Signal) {
		for pos, r := range s.list {
			c, ok := byID[r.ID]
			if !ok {
				c = &FusedCandidate{ID: r.ID, Document: r.Document}
				byID[r.ID] = c
				order = append(order, r.ID)
			}
			sig := signal(c)
			if sig.Present() {
				continue
			}
			contribution := s.contribute(pos)
			*sig = Signal{Rank: pos + 1, Score: r.Score, Contribution: contribution}
			if s.normalized != nil {
				sig.Normalized = s.normalized[pos]
			}
			c.Score += contribution
		}
	}
	walk(lexical, func(c *FusedCandidate) *Signal { return &c.Lexical })
	walk(semantic, func(c *FusedCandidate) *Signal { return &c.Semantic })

	out := make([]FusedCandidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WeightedFusion blends min-max normalized scores:
//
//	fused = Alpha*lexical + (1-Alpha)*semantic
//
// A document missing from one list scores zero on that side.
type WeightedFusion struct {
	Alpha float64
}

var _ Fuser = (*WeightedFusion)(nil)

// NewWeightedFusion returns a weighted fusion, rejecting alpha outside [0,1].
func NewWeightedFusion(alpha float64) (*WeightedFusion, error) {
	if alpha < 0 || alpha > 1 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidFusion,
			fmt.Sprintf("alpha must be within [0,1], got %g", alpha), nil).
			WithSuggestion("Use 1.0 for pure keyword ranking and 0.0 for pure semantic ranking")
	}
	return &WeightedFusion{Alpha: alpha}, nil
}

// Name implements Fuser.
func (f *WeightedFusion) Name() string { return ModeWeighted }

// Fuse implements Fuser.
func (f *WeightedFusion) Fuse(lexical, semantic []Ranked, limit int) []FusedCandidate {
	lexNorm := Normalize(scoresOf(lexical))
	semNorm := Normalize(scoresOf(semantic))
	return merge(
		side{list: lexical, normalized: lexNorm, contribute: func(pos int) float64 {
			return f.Alpha * lexNorm[pos]
		}},
		side{list: semantic, normalized: semNorm, contribute: func(pos int) float64 {
			return (1 - f.Alpha) * semNorm[pos]
		}},
		limit,
	)
}

// RRFFusion combines rankings with Reciprocal Rank Fusion.
//
// Algorithm: RRF_score(d) = Σ 1 / (k + rank_i)
//
// Where:
//   - k = smoothing constant (default: 60)
//   - rank_i = position in ranked list i (1-indexed)
//
// A document in only one list gets exactly one term.
type RRFFusion struct {
	K int // RRF smoothing constant (default: 60)
}

var _ Fuser = (*RRFFusion)(nil)

// NewRRFFusion creates a new RRF fusion instance with default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a new RRF fusion with custom k value.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Name implements Fuser.
func (f *RRFFusion) Name() string { return ModeRRF }

// Fuse implements Fuser.
func (f *RRFFusion) Fuse(lexical, semantic []Ranked, limit int) []FusedCandidate {
	return merge(
		side{list: lexical, contribute: f.reciprocal},
		side{list: semantic, contribute: f.reciprocal},
		limit,
	)
}

func (f *RRFFusion) reciprocal(pos int) float64 {
	k := f.K
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return 1.0 / float64(k+pos+1)
}
