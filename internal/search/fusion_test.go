package search

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// =============================================================================
// Reciprocal Rank Fusion
// =============================================================================

func TestRRFFusion_ScoreIsSumOfReciprocalRanks(t *testing.T) {
	// Given: doc 2 at rank 2 lexically and rank 1 semantically, doc 1 lexical only
	f := NewRRFFusion()
	lexical := ranked([]int{1, 2}, []float64{9, 4})
	semantic := ranked([]int{2, 3}, []float64{0.9, 0.5})

	// When: fusing
	got := f.Fuse(lexical, semantic, 0)

	// Then: each document accumulates 1/(k+rank) once per list
	require.Len(t, got, 3)
	byID := map[int]FusedCandidate{}
	for _, c := range got {
		byID[c.ID] = c
	}
	assert.InDelta(t, 1.0/62+1.0/61, byID[2].Score, 1e-12)
	assert.InDelta(t, 1.0/61, byID[1].Score, 1e-12)
	assert.InDelta(t, 1.0/62, byID[3].Score, 1e-12)

	assert.True(t, byID[2].InBoth())
	assert.Equal(t, 2, byID[2].Lexical.Rank)
	assert.Equal(t, 1, byID[2].Semantic.Rank)
	assert.Equal(t, 0, byID[3].Lexical.Rank)
	assert.False(t, byID[3].Lexical.Present())
	assert.Equal(t, []int{2, 1, 3}, idsOf(got))
}

func TestRRFFusion_TieBreaksByAscendingID(t *testing.T) {
	// Given: two documents each at rank 1 of one list
	f := NewRRFFusionWithK(60)

	got := f.Fuse(ranked([]int{7}, nil), ranked([]int{3}, nil), 0)

	// Then: equal scores order by id
	assert.Equal(t, []int{3, 7}, idsOf(got))
}

func TestNewRRFFusionWithK(t *testing.T) {
	tests := []struct {
		name string
		k    int
		want int
	}{
		{"custom", 10, 10},
		{"zero defaults", 0, DefaultRRFConstant},
		{"negative defaults", -5, DefaultRRFConstant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRRFFusionWithK(tt.k).K)
		})
	}
}

func TestRRFFusion_LowerKAmplifiesTopRanks(t *testing.T) {
	lexical := ranked([]int{1, 2}, nil)

	low := NewRRFFusionWithK(1).Fuse(lexical, nil, 0)
	high := NewRRFFusionWithK(1000).Fuse(lexical, nil, 0)

	lowGap := low[0].Score - low[1].Score
	highGap := high[0].Score - high[1].Score
	assert.Greater(t, lowGap, highGap)
}

// =============================================================================
// Weighted fusion
// =============================================================================

func TestNewWeightedFusion_RejectsAlphaOutOfRange(t *testing.T) {
	for _, alpha := range []float64{-0.1, 1.01} {
		_, err := NewWeightedFusion(alpha)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidFusion, apperrors.GetCode(err))
	}

	for _, alpha := range []float64{0, 0.5, 1} {
		f, err := NewWeightedFusion(alpha)
		require.NoError(t, err)
		assert.Equal(t, alpha, f.Alpha)
	}
}

func TestWeightedFusion_MissingSideCountsAsZero(t *testing.T) {
	// Given: doc 3 appears only semantically, doc 1 only lexically
	f, err := NewWeightedFusion(0.5)
	require.NoError(t, err)
	lexical := ranked([]int{1, 2}, []float64{10, 5})
	semantic := ranked([]int{2, 3}, []float64{0.2, 0.8})

	// When: fusing
	got := f.Fuse(lexical, semantic, 0)

	// Then: one-sided documents still get a fused score from their own side
	byID := map[int]FusedCandidate{}
	for _, c := range got {
		byID[c.ID] = c
	}
	require.Len(t, byID, 3)
	assert.InDelta(t, 0.5, byID[1].Score, 1e-12) // lexical max, no semantic
	assert.InDelta(t, 0.0, byID[2].Score, 1e-12) // lexical min and semantic min
	assert.InDelta(t, 0.5, byID[3].Score, 1e-12) // semantic max, no lexical
	assert.InDelta(t, 1.0, byID[1].Lexical.Normalized, 1e-12)
	assert.InDelta(t, 1.0, byID[3].Semantic.Normalized, 1e-12)
	assert.False(t, byID[3].Lexical.Present())
}

func TestWeightedFusion_AlphaExtremes(t *testing.T) {
	lexical := ranked([]int{1, 2, 3}, []float64{3, 2, 1})
	semantic := ranked([]int{3, 2, 1}, []float64{0.9, 0.5, 0.1})

	t.Run("alpha one follows lexical order", func(t *testing.T) {
		f, err := NewWeightedFusion(1)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, idsOf(f.Fuse(lexical, semantic, 0)))
	})

	t.Run("alpha zero follows semantic order", func(t *testing.T) {
		f, err := NewWeightedFusion(0)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 2, 1}, idsOf(f.Fuse(lexical, semantic, 0)))
	})
}

func TestWeightedFusion_EqualScoresNormalizeToOne(t *testing.T) {
	f, err := NewWeightedFusion(1)
	require.NoError(t, err)

	got := f.Fuse(ranked([]int{4, 2}, []float64{0.3, 0.3}), nil, 0)

	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Score)
	assert.Equal(t, 1.0, got[1].Score)
	assert.Equal(t, []int{2, 4}, idsOf(got))
}

// =============================================================================
// Properties shared by both strategies
// =============================================================================

func TestFusion_NoDuplicatesAndWithinLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	weighted, err := NewWeightedFusion(0.3)
	require.NoError(t, err)
	fusers := []Fuser{NewRRFFusion(), weighted}

	for round := 0; round < 50; round++ {
		lexical := randomRanking(rng, 30)
		semantic := randomRanking(rng, 30)
		limit := rng.Intn(25) + 1

		for _, f := range fusers {
			got := f.Fuse(lexical, semantic, limit)

			assert.LessOrEqual(t, len(got), limit, f.Name())
			seen := map[int]bool{}
			for _, c := range got {
				assert.False(t, seen[c.ID], "%s returned duplicate id %d", f.Name(), c.ID)
				seen[c.ID] = true
			}
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score, f.Name())
			}
		}
	}
}

func TestFusion_RepeatedIDInOneListCountsOnce(t *testing.T) {
	f := NewRRFFusion()

	got := f.Fuse(ranked([]int{1, 1}, nil), nil, 0)

	require.Len(t, got, 1)
	assert.InDelta(t, 1.0/61, got[0].Score, 1e-12)
}

func TestFusion_EmptyInputs(t *testing.T) {
	weighted, err := NewWeightedFusion(0.5)
	require.NoError(t, err)

	for _, f := range []Fuser{NewRRFFusion(), weighted} {
		got := f.Fuse(nil, nil, 5)
		assert.NotNil(t, got, f.Name())
		assert.Empty(t, got, f.Name())
	}
}

func TestFusion_SidesAreSymmetric(t *testing.T) {
	// Given: two rankings fused in both orders
	rng := rand.New(rand.NewSource(3))
	a := randomRanking(rng, 20)
	b := randomRanking(rng, 20)

	t.Run("rrf", func(t *testing.T) {
		f := NewRRFFusion()
		ab := f.Fuse(a, b, 0)
		ba := f.Fuse(b, a, 0)

		// Then: swapping sides swaps signals and leaves scores unchanged
		assertSwapped(t, ab, ba)
	})

	t.Run("weighted", func(t *testing.T) {
		f1, err := NewWeightedFusion(0.3)
		require.NoError(t, err)
		f2, err := NewWeightedFusion(0.7)
		require.NoError(t, err)

		assertSwapped(t, f1.Fuse(a, b, 0), f2.Fuse(b, a, 0))
	})
}

func assertSwapped(t *testing.T, ab, ba []FusedCandidate) {
	t.Helper()
	require.Len(t, ba, len(ab))
	byID := map[int]FusedCandidate{}
	for _, c := range ba {
		byID[c.ID] = c
	}
	for _, c := range ab {
		other, ok := byID[c.ID]
		require.True(t, ok, "id %d missing after swap", c.ID)
		assert.InDelta(t, c.Score, other.Score, 1e-12)
		assert.Equal(t, c.Lexical.Rank, other.Semantic.Rank)
		assert.Equal(t, c.Semantic.Rank, other.Lexical.Rank)
	}
}

func randomRanking(rng *rand.Rand, n int) []Ranked {
	ids := rng.Perm(n * 2)[:n]
	scores := make([]float64, n)
	s := 100.0
	for i := range scores {
		s -= rng.Float64() * 5
		scores[i] = s
	}
	return ranked(ids, scores)
}
