package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

func candidates(ids ...int) []FusedCandidate {
	out := make([]FusedCandidate, len(ids))
	for i, id := range ids {
		out[i] = FusedCandidate{ID: id, Document: doc(id, "movie"), Score: 1 / float64(i+1)}
	}
	return out
}

func TestRerankerConstructors_RequireScorer(t *testing.T) {
	_, err := NewPointwiseReranker(nil)
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewListwiseReranker(nil)
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewCrossEncoderReranker(nil)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestPointwiseReranker(t *testing.T) {
	// Given: a scorer that prefers higher ids
	calls := 0
	r, err := NewPointwiseReranker(funcPointwise(func(c FusedCandidate) (float64, error) {
		calls++
		return float64(c.ID), nil
	}))
	require.NoError(t, err)

	// When: reranking five candidates down to three
	got, err := r.Rerank(context.Background(), "q", candidates(1, 2, 3, 4, 5), 3)

	// Then: the scorer ran once per candidate and results follow its scores
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []int{5, 4, 3}, resultIDs(got))
	assert.Equal(t, 5.0, got[0].RerankScore)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 3, got[2].Rank)
	assert.True(t, got[0].Reranked)
	assert.Equal(t, RerankPointwise, r.Name())
}

func TestPointwiseReranker_TiesKeepFusedOrder(t *testing.T) {
	r, err := NewPointwiseReranker(funcPointwise(func(FusedCandidate) (float64, error) { return 7, nil }))
	require.NoError(t, err)

	got, err := r.Rerank(context.Background(), "q", candidates(9, 4, 6), 0)

	require.NoError(t, err)
	assert.Equal(t, []int{9, 4, 6}, resultIDs(got))
}

func TestPointwiseReranker_ScorerErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("provider down")
	r, err := NewPointwiseReranker(funcPointwise(func(FusedCandidate) (float64, error) { return 0, boom }))
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "q", candidates(1), 1)

	assert.Same(t, boom, err)
}

func TestListwiseReranker(t *testing.T) {
	tests := []struct {
		name  string
		order []int
		limit int
		want  []int
	}{
		{name: "full permutation", order: []int{3, 1, 2}, limit: 5, want: []int{3, 1, 2}},
		{name: "omitted ids are dropped", order: []int{2}, limit: 5, want: []int{2}},
		{name: "unknown and repeated ids ignored", order: []int{8, 2, 2, 1}, limit: 5, want: []int{2, 1}},
		{name: "truncated to limit", order: []int{3, 2, 1}, limit: 2, want: []int{3, 2}},
		{name: "empty answer", order: nil, limit: 5, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			r, err := NewListwiseReranker(funcListwise(func(cs []FusedCandidate) ([]int, error) {
				calls++
				assert.Len(t, cs, 3)
				return tt.order, nil
			}))
			require.NoError(t, err)

			got, err := r.Rerank(context.Background(), "q", candidates(1, 2, 3), tt.limit)

			require.NoError(t, err)
			assert.Equal(t, 1, calls)
			assert.Equal(t, tt.want, resultIDs(got))
			for i, res := range got {
				assert.Equal(t, i+1, res.Rank)
			}
		})
	}
}

func TestCrossEncoderReranker(t *testing.T) {
	// Given: a pair scorer preferring "Beta"
	var seen []string
	r, err := NewCrossEncoderReranker(funcPairs(func(texts []string) ([]float64, error) {
		seen = texts
		out := make([]float64, len(texts))
		for i, text := range texts {
			if text == "Beta - Beta description" {
				out[i] = 0.99
			} else {
				out[i] = 0.1
			}
		}
		return out, nil
	}))
	require.NoError(t, err)
	cs := []FusedCandidate{
		{ID: 1, Document: doc(1, "Alpha")},
		{ID: 2, Document: doc(2, "Beta")},
	}

	// When: reranking
	got, err := r.Rerank(context.Background(), "q", cs, 1)

	// Then: all pairs went in one call and the best pair wins
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha - Alpha description", "Beta - Beta description"}, seen)
	assert.Equal(t, []int{2}, resultIDs(got))
	assert.Equal(t, 0.99, got[0].RerankScore)
}

func TestCrossEncoderReranker_ScoreCountMismatch(t *testing.T) {
	r, err := NewCrossEncoderReranker(funcPairs(func([]string) ([]float64, error) {
		return []float64{1}, nil
	}))
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "q", candidates(1, 2), 2)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRerankFailed, apperrors.GetCode(err))
}

func TestHTTPCrossEncoder_ScorePairs(t *testing.T) {
	// Given: a server answering out of order
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		var req rerankRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "space movie", req.Query)
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Documents, 2)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 1, "score": 0.8},
				{"index": 0, "score": 0.2},
			},
		})
	}))
	defer server.Close()

	c := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: server.URL, Model: "test-model"})
	defer func() { _ = c.Close() }()

	// When: scoring
	scores, err := c.ScorePairs(context.Background(), "space movie", []string{"a", "b"})

	// Then: scores come back in input order
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.8}, scores)
}

func TestHTTPCrossEncoder_Errors(t *testing.T) {
	t.Run("server rejects", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad model", http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: server.URL})
		_, err := c.ScorePairs(context.Background(), "q", []string{"a"})

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeProviderRejected, apperrors.GetCode(err))
	})

	t.Run("missing score", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":[{"index":0,"score":0.5}]}`))
		}))
		defer server.Close()

		c := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: server.URL})
		_, err := c.ScorePairs(context.Background(), "q", []string{"a", "b"})

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeRerankFailed, apperrors.GetCode(err))
	})

	t.Run("closed", func(t *testing.T) {
		c := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{})
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		_, err := c.ScorePairs(context.Background(), "q", []string{"a"})
		assert.Error(t, err)
	})

	t.Run("no texts skips the request", func(t *testing.T) {
		c := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: "http://127.0.0.1:1"})
		scores, err := c.ScorePairs(context.Background(), "q", nil)
		require.NoError(t, err)
		assert.Empty(t, scores)
	})
}
