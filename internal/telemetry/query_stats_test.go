package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{0, BucketP10},
		{9 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{49 * time.Millisecond, BucketP50},
		{50 * time.Millisecond, BucketP100},
		{100 * time.Millisecond, BucketP500},
		{499 * time.Millisecond, BucketP500},
		{500 * time.Millisecond, BucketP1000},
		{3 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LatencyToBucket(tt.latency))
		})
	}
}

func TestCircularBuffer_FIFOAndEviction(t *testing.T) {
	// Given: a buffer of capacity 3
	b := NewCircularBuffer[int](3)

	// When: adding two items
	b.Add(1)
	b.Add(2)

	// Then: items come back in insertion order
	assert.Equal(t, []int{1, 2}, b.Items())
	assert.Equal(t, 2, b.Size())

	// When: overflowing the buffer
	b.Add(3)
	b.Add(4)
	b.Add(5)

	// Then: the oldest items are evicted
	assert.Equal(t, []int{3, 4, 5}, b.Items())
	assert.Equal(t, 3, b.Size())
}

func TestCircularBuffer_DefaultCapacity(t *testing.T) {
	b := NewCircularBuffer[string](0)
	for i := 0; i < 150; i++ {
		b.Add(fmt.Sprint(i))
	}
	assert.Equal(t, 100, b.Size())
	assert.Equal(t, "50", b.Items()[0])
}

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"Bear Attack", []string{"bear", "attack"}},
		{"a to the moon", []string{"the", "moon"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTerms(tt.query))
		})
	}
}

func TestQueryStats_Record(t *testing.T) {
	// Given: empty stats
	s := NewQueryStats(StatsConfig{})

	// When: recording a mix of queries
	s.Record("rrf", "bear attack", 5*time.Millisecond, 5, false)
	s.Record("rrf", "Bear Attack ", 60*time.Millisecond, 5, false)
	s.Record("bm25", "unicorn lawyer", time.Millisecond, 0, false)
	s.Record("semantic", "bear", time.Second, 0, true)

	// Then: totals, repeats and zero-result queries are tracked
	snap := s.Snapshot()
	assert.Equal(t, int64(4), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ErrorCount)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, int64(1), snap.ExactRepeatCount, "case and whitespace are normalized")
	assert.Equal(t, []string{"unicorn lawyer"}, snap.ZeroResultQueries)
	assert.Equal(t, map[string]int64{"rrf": 2, "bm25": 1, "semantic": 1}, snap.ModeCounts)
	assert.Equal(t, int64(2), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP100])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP1000])
	assert.InDelta(t, 25.0, snap.ZeroResultPercentage(), 1e-9)

	require.Len(t, snap.TopTerms, 4)
	assert.Equal(t, TermCount{Term: "attack", Count: 2}, snap.TopTerms[0])
	assert.Equal(t, TermCount{Term: "bear", Count: 2}, snap.TopTerms[1])
	assert.Equal(t, TermCount{Term: "lawyer", Count: 1}, snap.TopTerms[2])
	assert.Equal(t, TermCount{Term: "unicorn", Count: 1}, snap.TopTerms[3])
}

func TestQueryStats_TopTermsBounded(t *testing.T) {
	s := NewQueryStats(StatsConfig{TopTermsCapacity: 2})

	s.Record("rrf", "alpha", 0, 1, false)
	s.Record("rrf", "beta", 0, 1, false)
	s.Record("rrf", "gamma", 0, 1, false)

	snap := s.Snapshot()
	require.Len(t, snap.TopTerms, 2)
	for _, tc := range snap.TopTerms {
		assert.NotEqual(t, "alpha", tc.Term, "least recently used term is evicted")
	}
}

func TestQueryStats_EmptySnapshot(t *testing.T) {
	snap := NewQueryStats(StatsConfig{}).Snapshot()

	assert.Zero(t, snap.TotalQueries)
	assert.Empty(t, snap.TopTerms)
	assert.Empty(t, snap.ZeroResultQueries)
	assert.Zero(t, snap.ZeroResultPercentage())
	assert.False(t, snap.Since.IsZero())
}

func TestQueryStats_ConcurrentRecord(t *testing.T) {
	s := NewQueryStats(StatsConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Record("rrf", fmt.Sprintf("query %d", i), time.Millisecond, j%2, false)
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, int64(1000), snap.TotalQueries)
	assert.Equal(t, int64(500), snap.ZeroResultCount)
	assert.Equal(t, int64(980), snap.ExactRepeatCount)
}
