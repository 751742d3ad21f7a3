// Package telemetry records query metrics: Prometheus collectors for scraping
// and an in-memory summary of recent query patterns. Nothing leaves the
// process unless /metrics is served.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // Next write position
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// =============================================================================
// Query Stats
// =============================================================================

// ExtractTerms extracts the terms worth counting from a query: lowercased
// words of at least three bytes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// StatsSnapshot is an immutable copy of the query stats.
type StatsSnapshot struct {
	ModeCounts          map[string]int64        `json:"mode_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ErrorCount          int64                   `json:"error_count"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *StatsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// StatsConfig bounds the in-memory stats.
type StatsConfig struct {
	TopTermsCapacity      int // Max terms to track (default: 100)
	ZeroResultsCapacity   int // Max zero-result queries kept (default: 100)
	RecentQueriesCapacity int // Max query hashes kept for repeat detection (default: 500)
}

// QueryStats aggregates recent query patterns in memory.
// Thread-safe for concurrent access.
type QueryStats struct {
	mu sync.Mutex

	modes            map[string]int64
	topTerms         *lru.Cache[string, int64]
	zeroResults      *CircularBuffer[string]
	latencies        map[LatencyBucket]int64
	recentQueries    *lru.Cache[string, struct{}]
	totalQueries     int64
	errorCount       int64
	zeroResultCount  int64
	exactRepeatCount int64
	startTime        time.Time
}

// NewQueryStats creates an empty stats aggregate.
func NewQueryStats(cfg StatsConfig) *QueryStats {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	// lru.New only fails on a non-positive size.
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryStats{
		modes:         make(map[string]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recent,
		startTime:     time.Now(),
	}
}

// Record adds one query. Failed queries count toward totals and errors only.
func (s *QueryStats) Record(mode, query string, latency time.Duration, results int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.modes[mode]++
	s.totalQueries++
	s.latencies[LatencyToBucket(latency)]++
	if failed {
		s.errorCount++
		return
	}

	for _, term := range ExtractTerms(query) {
		count, _ := s.topTerms.Get(term)
		s.topTerms.Add(term, count+1)
	}

	if results == 0 {
		s.zeroResults.Add(query)
		s.zeroResultCount++
	}

	h := hashQuery(query)
	if _, seen := s.recentQueries.Get(h); seen {
		s.exactRepeatCount++
	}
	s.recentQueries.Add(h, struct{}{})
}

// hashQuery creates a normalized hash of the query for repetition detection.
func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:16])
}

// Snapshot returns a copy of the current stats. Top terms are ordered by
// count, then term.
func (s *QueryStats) Snapshot() *StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	modes := make(map[string]int64, len(s.modes))
	for k, v := range s.modes {
		modes[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(s.latencies))
	for k, v := range s.latencies {
		latencies[k] = v
	}

	terms := make([]TermCount, 0, s.topTerms.Len())
	for _, key := range s.topTerms.Keys() {
		if count, ok := s.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	return &StatsSnapshot{
		ModeCounts:          modes,
		TopTerms:            terms,
		ZeroResultQueries:   s.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        s.totalQueries,
		ErrorCount:          s.errorCount,
		ZeroResultCount:     s.zeroResultCount,
		ExactRepeatCount:    s.exactRepeatCount,
		Since:               s.startTime,
	}
}
