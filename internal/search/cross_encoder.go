package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// Cross-encoder client defaults
const (
	DefaultCrossEncoderEndpoint = "http://localhost:9659"
	DefaultCrossEncoderModel    = "cross-encoder/ms-marco-TinyBERT-L2-v2"
	DefaultCrossEncoderTimeout  = 30 * time.Second
)

// HTTPCrossEncoderConfig holds configuration for the cross-encoder client.
type HTTPCrossEncoderConfig struct {
	// Endpoint is the rerank server URL (default: http://localhost:9659)
	Endpoint string

	// Model is sent with each request (default: cross-encoder/ms-marco-TinyBERT-L2-v2)
	Model string

	// Timeout is the per-request timeout (default: 30s)
	Timeout time.Duration
}

// HTTPCrossEncoder is a PairScorer backed by a /rerank HTTP endpoint.
type HTTPCrossEncoder struct {
	client *http.Client
	config HTTPCrossEncoderConfig
	mu     sync.RWMutex
	closed bool
}

var _ PairScorer = (*HTTPCrossEncoder)(nil)

// NewHTTPCrossEncoder creates a cross-encoder client. No request is made until
// the first ScorePairs call.
func NewHTTPCrossEncoder(cfg HTTPCrossEncoderConfig) *HTTPCrossEncoder {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultCrossEncoderEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCrossEncoderModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultCrossEncoderTimeout
	}
	return &HTTPCrossEncoder{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		config: cfg,
	}
}

// rerankRequest is the JSON request to the /rerank endpoint
type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

// rerankResponse is the JSON response from the /rerank endpoint
type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// ScorePairs implements PairScorer. Scores are returned in input order
// whatever order the server answers in.
func (c *HTTPCrossEncoder) ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("cross-encoder is closed")
	}
	if len(texts) == 0 {
		return []float64{}, nil
	}

	start := time.Now()
	body, err := json.Marshal(rerankRequest{Query: query, Documents: texts, Model: c.config.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.config.Endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NetworkError("rerank request failed", err).
			WithDetail("endpoint", c.config.Endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, apperrors.New(apperrors.ErrCodeProviderRejected,
			fmt.Sprintf("rerank failed (status %d): %s", resp.StatusCode, string(msg)), nil)
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, r := range result.Results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, apperrors.New(apperrors.ErrCodeRerankFailed,
				fmt.Sprintf("rerank response index %d out of range", r.Index), nil)
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeRerankFailed,
				fmt.Sprintf("rerank response missing score for document %d", i), nil)
		}
	}

	slog.Debug("cross_encoder_scored",
		slog.Int("doc_count", len(texts)),
		slog.Duration("total", time.Since(start)),
		slog.Float64("server_time_ms", result.ProcessingTimeMs))

	return scores, nil
}

// Close releases idle connections.
func (c *HTTPCrossEncoder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if transport, ok := c.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}
