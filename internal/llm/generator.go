// Package llm adapts a text generation provider to query enhancement,
// LLM reranking and retrieval-augmented answers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// Generation defaults
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
	DefaultTimeout     = 120 * time.Second
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// OllamaConfig configures the Ollama generator.
type OllamaConfig struct {
	// Host is the Ollama API endpoint (default: http://localhost:11434)
	Host string

	// Model is the generation model (default: llama3.2)
	Model string

	// Timeout for one request (default: 120s)
	Timeout time.Duration
}

// OllamaGenerator calls Ollama's non-streaming /api/generate endpoint. It makes
// a single attempt per call; wrap it in a BreakerGenerator for retries.
type OllamaGenerator struct {
	client *http.Client
	config OllamaConfig
}

var _ Generator = (*OllamaGenerator)(nil)

// NewOllamaGenerator creates an Ollama generator. No request is made until
// the first Generate call.
func NewOllamaGenerator(cfg OllamaConfig) *OllamaGenerator {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OllamaGenerator{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate implements Generator.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	body, err := json.Marshal(generateRequest{Model: g.config.Model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", apperrors.NetworkError("ollama generate request failed", err).
			WithDetail("host", g.config.Host)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		text := fmt.Sprintf("ollama generate failed with status %d: %s", resp.StatusCode, string(msg))
		if resp.StatusCode >= 500 {
			return "", apperrors.NetworkError(text, nil)
		}
		return "", apperrors.New(apperrors.ErrCodeProviderRejected, text, nil).
			WithSuggestion(fmt.Sprintf("Check that model %q is pulled: ollama pull %s", g.config.Model, g.config.Model))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.New(apperrors.ErrCodeGenerateFailed, "failed to decode ollama response", err)
	}

	slog.Debug("generation_complete",
		slog.String("model", g.config.Model),
		slog.Int("prompt_chars", len(prompt)),
		slog.Int("response_chars", len(result.Response)),
		slog.Duration("duration", time.Since(start)))

	return strings.TrimSpace(result.Response), nil
}

// Model returns the configured model name.
func (g *OllamaGenerator) Model() string { return g.config.Model }
