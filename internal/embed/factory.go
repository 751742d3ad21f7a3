package embed

import (
	"fmt"
	"log/slog"
	"time"
)

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderStatic uses the offline hashing embedder (default).
	ProviderStatic ProviderType = "static"

	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"
)

// Config selects and configures an embedder.
type Config struct {
	Provider   ProviderType
	Model      string
	Host       string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration

	// CacheSize enables the LRU decorator when positive.
	CacheSize int
}

// NewEmbedder creates the configured embedder, wrapped in a CachedEmbedder
// when CacheSize is positive.
func NewEmbedder(cfg Config) (Embedder, error) {
	var embedder Embedder
	switch cfg.Provider {
	case ProviderStatic, "":
		embedder = NewStaticEmbedder(cfg.Dimensions)
	case ProviderOllama:
		embedder = NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: static, ollama)", cfg.Provider)
	}

	slog.Debug("embedder_selected",
		slog.String("provider", string(cfg.Provider)),
		slog.String("model", embedder.ModelName()),
		slog.Int("cache_size", cfg.CacheSize))

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(embedder, cfg.CacheSize), nil
	}
	return embedder, nil
}
