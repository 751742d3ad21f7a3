package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HYBRIDSEARCH_"

// ProjectConfigName is the per-directory config file.
const ProjectConfigName = ".hybridsearch.yaml"

// Config represents the complete hybridsearch configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Data       DataConfig       `yaml:"data" json:"data"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Reranker   RerankerConfig   `yaml:"reranker" json:"reranker"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// DataConfig locates the input datasets.
type DataConfig struct {
	Movies    string `yaml:"movies" json:"movies"`
	Golden    string `yaml:"golden" json:"golden"`
	Stopwords string `yaml:"stopwords" json:"stopwords"`
}

// CacheConfig configures where index artifacts are persisted.
type CacheConfig struct {
	Dir string `yaml:"dir" json:"dir"`

	// Backend is "file" (one gob per artifact) or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
}

// SearchConfig configures retrieval and fusion.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// Oversample multiplies the limit when fetching each side before fusion.
	Oversample int `yaml:"oversample" json:"oversample"`

	// Alpha weights the lexical side in weighted fusion (0.0-1.0).
	Alpha float64 `yaml:"alpha" json:"alpha"`

	// RRFK is the Reciprocal Rank Fusion smoothing constant.
	RRFK int `yaml:"rrf_k" json:"rrf_k"`

	K1 float64 `yaml:"bm25_k1" json:"bm25_k1"`
	B  float64 `yaml:"bm25_b" json:"bm25_b"`

	// RerankMultiplier enlarges the candidate list handed to a reranker.
	RerankMultiplier int `yaml:"rerank_multiplier" json:"rerank_multiplier"`
}

// ChunkingConfig configures the chunked semantic index and the chunk commands.
type ChunkingConfig struct {
	Size          int `yaml:"size" json:"size"`
	Overlap       int `yaml:"overlap" json:"overlap"`
	WordChunkSize int `yaml:"word_chunk_size" json:"word_chunk_size"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string        `yaml:"provider" json:"provider"`
	Model      string        `yaml:"model" json:"model"`
	Host       string        `yaml:"host" json:"host"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	BatchSize  int           `yaml:"batch_size" json:"batch_size"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// GenerationConfig configures the text generation provider used for query
// enhancement, LLM reranking and RAG.
type GenerationConfig struct {
	Provider string        `yaml:"provider" json:"provider"`
	Model    string        `yaml:"model" json:"model"`
	Host     string        `yaml:"host" json:"host"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	Retries  int           `yaml:"retries" json:"retries"`
	Breaker  BreakerConfig `yaml:"breaker" json:"breaker"`
}

// BreakerConfig configures the circuit breaker around generation calls.
type BreakerConfig struct {
	MinRequests  uint32        `yaml:"min_requests" json:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio" json:"failure_ratio"`
	OpenTimeout  time.Duration `yaml:"open_timeout" json:"open_timeout"`
}

// RerankerConfig configures the cross-encoder rerank endpoint. An empty
// endpoint disables the cross_encoder method.
type RerankerConfig struct {
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Model    string        `yaml:"model" json:"model"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// ServerConfig configures logging and the serve command.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MetricsAddr serves /metrics when non-empty, e.g. "127.0.0.1:9464".
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Provider and backend names accepted by Validate.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"

	ProviderStatic = "static"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Data: DataConfig{
			Movies:    filepath.Join("data", "movies.json"),
			Golden:    filepath.Join("data", "golden_dataset.json"),
			Stopwords: filepath.Join("data", "stopwords.txt"),
		},
		Cache: CacheConfig{
			Dir:     "cache",
			Backend: BackendFile,
		},
		Search: SearchConfig{
			DefaultLimit:     5,
			Oversample:       500,
			Alpha:            0.5,
			RRFK:             60,
			K1:               1.5,
			B:                0.75,
			RerankMultiplier: 5,
		},
		Chunking: ChunkingConfig{
			Size:          4,
			Overlap:       1,
			WordChunkSize: 200,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   ProviderStatic,
			Model:      "nomic-embed-text",
			Host:       "", // Empty uses http://localhost:11434
			Dimensions: 384,
			BatchSize:  32,
			CacheSize:  1000,
			Timeout:    60 * time.Second,
		},
		Generation: GenerationConfig{
			Provider: ProviderNone,
			Model:    "llama3.2",
			Host:     "",
			Timeout:  120 * time.Second,
			Retries:  3,
			Breaker: BreakerConfig{
				MinRequests:  5,
				FailureRatio: 0.6,
				OpenTimeout:  30 * time.Second,
			},
		},
		Reranker: RerankerConfig{
			Endpoint: "",
			Model:    "cross-encoder/ms-marco-TinyBERT-L2-v2",
			Timeout:  30 * time.Second,
		},
		Server: ServerConfig{
			LogLevel:    "info",
			MetricsAddr: "",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/hybridsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/hybridsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hybridsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "hybridsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "hybridsearch", "config.yaml")
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/hybridsearch/config.yaml)
//  3. Project config (.hybridsearch.yaml in dir)
//  4. Environment variables (HYBRIDSEARCH_*)
//
// CLI flags are applied by the caller on top of the result.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := filepath.Join(dir, ProjectConfigName); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid by one explicit config file and the
// environment. Used by the --config flag.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML overlays a YAML file onto c. Keys absent from the file keep their
// current values, so an explicit zero (alpha: 0) is honoured.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := c.Merge(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Merge overlays YAML from r onto c. Unknown keys are rejected. On error c is
// left unchanged.
func (c *Config) Merge(r io.Reader) error {
	next := *c
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&next); err != nil && err != io.EOF {
		return err
	}
	*c = next
	return nil
}

// applyEnvOverrides applies HYBRIDSEARCH_* environment variable overrides.
// A malformed numeric value is an error rather than being silently ignored.
func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"MOVIES":              &c.Data.Movies,
		"GOLDEN":              &c.Data.Golden,
		"STOPWORDS":           &c.Data.Stopwords,
		"CACHE_DIR":           &c.Cache.Dir,
		"CACHE_BACKEND":       &c.Cache.Backend,
		"EMBEDDINGS_PROVIDER": &c.Embeddings.Provider,
		"EMBEDDINGS_MODEL":    &c.Embeddings.Model,
		"OLLAMA_HOST":         &c.Embeddings.Host,
		"GENERATION_PROVIDER": &c.Generation.Provider,
		"GENERATION_MODEL":    &c.Generation.Model,
		"GENERATION_HOST":     &c.Generation.Host,
		"RERANKER_ENDPOINT":   &c.Reranker.Endpoint,
		"LOG_LEVEL":           &c.Server.LogLevel,
		"METRICS_ADDR":        &c.Server.MetricsAddr,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	// OLLAMA_HOST applies to generation too unless it has its own host.
	if v := os.Getenv(EnvPrefix + "OLLAMA_HOST"); v != "" && os.Getenv(EnvPrefix+"GENERATION_HOST") == "" {
		c.Generation.Host = v
	}

	ints := map[string]*int{
		"LIMIT":      &c.Search.DefaultLimit,
		"OVERSAMPLE": &c.Search.Oversample,
		"RRF_K":      &c.Search.RRFK,
	}
	for key, dst := range ints {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v := os.Getenv(EnvPrefix + "ALPHA"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%sALPHA: %w", EnvPrefix, err)
		}
		c.Search.Alpha = f
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	s := c.Search
	if s.Alpha < 0 || s.Alpha > 1 {
		return fmt.Errorf("search.alpha must be between 0 and 1, got %g", s.Alpha)
	}
	if s.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", s.DefaultLimit)
	}
	if s.Oversample <= 0 {
		return fmt.Errorf("search.oversample must be positive, got %d", s.Oversample)
	}
	if s.RRFK <= 0 {
		return fmt.Errorf("search.rrf_k must be positive, got %d", s.RRFK)
	}
	if s.RerankMultiplier <= 0 {
		return fmt.Errorf("search.rerank_multiplier must be positive, got %d", s.RerankMultiplier)
	}
	if s.K1 < 0 {
		return fmt.Errorf("search.bm25_k1 must be non-negative, got %g", s.K1)
	}
	if s.B < 0 || s.B > 1 {
		return fmt.Errorf("search.bm25_b must be between 0 and 1, got %g", s.B)
	}

	ch := c.Chunking
	if ch.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", ch.Size)
	}
	if ch.Overlap < 0 || ch.Overlap >= ch.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", ch.Size, ch.Overlap)
	}
	if ch.WordChunkSize <= 0 {
		return fmt.Errorf("chunking.word_chunk_size must be positive, got %d", ch.WordChunkSize)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("cache.backend must be 'file' or 'sqlite', got %s", c.Cache.Backend)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case ProviderStatic, ProviderOllama:
	default:
		return fmt.Errorf("embeddings.provider must be 'static' or 'ollama', got %s", c.Embeddings.Provider)
	}

	switch strings.ToLower(c.Generation.Provider) {
	case ProviderNone, ProviderOllama:
	default:
		return fmt.Errorf("generation.provider must be 'none' or 'ollama', got %s", c.Generation.Provider)
	}
	if c.Generation.Retries < 0 {
		return fmt.Errorf("generation.retries must be non-negative, got %d", c.Generation.Retries)
	}
	if r := c.Generation.Breaker.FailureRatio; r < 0 || r > 1 {
		return fmt.Errorf("generation.breaker.failure_ratio must be between 0 and 1, got %g", r)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// GenerationEnabled reports whether a generation provider is configured.
func (c *Config) GenerationEnabled() bool {
	return strings.ToLower(c.Generation.Provider) != ProviderNone
}

// CorpusName derives the cache namespace from the movies dataset file name.
func (c *Config) CorpusName() string {
	base := filepath.Base(c.Data.Movies)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteYAML renders the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the configuration to a YAML file.
func (c *Config) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := c.WriteYAML(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
