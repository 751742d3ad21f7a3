package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/hybridsearch/configs"
)

// isolate points the user config at an empty temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix) {
			key, _, _ := strings.Cut(kv, "=")
			t.Setenv(key, "")
		}
	}
	return t.TempDir()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: the search defaults match the retrieval constants
	require.NotNil(t, cfg)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 500, cfg.Search.Oversample)
	assert.Equal(t, 0.5, cfg.Search.Alpha)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.Equal(t, 1.5, cfg.Search.K1)
	assert.Equal(t, 0.75, cfg.Search.B)
	assert.Equal(t, 5, cfg.Search.RerankMultiplier)

	assert.Equal(t, 4, cfg.Chunking.Size)
	assert.Equal(t, 1, cfg.Chunking.Overlap)
	assert.Equal(t, 200, cfg.Chunking.WordChunkSize)

	assert.Equal(t, BackendFile, cfg.Cache.Backend)
	assert.Equal(t, ProviderStatic, cfg.Embeddings.Provider)
	assert.Equal(t, ProviderNone, cfg.Generation.Provider)
	assert.False(t, cfg.GenerationEnabled())
	assert.Equal(t, "info", cfg.Server.LogLevel)

	assert.NoError(t, cfg.Validate())
}

func TestConfig_CorpusName(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "movies", cfg.CorpusName())

	cfg.Data.Movies = "/tmp/sets/films_2024.json"
	assert.Equal(t, "films_2024", cfg.CorpusName())
}

// =============================================================================
// Load precedence
// =============================================================================

func TestLoad_NoFiles_UsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config touching overlapping keys
	dir := isolate(t)
	writeFile(t, GetUserConfigPath(), `
search:
  alpha: 0.3
  rrf_k: 30
cache:
  backend: sqlite
`)
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
search:
  alpha: 0.8
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: project wins where both set, user wins over defaults elsewhere
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Search.Alpha)
	assert.Equal(t, 30, cfg.Search.RRFK)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, 500, cfg.Search.Oversample, "untouched keys keep defaults")
}

func TestLoad_ExplicitZeroAlphaIsHonoured(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ProjectConfigName), "search:\n  alpha: 0\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Search.Alpha)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	// Given: a project config and environment overrides
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
search:
  alpha: 0.8
  default_limit: 7
embeddings:
  host: http://file-host:11434
`)
	t.Setenv("HYBRIDSEARCH_ALPHA", "0.2")
	t.Setenv("HYBRIDSEARCH_LIMIT", "12")
	t.Setenv("HYBRIDSEARCH_OLLAMA_HOST", "http://env-host:11434")
	t.Setenv("HYBRIDSEARCH_LOG_LEVEL", "debug")

	// When: loading
	cfg, err := Load(dir)

	// Then: environment wins
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Search.Alpha)
	assert.Equal(t, 12, cfg.Search.DefaultLimit)
	assert.Equal(t, "http://env-host:11434", cfg.Embeddings.Host)
	assert.Equal(t, "http://env-host:11434", cfg.Generation.Host, "ollama host applies to generation")
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_MalformedEnvIsError(t *testing.T) {
	dir := isolate(t)
	t.Setenv("HYBRIDSEARCH_RRF_K", "sixty")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HYBRIDSEARCH_RRF_K")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax error", "search: [unclosed"},
		{"unknown key", "search:\n  alpah: 0.4\n"},
		{"wrong type", "search:\n  rrf_k: sixty\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeFile(t, filepath.Join(dir, ProjectConfigName), tt.content)

			_, err := Load(dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), ProjectConfigName)
		})
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ProjectConfigName), "search:\n  alpha: 1.5\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.alpha")
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "reranker:\n  endpoint: http://localhost:9659\n  timeout: 5s\n")

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9659", cfg.Reranker.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Reranker.Timeout)
}

func TestLoadFile_Missing(t *testing.T) {
	isolate(t)
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"alpha below zero", func(c *Config) { c.Search.Alpha = -0.1 }, "search.alpha"},
		{"alpha above one", func(c *Config) { c.Search.Alpha = 1.01 }, "search.alpha"},
		{"alpha zero ok", func(c *Config) { c.Search.Alpha = 0 }, ""},
		{"alpha one ok", func(c *Config) { c.Search.Alpha = 1 }, ""},
		{"zero limit", func(c *Config) { c.Search.DefaultLimit = 0 }, "default_limit"},
		{"zero oversample", func(c *Config) { c.Search.Oversample = 0 }, "oversample"},
		{"zero rrf k", func(c *Config) { c.Search.RRFK = 0 }, "rrf_k"},
		{"zero rerank multiplier", func(c *Config) { c.Search.RerankMultiplier = 0 }, "rerank_multiplier"},
		{"negative k1", func(c *Config) { c.Search.K1 = -1 }, "bm25_k1"},
		{"b above one", func(c *Config) { c.Search.B = 1.2 }, "bm25_b"},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }, "chunking.size"},
		{"overlap equals size", func(c *Config) { c.Chunking.Overlap = 4 }, "chunking.overlap"},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, "chunking.overlap"},
		{"zero word chunk size", func(c *Config) { c.Chunking.WordChunkSize = 0 }, "word_chunk_size"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"unknown embedder", func(c *Config) { c.Embeddings.Provider = "mlx" }, "embeddings.provider"},
		{"unknown generator", func(c *Config) { c.Generation.Provider = "gemini" }, "generation.provider"},
		{"negative retries", func(c *Config) { c.Generation.Retries = -1 }, "retries"},
		{"failure ratio above one", func(c *Config) { c.Generation.Breaker.FailureRatio = 2 }, "failure_ratio"},
		{"unknown log level", func(c *Config) { c.Server.LogLevel = "trace" }, "log_level"},
		{"uppercase provider ok", func(c *Config) { c.Embeddings.Provider = "Ollama" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// =============================================================================
// Rendering
// =============================================================================

func TestWriteYAML_RoundTrips(t *testing.T) {
	// Given: a config with non-default values
	cfg := NewConfig()
	cfg.Search.Alpha = 0.25
	cfg.Generation.Provider = ProviderOllama
	cfg.Generation.Breaker.OpenTimeout = 45 * time.Second

	// When: rendering and reading back onto defaults
	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))
	back := NewConfig()
	require.NoError(t, back.Merge(&buf))

	// Then: the values survive
	assert.Equal(t, cfg, back)
}

func TestWriteYAML_DurationsAsStrings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConfig().WriteYAML(&buf))

	assert.Contains(t, buf.String(), "open_timeout: 30s")
	assert.Contains(t, buf.String(), "rrf_k: 60")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, NewConfig().WriteFile(path))

	cfg := NewConfig()
	require.NoError(t, cfg.loadYAML(path))
	assert.Equal(t, NewConfig(), cfg)
}

func TestMerge_ErrorLeavesConfigUnchanged(t *testing.T) {
	cfg := NewConfig()
	err := cfg.Merge(strings.NewReader("search:\n  alpha: 0.1\n  bogus: 1\n"))

	require.Error(t, err)
	assert.Equal(t, 0.5, cfg.Search.Alpha)
}

func TestConfigTemplate_MatchesDefaults(t *testing.T) {
	// Given: the embedded template
	cfg := NewConfig()

	// When: overlaying it on defaults
	require.NoError(t, cfg.Merge(strings.NewReader(configs.ConfigTemplate)))

	// Then: it documents the defaults and validates
	assert.Equal(t, NewConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}
