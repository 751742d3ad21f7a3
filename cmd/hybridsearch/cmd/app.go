package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/hybridsearch/internal/config"
	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	"github.com/Aman-CERP/hybridsearch/internal/embed"
	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/llm"
	"github.com/Aman-CERP/hybridsearch/internal/search"
	"github.com/Aman-CERP/hybridsearch/internal/store"
	"github.com/Aman-CERP/hybridsearch/internal/telemetry"
)

// app bundles the collaborators one command needs. Everything is created
// lazily so that cheap commands (tf, normalize) never touch the embedder.
type app struct {
	cfg      *config.Config
	cacheDir string

	docs      []corpus.Document
	artifacts store.ArtifactStore
	embedder  embed.Embedder
	generator llm.Generator
	metrics   *telemetry.Metrics
}

// newApp loads configuration and opens the corpus cache directory.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAppWithConfig(cfg)
}

func newAppWithConfig(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		cacheDir: store.CorpusCacheDir(cfg.Cache.Dir, cfg.CorpusName()),
	}
	if err := os.MkdirAll(a.cacheDir, 0o755); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeFilePermission,
			fmt.Sprintf("create cache directory %s", a.cacheDir), err)
	}
	artifacts, err := store.OpenArtifactStore(a.cacheDir, cfg.Cache.Backend)
	if err != nil {
		return nil, err
	}
	a.artifacts = artifacts
	return a, nil
}

// Close releases the artifact store and the embedder.
func (a *app) Close() error {
	var errs []error
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.artifacts != nil {
		errs = append(errs, a.artifacts.Close())
	}
	return errors.Join(errs...)
}

// documents loads the movie corpus once.
func (a *app) documents() ([]corpus.Document, error) {
	if a.docs != nil {
		return a.docs, nil
	}
	docs, err := corpus.LoadMovies(a.cfg.Data.Movies)
	if err != nil {
		return nil, err
	}
	a.docs = docs
	return docs, nil
}

// tokenizer builds the analysis chain. A missing stopwords file selects the
// built-in English stop list.
func (a *app) tokenizer() (store.Tokenizer, error) {
	stopwords, err := corpus.LoadStopwords(a.cfg.Data.Stopwords)
	if err != nil {
		if apperrors.GetCode(err) != apperrors.ErrCodeDatasetNotFound {
			return nil, err
		}
		slog.Debug("stopwords_default_used",
			slog.String("path", a.cfg.Data.Stopwords))
		stopwords = nil
	}
	return store.NewAnalyzerTokenizer(stopwords)
}

func (a *app) newLexical() (*store.InvertedIndex, error) {
	tok, err := a.tokenizer()
	if err != nil {
		return nil, err
	}
	return store.NewInvertedIndex(tok, store.BM25Config{K1: a.cfg.Search.K1, B: a.cfg.Search.B}, a.artifacts)
}

// loadLexical loads the cached BM25 index without building it.
func (a *app) loadLexical() (*store.InvertedIndex, error) {
	idx, err := a.newLexical()
	if err != nil {
		return nil, err
	}
	if err := idx.Load(); err != nil {
		return nil, withBuildHint(err)
	}
	return idx, nil
}

// lexicalIndex returns the BM25 index, rebuilding a missing or stale cache,
// or any cache when force is set.
func (a *app) lexicalIndex(force bool) (*store.InvertedIndex, error) {
	idx, err := a.newLexical()
	if err != nil {
		return nil, err
	}
	docs, err := a.documents()
	if err != nil {
		return nil, err
	}
	if _, err := idx.LoadOrBuild(docs, force); err != nil {
		return nil, err
	}
	return idx, nil
}

// embedderFor creates the configured embedder once.
func (a *app) embedderFor() (embed.Embedder, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}
	e, err := embed.NewEmbedder(embed.Config{
		Provider:   embed.ProviderType(a.cfg.Embeddings.Provider),
		Model:      a.cfg.Embeddings.Model,
		Host:       a.cfg.Embeddings.Host,
		Dimensions: a.cfg.Embeddings.Dimensions,
		BatchSize:  a.cfg.Embeddings.BatchSize,
		Timeout:    a.cfg.Embeddings.Timeout,
		CacheSize:  a.cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return nil, apperrors.ConfigError(err.Error(), err)
	}
	a.embedder = e
	return e, nil
}

// chunkSplitter is the sentence chunking strategy of the chunked index.
func (a *app) chunkSplitter() store.Splitter {
	return store.NewSentenceSplitter(a.cfg.Chunking.Size, a.cfg.Chunking.Overlap)
}

// vectorIndex returns a semantic index over splitter, loading its cache or
// building it when absent, stale, or when force is set.
func (a *app) vectorIndex(ctx context.Context, splitter store.Splitter, force bool) (*store.VectorIndex, bool, error) {
	e, err := a.embedderFor()
	if err != nil {
		return nil, false, err
	}
	docs, err := a.documents()
	if err != nil {
		return nil, false, err
	}
	idx, err := store.NewVectorIndex(e, splitter, a.artifacts)
	if err != nil {
		return nil, false, err
	}
	rebuilt, err := idx.LoadOrBuild(ctx, docs, force)
	if err != nil {
		return nil, false, err
	}
	return idx, rebuilt, nil
}

// generatorFor returns the breaker-wrapped generation provider, or an error
// naming the missing configuration.
func (a *app) generatorFor() (llm.Generator, error) {
	if a.generator != nil {
		return a.generator, nil
	}
	if !a.cfg.GenerationEnabled() {
		return nil, apperrors.ConfigError("generation provider is disabled", nil).
			WithSuggestion("Set generation.provider: ollama in .hybridsearch.yaml or HYBRIDSEARCH_GENERATION_PROVIDER=ollama")
	}

	inner := llm.NewOllamaGenerator(llm.OllamaConfig{
		Host:    a.cfg.Generation.Host,
		Model:   a.cfg.Generation.Model,
		Timeout: a.cfg.Generation.Timeout,
	})
	bc := llm.DefaultBreakerConfig()
	bc.Name = "generation"
	bc.Retry.MaxRetries = a.cfg.Generation.Retries
	bc.MinRequests = a.cfg.Generation.Breaker.MinRequests
	bc.FailureRatio = a.cfg.Generation.Breaker.FailureRatio
	bc.OpenTimeout = a.cfg.Generation.Breaker.OpenTimeout
	a.generator = llm.NewBreakerGenerator(inner, bc)
	return a.generator, nil
}

// engineOptions controls which optional stages engine wires in.
type engineOptions struct {
	enhance bool
	rerank  string
}

// engine builds the search engine over both indexes, adding query
// enhancement and the requested reranker.
func (a *app) engine(ctx context.Context, opts engineOptions) (*search.Engine, error) {
	var (
		lexical  *store.InvertedIndex
		semantic *store.VectorIndex
	)
	err := a.withCacheLock(func() error {
		var err error
		if lexical, err = a.lexicalIndex(false); err != nil {
			return err
		}
		semantic, _, err = a.vectorIndex(ctx, a.chunkSplitter(), false)
		return err
	})
	if err != nil {
		return nil, err
	}

	engineOpts := []search.EngineOption{
		search.WithConfig(search.EngineConfig{
			DefaultLimit:     a.cfg.Search.DefaultLimit,
			Oversample:       a.cfg.Search.Oversample,
			Alpha:            a.cfg.Search.Alpha,
			RRFK:             a.cfg.Search.RRFK,
			RerankMultiplier: a.cfg.Search.RerankMultiplier,
		}),
	}
	if a.metrics != nil {
		engineOpts = append(engineOpts, search.WithMetrics(a.metrics))
	}

	if opts.enhance {
		gen, err := a.generatorFor()
		if err != nil {
			return nil, err
		}
		enhancer, err := llm.NewEnhancer(gen)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, search.WithQueryRewriter(enhancer))
	}

	if opts.rerank != "" {
		r, err := a.reranker(opts.rerank)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, search.WithReranker(r))
	}

	return search.NewEngine(lexical, semantic, engineOpts...)
}

// reranker creates the reranker registered under method.
func (a *app) reranker(method string) (search.Reranker, error) {
	switch method {
	case search.RerankPointwise:
		gen, err := a.generatorFor()
		if err != nil {
			return nil, err
		}
		scorer, err := llm.NewPointwiseScorer(gen)
		if err != nil {
			return nil, err
		}
		return search.NewPointwiseReranker(scorer)
	case search.RerankListwise:
		gen, err := a.generatorFor()
		if err != nil {
			return nil, err
		}
		scorer, err := llm.NewListwiseScorer(gen)
		if err != nil {
			return nil, err
		}
		return search.NewListwiseReranker(scorer)
	case search.RerankCrossEncoder:
		if a.cfg.Reranker.Endpoint == "" {
			return nil, apperrors.ConfigError("cross_encoder reranking needs a rerank endpoint", nil).
				WithSuggestion("Set reranker.endpoint in .hybridsearch.yaml or HYBRIDSEARCH_RERANKER_ENDPOINT")
		}
		return search.NewCrossEncoderReranker(search.NewHTTPCrossEncoder(search.HTTPCrossEncoderConfig{
			Endpoint: a.cfg.Reranker.Endpoint,
			Model:    a.cfg.Reranker.Model,
			Timeout:  a.cfg.Reranker.Timeout,
		}))
	default:
		return nil, apperrors.ValidationError(
			fmt.Sprintf("unknown rerank method %q (valid: individual, batch, cross_encoder)", method), nil)
	}
}

// withCacheLock runs fn holding the cache directory lock, waiting for any
// concurrent build to finish.
func (a *app) withCacheLock(fn func() error) error {
	lock := store.NewCacheLock(a.cacheDir)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("cache_unlock_failed", slog.String("error", err.Error()))
		}
	}()
	return fn()
}

// withBuildHint points cache errors at the build command.
func withBuildHint(err error) error {
	var se *apperrors.SearchError
	if errors.As(err, &se) && se.Code == apperrors.ErrCodeCacheMissing && se.Suggestion == "" {
		return se.WithSuggestion("Run 'hybridsearch build' first")
	}
	return err
}
