package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/output"
	"github.com/Aman-CERP/hybridsearch/internal/store"
)

func newBuildCmd() *cobra.Command {
	var (
		force     bool
		documents bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the keyword and semantic index caches",
		Long: `Build the BM25 inverted index and the chunked semantic index for the
configured movie corpus and persist them to the cache directory.

Existing caches are reused unless they are stale or --force is given. Only
one build may run against a cache directory at a time.`,
		Example: `  # Build missing caches
  hybridsearch build

  # Rebuild everything, including the unchunked document embeddings
  hybridsearch build --force --documents`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, force, documents)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even if the caches are current")
	cmd.Flags().BoolVar(&documents, "documents", false, "Also build the unchunked document embeddings used by 'semantic search'")

	return cmd
}

func runBuild(cmd *cobra.Command, force, documents bool) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	lock := store.NewCacheLock(a.cacheDir)
	acquired, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !acquired {
		return apperrors.New(apperrors.ErrCodeCacheLocked,
			fmt.Sprintf("another build holds %s", lock.Path()), nil).
			WithSuggestion("Wait for the other build to finish")
	}
	defer func() { _ = lock.Unlock() }()

	docs, err := a.documents()
	if err != nil {
		return err
	}

	steps := 2
	if documents {
		steps = 3
	}
	start := time.Now()
	out.Statusf("📚", "Building indexes for %d movies in %s", len(docs), a.cacheDir)

	out.Progress(0, steps, "keyword index")
	lexical, err := a.lexicalIndex(force)
	if err != nil {
		return err
	}

	out.Progress(1, steps, "chunk embeddings")
	semantic, _, err := a.vectorIndex(ctx, a.chunkSplitter(), force)
	if err != nil {
		return err
	}

	var docIndex *store.VectorIndex
	if documents {
		out.Progress(2, steps, "document embeddings")
		if docIndex, _, err = a.vectorIndex(ctx, store.DocumentSplitter{}, force); err != nil {
			return err
		}
	}
	out.Progress(steps, steps, "done")

	stats := lexical.Stats()
	out.Successf("Indexes built in %s", time.Since(start).Round(time.Millisecond))
	out.KeyValue("documents", fmt.Sprintf("%d", stats.DocumentCount))
	out.KeyValue("terms", fmt.Sprintf("%d", stats.TermCount))
	out.KeyValue("avg doc length", fmt.Sprintf("%.2f", stats.AvgDocLength))
	out.KeyValue("chunks", fmt.Sprintf("%d", semantic.ChunkCount()))
	if docIndex != nil {
		out.KeyValue("document embeddings", fmt.Sprintf("%d", docIndex.ChunkCount()))
	}
	out.KeyValue("cache", a.artifacts.Location())
	return nil
}
