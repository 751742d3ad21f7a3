package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hybridsearch/internal/chunk"
	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/output"
	"github.com/Aman-CERP/hybridsearch/internal/store"
)

func newSemanticCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semantic",
		Short: "Embedding and semantic search commands",
		Long: `Inspect the embedding provider, try the chunking strategies, and run
semantic search over whole documents or over sentence chunks.`,
		Example: `  # Check the embedding provider
  hybridsearch semantic verify

  # Search the chunked index
  hybridsearch semantic chunked-search "a bear on a train" --limit 3

  # Preview sentence chunking
  hybridsearch semantic semantic-chunk "One. Two. Three." --max-chunk-size 2`,
	}

	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newEmbedCmd())
	cmd.AddCommand(newEmbedQueryCmd())
	cmd.AddCommand(newVerifyEmbeddingsCmd())
	cmd.AddCommand(newSemanticSearchCmd("search", "Search whole-document embeddings", store.DocumentSplitter{}))
	cmd.AddCommand(newChunkCmd())
	cmd.AddCommand(newSemanticChunkCmd())
	cmd.AddCommand(newSemanticSearchCmd("chunked-search", "Search the sentence-chunked index", nil))

	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the embedding provider is configured and reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			e, err := a.embedderFor()
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			out.Line("Model loaded: %s", e.ModelName())
			out.Line("Dimensions: %d", e.Dimensions())
			if !e.Available(cmd.Context()) {
				return apperrors.NetworkError(
					fmt.Sprintf("embedding provider %s is not reachable", a.cfg.Embeddings.Provider), nil).
					WithSuggestion("Check embeddings.host or start the provider")
			}
			out.Success("Embedding provider is available")
			return nil
		},
	}
}

func newEmbedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Embed a single text and print its first dimensions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			e, err := a.embedderFor()
			if err != nil {
				return err
			}
			vec, err := e.Embed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			out.Line("Text: %s", args[0])
			out.Line("First 3 dimensions: %v", vec[:min(3, len(vec))])
			out.Line("Dimensions: %d", len(vec))
			return nil
		},
	}
}

func newEmbedQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embedquery <query>",
		Short: "Embed a search query and print its shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			e, err := a.embedderFor()
			if err != nil {
				return err
			}
			vec, err := e.Embed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			out.Line("Query: %s", args[0])
			out.Line("First 5 dimensions: %v", vec[:min(5, len(vec))])
			out.Line("Shape: (%d)", len(vec))
			return nil
		},
	}
}

func newVerifyEmbeddingsCmd() *cobra.Command {
	var chunked bool

	cmd := &cobra.Command{
		Use:   "verify-embeddings",
		Short: "Load or build the embedding cache and print its shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var splitter store.Splitter = store.DocumentSplitter{}
			if chunked {
				splitter = a.chunkSplitter()
			}
			var idx *store.VectorIndex
			err = a.withCacheLock(func() error {
				var err error
				idx, _, err = a.vectorIndex(ctx, splitter, false)
				return err
			})
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Line("Number of docs: %d", idx.BuiltFrom())
			out.Line("Embeddings shape: %d vectors in %d dimensions", idx.ChunkCount(), idx.Dimensions())
			return nil
		},
	}

	cmd.Flags().BoolVar(&chunked, "chunked", false, "Inspect the sentence-chunked cache instead of whole documents")
	return cmd
}

// newSemanticSearchCmd searches one vector index. A nil splitter selects the
// configured sentence chunking.
func newSemanticSearchCmd(use, short string, splitter store.Splitter) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   use + " <query>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			s := splitter
			if s == nil {
				s = a.chunkSplitter()
			}
			var idx *store.VectorIndex
			err = a.withCacheLock(func() error {
				var err error
				idx, _, err = a.vectorIndex(ctx, s, false)
				return err
			})
			if err != nil {
				return err
			}

			hits, err := idx.Search(ctx, args[0], limit)
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			for i, h := range hits {
				out.Result(i+1, fmt.Sprintf("%s (score: %.4f)", h.Title, h.Score), nil, h.Description)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")
	return cmd
}

func newChunkCmd() *cobra.Command {
	var size, overlap int

	cmd := &cobra.Command{
		Use:   "chunk <text>",
		Short: "Split text into fixed-size word chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printChunks(cmd, args[0], chunk.WordChunker{Size: size, Overlap: overlap})
		},
	}

	cmd.Flags().IntVar(&size, "chunk-size", chunk.DefaultWordChunkSize, "Number of words in each chunk")
	cmd.Flags().IntVar(&overlap, "overlap", chunk.DefaultWordOverlap, "Number of words shared by consecutive chunks")
	return cmd
}

func newSemanticChunkCmd() *cobra.Command {
	var size, overlap int

	cmd := &cobra.Command{
		Use:   "semantic-chunk <text>",
		Short: "Split text into groups of sentences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printChunks(cmd, args[0], chunk.SentenceChunker{Size: size, Overlap: overlap})
		},
	}

	cmd.Flags().IntVar(&size, "max-chunk-size", chunk.DefaultSentenceChunkSize, "Number of sentences in each chunk")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "Number of sentences shared by consecutive chunks")
	return cmd
}

func printChunks(cmd *cobra.Command, text string, c chunk.Chunker) error {
	chunks, err := c.Chunk(text)
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())
	out.Line("Chunking %d characters", len(text))
	for i, ch := range chunks {
		out.Line("%d. %s", i+1, ch)
	}
	return nil
}
