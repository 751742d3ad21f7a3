package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	"github.com/Aman-CERP/hybridsearch/internal/llm"
	"github.com/Aman-CERP/hybridsearch/internal/output"
)

// ragFunc is one of the RAG generation styles.
type ragFunc func(r *llm.RAG, ctx context.Context, query string, docs []corpus.Document) (string, error)

func newRAGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Retrieval-augmented generation over RRF search results",
		Long: `Retrieve the top movies with RRF search and hand them to the generation
provider. Requires generation.provider to be configured.`,
		Example: `  hybridsearch rag answer "which movies feature talking bears?"
  hybridsearch rag summarize "heist movies" --limit 8
  hybridsearch rag citations "space survival"`,
	}

	cmd.AddCommand(newRAGSubCmd("answer", "Answer a question from the retrieved movies", (*llm.RAG).Answer))
	cmd.AddCommand(newRAGSubCmd("summarize", "Summarize the retrieved movies for a query", (*llm.RAG).Summarize))
	cmd.AddCommand(newRAGSubCmd("citations", "Answer with [n] citations into the retrieved movies", (*llm.RAG).Cite))

	return cmd
}

func newRAGSubCmd(name, short string, generate ragFunc) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   name + " <query>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := args[0]

			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			gen, err := a.generatorFor()
			if err != nil {
				return err
			}
			rag, err := llm.NewRAG(gen)
			if err != nil {
				return err
			}
			engine, err := a.engine(ctx, engineOptions{})
			if err != nil {
				return err
			}

			results, err := engine.RRFSearch(ctx, query, engine.Config().RRFK, limit)
			if err != nil {
				return err
			}
			docs := make([]corpus.Document, len(results))
			for i, r := range results {
				docs[i] = r.Document
			}

			response, err := generate(rag, ctx, query, docs)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Line("Search Results:")
			for _, d := range docs {
				out.Line("  - %s", d.Title)
			}
			out.Line("\nRAG response:")
			out.Line("%s", response)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Number of movies handed to the generator")
	return cmd
}
