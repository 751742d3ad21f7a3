package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/llm"
	"github.com/Aman-CERP/hybridsearch/internal/output"
	"github.com/Aman-CERP/hybridsearch/internal/search"
)

const snippetLength = 100

func newHybridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hybrid",
		Short: "Fused keyword and semantic search",
		Long: `Combine BM25 and chunked semantic results.

weighted-search min-max normalizes both score lists and blends them with
alpha (1 = keyword only, 0 = semantic only). rrf-search sums 1/(k+rank)
over both rankings and can rewrite the query and rerank the fused list
with an LLM or a cross-encoder.`,
		Example: `  # Normalize a list of scores
  hybridsearch hybrid normalize 0.5 2.3 1.2

  # Keyword-leaning weighted fusion
  hybridsearch hybrid weighted-search "bear in the woods" --alpha 0.7

  # RRF with spelling correction and listwise reranking
  hybridsearch hybrid rrf-search "grizzly baer" --enhance spell --rerank-method batch`,
	}

	cmd.AddCommand(newNormalizeCmd())
	cmd.AddCommand(newWeightedSearchCmd())
	cmd.AddCommand(newRRFSearchCmd())

	return cmd
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <score>...",
		Short: "Min-max normalize scores so the highest is 1.0 and the lowest 0.0",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores := make([]float64, len(args))
			for i, s := range args {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return apperrors.ValidationError(fmt.Sprintf("score must be a number, got %q", s), err)
				}
				scores[i] = v
			}
			out := output.New(cmd.OutOrStdout())
			for _, n := range search.Normalize(scores) {
				out.Bullet(fmt.Sprintf("%.4f", n))
			}
			return nil
		},
	}
}

func newWeightedSearchCmd() *cobra.Command {
	var (
		alpha float64
		limit int
	)

	cmd := &cobra.Command{
		Use:   "weighted-search <query>",
		Short: "Blend normalized BM25 and semantic scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			engine, err := a.engine(ctx, engineOptions{})
			if err != nil {
				return err
			}
			weight := engine.Config().Alpha
			if cmd.Flags().Changed("alpha") {
				weight = alpha
			}
			results, err := engine.WeightedSearch(ctx, args[0], weight, limit)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			for i, c := range results {
				out.Result(i+1, c.Document.Title, []string{
					fmt.Sprintf("Hybrid Score: %.4f", c.Score),
					fmt.Sprintf("BM25: %.4f, Semantic: %.4f", c.Lexical.Normalized, c.Semantic.Normalized),
				}, c.Document.Snippet(snippetLength))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&alpha, "alpha", search.DefaultAlpha, "Keyword weight: 1 = keyword only, 0.5 = even, 0 = semantic only (default: search.alpha)")
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")
	return cmd
}

func newRRFSearchCmd() *cobra.Command {
	var (
		k       int
		limit   int
		enhance string
		method  string
	)

	cmd := &cobra.Command{
		Use:   "rrf-search <query>",
		Short: "Fuse BM25 and semantic rankings with Reciprocal Rank Fusion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if enhance != "" && !slices.Contains(llm.EnhanceMethods, enhance) {
				return apperrors.ValidationError(fmt.Sprintf("unknown enhance method %q", enhance), nil).
					WithSuggestion("Use one of: " + strings.Join(llm.EnhanceMethods, ", "))
			}

			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			engine, err := a.engine(ctx, engineOptions{enhance: enhance != "", rerank: method})
			if err != nil {
				return err
			}
			results, err := engine.Search(ctx, args[0], search.SearchOptions{
				Mode:    search.ModeRRF,
				Limit:   limit,
				K:       k,
				Enhance: enhance,
				Rerank:  method,
			})
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			for _, r := range results {
				details := []string{
					fmt.Sprintf("RRF Score: %.4f", r.Score),
					fmt.Sprintf("BM25 Rank: %s, Semantic Rank: %s", rankLabel(r.Lexical), rankLabel(r.Semantic)),
				}
				if r.Reranked && method != search.RerankListwise {
					details = append(details, fmt.Sprintf("Rerank Score: %.3f", r.RerankScore))
				}
				out.Result(r.Rank, r.Document.Title, details, r.Document.Snippet(snippetLength))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&k, "k", 0, "RRF constant; lower values favor top ranks more (default: search.rrf_k)")
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")
	cmd.Flags().StringVar(&enhance, "enhance", "", "Query enhancement method: spell, rewrite, expand")
	cmd.Flags().StringVar(&method, "rerank-method", "", "Rerank method: individual, batch, cross_encoder")
	return cmd
}

// rankLabel prints "-" for a document missing from one list.
func rankLabel(s search.Signal) string {
	if !s.Present() {
		return "-"
	}
	return strconv.Itoa(s.Rank)
}
