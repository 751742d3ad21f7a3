package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	"github.com/Aman-CERP/hybridsearch/internal/eval"
	"github.com/Aman-CERP/hybridsearch/internal/output"
)

func newEvaluateCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score RRF search against the golden dataset",
		Long: `Run every golden query through RRF search and report precision@k,
recall@k and F1 per query and on average. Titles are compared exactly.`,
		Example: `  hybridsearch evaluate --limit 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Number of results scored per query (k)")
	return cmd
}

func runEvaluate(cmd *cobra.Command, k int) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	cases, err := corpus.LoadGoldenSet(a.cfg.Data.Golden)
	if err != nil {
		return err
	}
	engine, err := a.engine(ctx, engineOptions{})
	if err != nil {
		return err
	}

	titles := func(ctx context.Context, query string, k int) ([]string, error) {
		results, err := engine.RRFSearch(ctx, query, engine.Config().RRFK, k)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(results))
		for i, r := range results {
			out[i] = r.Document.Title
		}
		return out, nil
	}

	report, err := eval.Run(ctx, titles, cases, k)
	if err != nil {
		return err
	}
	printReport(output.New(cmd.OutOrStdout()), report)
	return nil
}

func printReport(out *output.Writer, r *eval.Report) {
	out.Line("k=%d\n", r.K)
	for _, c := range r.Cases {
		out.Line("- Query: %s", c.Query)
		out.Line("  - Precision@%d: %.4f", r.K, c.Precision)
		out.Line("  - Recall@%d: %.4f", r.K, c.Recall)
		out.Line("  - F1 Score: %.4f", c.F1)
		out.Line("  - Retrieved: %s", strings.Join(c.Retrieved, ", "))
		out.Line("  - Relevant: %s", strings.Join(c.Relevant, ", "))
	}
	out.Newline()
	out.Header("Summary")
	out.KeyValue("queries", fmt.Sprintf("%d", len(r.Cases)))
	out.KeyValue(fmt.Sprintf("mean precision@%d", r.K), fmt.Sprintf("%.4f", r.MeanPrecision))
	out.KeyValue(fmt.Sprintf("mean recall@%d", r.K), fmt.Sprintf("%.4f", r.MeanRecall))
	out.KeyValue("mean F1", fmt.Sprintf("%.4f", r.MeanF1))
	out.KeyValue("duration", r.Duration.Round(time.Millisecond).String())
}
