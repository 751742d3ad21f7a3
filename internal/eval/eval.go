// Package eval scores retrieval against a golden dataset with precision@k,
// recall@k and F1.
package eval

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/hybridsearch/internal/corpus"
)

// SearchFunc returns the titles retrieved for a query, best first.
type SearchFunc func(ctx context.Context, query string, k int) ([]string, error)

// CaseResult is the evaluation of one golden query.
type CaseResult struct {
	Query     string
	Retrieved []string
	Relevant  []string
	Matched   []string
	Precision float64
	Recall    float64
	F1        float64
}

// Report aggregates per-case results.
type Report struct {
	K             int
	Cases         []CaseResult
	MeanPrecision float64
	MeanRecall    float64
	MeanF1        float64
	Duration      time.Duration
}

// Precision is the share of retrieved titles that are relevant. An empty
// retrieval scores zero.
func Precision(retrieved, relevant []string) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return float64(len(matched(retrieved, relevant))) / float64(len(retrieved))
}

// Recall is the share of relevant titles that were retrieved. An empty
// relevant set scores zero.
func Recall(retrieved, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(len(matched(retrieved, relevant))) / float64(len(relevant))
}

// F1 is the harmonic mean of precision and recall, zero when both are zero.
func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// matched returns the retrieved titles that are relevant, in retrieval order.
func matched(retrieved, relevant []string) []string {
	want := make(map[string]struct{}, len(relevant))
	for _, r := range relevant {
		want[r] = struct{}{}
	}
	out := []string{}
	for _, r := range retrieved {
		if _, ok := want[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Run evaluates every case with the top k results of search. A search error
// aborts the run.
func Run(ctx context.Context, search SearchFunc, cases []corpus.TestCase, k int) (*Report, error) {
	start := time.Now()
	report := &Report{K: k, Cases: make([]CaseResult, 0, len(cases))}

	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		retrieved, err := search(ctx, tc.Query, k)
		if err != nil {
			return nil, err
		}
		p := Precision(retrieved, tc.RelevantDocs)
		r := Recall(retrieved, tc.RelevantDocs)
		report.Cases = append(report.Cases, CaseResult{
			Query:     tc.Query,
			Retrieved: retrieved,
			Relevant:  tc.RelevantDocs,
			Matched:   matched(retrieved, tc.RelevantDocs),
			Precision: p,
			Recall:    r,
			F1:        F1(p, r),
		})
		report.MeanPrecision += p
		report.MeanRecall += r
		report.MeanF1 += F1(p, r)
	}

	if n := float64(len(report.Cases)); n > 0 {
		report.MeanPrecision /= n
		report.MeanRecall /= n
		report.MeanF1 /= n
	}
	report.Duration = time.Since(start)

	slog.Info("evaluation_complete",
		slog.Int("cases", len(report.Cases)),
		slog.Int("k", k),
		slog.Float64("mean_precision", report.MeanPrecision),
		slog.Float64("mean_recall", report.MeanRecall),
		slog.Float64("mean_f1", report.MeanF1),
		slog.Duration("duration", report.Duration))

	return report, nil
}
