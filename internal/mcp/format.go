package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/hybridsearch/internal/search"
	"github.com/Aman-CERP/hybridsearch/internal/store"
)

// snippetLength is the number of description runes shown per result.
const snippetLength = 100

// FormatResults renders tool output as markdown.
func FormatResults(out SearchOutput) string {
	if len(out.Results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", out.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s Results for \"%s\"\n\n", modeLabel(out.Mode), out.Query)
	fmt.Fprintf(&sb, "Found %d result", len(out.Results))
	if len(out.Results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for _, r := range out.Results {
		formatResult(&sb, r)
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, r ResultOutput) {
	fmt.Fprintf(sb, "### %d. %s (id %d)\n\n", r.Rank, r.Title, r.ID)
	fmt.Fprintf(sb, "**Score:** %.4f", r.Score)
	if r.RerankScore != nil {
		fmt.Fprintf(sb, " | **Rerank:** %.3f", *r.RerankScore)
	}
	sb.WriteString("\n")

	var parts []string
	if r.BM25Score != nil {
		parts = append(parts, fmt.Sprintf("BM25: %.4f", *r.BM25Score))
	}
	if r.SemanticScore != nil {
		parts = append(parts, fmt.Sprintf("Semantic: %.4f", *r.SemanticScore))
	}
	if r.BM25Rank > 0 {
		parts = append(parts, fmt.Sprintf("BM25 rank: %d", r.BM25Rank))
	}
	if r.SemanticRank > 0 {
		parts = append(parts, fmt.Sprintf("Semantic rank: %d", r.SemanticRank))
	}
	if len(parts) > 0 {
		fmt.Fprintf(sb, "%s\n", strings.Join(parts, ", "))
	}
	if r.InBothLists {
		sb.WriteString("_found in both keyword and semantic search_\n")
	}
	fmt.Fprintf(sb, "\n> %s\n\n", r.Snippet)
}

func modeLabel(mode string) string {
	switch mode {
	case search.ModeBM25:
		return "BM25"
	case search.ModeSemantic:
		return "Semantic"
	case search.ModeWeighted:
		return "Weighted Hybrid"
	case search.ModeRRF:
		return "RRF Hybrid"
	default:
		return "Search"
	}
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// FromLexicalHits converts BM25 hits to tool output.
func FromLexicalHits(hits []store.LexicalHit) []ResultOutput {
	out := make([]ResultOutput, len(hits))
	for i, h := range hits {
		score := h.Score
		out[i] = ResultOutput{
			Rank:      i + 1,
			ID:        h.Document.ID,
			Title:     h.Document.Title,
			Snippet:   h.Document.Snippet(snippetLength),
			Score:     h.Score,
			BM25Score: &score,
			BM25Rank:  i + 1,
		}
	}
	return out
}

// FromSemanticHits converts semantic hits to tool output.
func FromSemanticHits(hits []store.SemanticHit) []ResultOutput {
	out := make([]ResultOutput, len(hits))
	for i, h := range hits {
		score := h.Score
		out[i] = ResultOutput{
			Rank:          i + 1,
			ID:            h.ID,
			Title:         h.Title,
			Snippet:       h.Document.Snippet(snippetLength),
			Score:         h.Score,
			SemanticScore: &score,
			SemanticRank:  i + 1,
		}
	}
	return out
}

// FromFused converts fused candidates to tool output. Weighted fusion reports
// normalized scores per side; RRF reports ranks.
func FromFused(mode string, cands []search.FusedCandidate) []ResultOutput {
	out := make([]ResultOutput, len(cands))
	for i, c := range cands {
		out[i] = fusedOutput(mode, i+1, c)
	}
	return out
}

// FromReranked converts engine Search results to tool output.
func FromReranked(mode string, results []search.RerankedResult) []ResultOutput {
	out := make([]ResultOutput, len(results))
	for i, r := range results {
		o := fusedOutput(mode, r.Rank, r.FusedCandidate)
		if r.Reranked {
			score := r.RerankScore
			o.RerankScore = &score
		}
		out[i] = o
	}
	return out
}

func fusedOutput(mode string, rank int, c search.FusedCandidate) ResultOutput {
	o := ResultOutput{
		Rank:        rank,
		ID:          c.ID,
		Title:       c.Document.Title,
		Snippet:     c.Document.Snippet(snippetLength),
		Score:       c.Score,
		BM25Rank:    c.Lexical.Rank,
		InBothLists: c.InBoth(),
	}
	o.SemanticRank = c.Semantic.Rank
	if mode == search.ModeWeighted {
		bm25, sem := c.Lexical.Normalized, c.Semantic.Normalized
		o.BM25Score = &bm25
		o.SemanticScore = &sem
	}
	return o
}
