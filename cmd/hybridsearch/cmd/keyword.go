package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/output"
	"github.com/Aman-CERP/hybridsearch/internal/store"
)

func newKeywordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyword",
		Short: "Keyword search and BM25 scoring primitives",
		Long: `Query the BM25 inverted index directly.

The term commands (tf, idf, tfidf, bm25idf, bm25tf) take exactly one term,
which is run through the same analysis chain as the documents. They read
the cached index; run 'hybridsearch build' first.`,
		Example: `  # Term-match keyword search
  hybridsearch keyword search "bear"

  # Full BM25 ranking
  hybridsearch keyword bm25search "grizzly bear attack" --limit 10

  # Inspect scoring for one term
  hybridsearch keyword tf 424 bear
  hybridsearch keyword bm25tf 424 bear 1.5 0.75`,
	}

	cmd.AddCommand(newKeywordSearchCmd())
	cmd.AddCommand(newBM25SearchCmd())
	cmd.AddCommand(newTermCmd("tf", "Raw term frequency of a term in a document", true, runTF))
	cmd.AddCommand(newTermCmd("idf", "Inverse document frequency of a term", false, runIDF))
	cmd.AddCommand(newTermCmd("tfidf", "TF-IDF of a term in a document", true, runTFIDF))
	cmd.AddCommand(newTermCmd("bm25idf", "BM25 IDF of a term", false, runBM25IDF))
	cmd.AddCommand(newBM25TFCmd())

	return cmd
}

func newKeywordSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "List movies containing any query term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, closeApp, err := openLexical()
			if err != nil {
				return err
			}
			defer closeApp()

			query := args[0]
			out := output.New(cmd.OutOrStdout())
			out.Line("Searching for: %s", query)
			docs, err := idx.TermSearch(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			for i, d := range docs {
				out.Line("%d. (%d) %s", i+1, d.ID, d.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")
	return cmd
}

func newBM25SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "bm25search <query>",
		Short: "Rank movies by full BM25 scoring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, closeApp, err := openLexical()
			if err != nil {
				return err
			}
			defer closeApp()

			query := args[0]
			out := output.New(cmd.OutOrStdout())
			out.Line("Searching for: %s using full BM25 scoring...", query)
			hits, err := idx.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			for i, h := range hits {
				out.Line("%d. (%d) %s - Score: %.2f", i+1, h.Document.ID, h.Document.Title, h.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")
	return cmd
}

// termRunner prints one scoring primitive. docID is zero for the
// document-independent commands.
type termRunner func(out *output.Writer, idx *store.InvertedIndex, docID int, term string) error

func newTermCmd(name, short string, withDoc bool, run termRunner) *cobra.Command {
	use, nargs := name+" <term>", 1
	if withDoc {
		use, nargs = name+" <doc_id> <term>", 2
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var docID int
			if withDoc {
				id, err := parseDocID(args[0])
				if err != nil {
					return err
				}
				docID = id
				args = args[1:]
			}

			idx, closeApp, err := openLexical()
			if err != nil {
				return err
			}
			defer closeApp()
			return run(output.New(cmd.OutOrStdout()), idx, docID, args[0])
		},
	}
}

func newBM25TFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bm25tf <doc_id> <term> [k1] [b]",
		Short: "BM25 saturated term frequency of a term in a document",
		Long: `Print the BM25 saturated term frequency of a term in a document.

k1 and b default to search.k1 and search.b from the configuration.`,
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID, err := parseDocID(args[0])
			if err != nil {
				return err
			}
			k1, err := optionalFloat(args, 2, "k1")
			if err != nil {
				return err
			}
			b, err := optionalFloat(args, 3, "b")
			if err != nil {
				return err
			}

			idx, closeApp, err := openLexical()
			if err != nil {
				return err
			}
			defer closeApp()

			cfg := idx.Config()
			if k1 == nil {
				k1 = &cfg.K1
			}
			if b == nil {
				b = &cfg.B
			}
			score, err := idx.BM25TF(docID, args[1], *k1, *b)
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Line("BM25 TF score of '%s' in document '%d': %.2f", args[1], docID, score)
			return nil
		},
	}
}

func runTF(out *output.Writer, idx *store.InvertedIndex, docID int, term string) error {
	tf, err := idx.TF(docID, term)
	if err != nil {
		return err
	}
	out.Line("Term frequency of '%s' in document '%d': %d", term, docID, tf)
	return nil
}

func runIDF(out *output.Writer, idx *store.InvertedIndex, _ int, term string) error {
	idf, err := idx.IDF(term)
	if err != nil {
		return err
	}
	out.Line("Inverse document frequency of '%s': %.2f", term, idf)
	return nil
}

func runTFIDF(out *output.Writer, idx *store.InvertedIndex, docID int, term string) error {
	score, err := idx.TFIDF(docID, term)
	if err != nil {
		return err
	}
	out.Line("TF-IDF score of '%s' in document '%d': %.2f", term, docID, score)
	return nil
}

func runBM25IDF(out *output.Writer, idx *store.InvertedIndex, _ int, term string) error {
	score, err := idx.BM25IDF(term)
	if err != nil {
		return err
	}
	out.Line("BM25 IDF score of '%s': %.2f", term, score)
	return nil
}

// openLexical loads the cached BM25 index and returns a cleanup func.
func openLexical() (*store.InvertedIndex, func(), error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}
	idx, err := a.loadLexical()
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return idx, func() { _ = a.Close() }, nil
}

func parseDocID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperrors.ValidationError(fmt.Sprintf("document id must be an integer, got %q", s), err)
	}
	return id, nil
}

// optionalFloat parses args[i] when present.
func optionalFloat(args []string, i int, name string) (*float64, error) {
	if len(args) <= i {
		return nil, nil
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("%s must be a number, got %q", name, args[i]), err)
	}
	return &v, nil
}
