package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// InvertedIndex is the lexical index: posting sets, a document map, per
// document term frequencies and document lengths, scored with BM25.
//
// Build and Load replace the whole index. Once either returns, the index is
// safe for concurrent readers.
type InvertedIndex struct {
	mu        sync.RWMutex
	tokenizer Tokenizer
	config    BM25Config
	artifacts ArtifactStore

	postings   map[string][]int
	docmap     map[int]corpus.Document
	termFreqs  TermFrequencies
	docLengths map[int]int
	docIDs     []int // ascending
	loaded     bool
}

// NewInvertedIndex creates an empty index. artifacts may be nil for an index
// that is never persisted.
func NewInvertedIndex(tokenizer Tokenizer, config BM25Config, artifacts ArtifactStore) (*InvertedIndex, error) {
	if tokenizer == nil {
		return nil, errors.New("tokenizer is required")
	}
	if config.K1 == 0 && config.B == 0 {
		config = DefaultBM25Config()
	}
	return &InvertedIndex{
		tokenizer: tokenizer,
		config:    config,
		artifacts: artifacts,
	}, nil
}

// Build indexes docs, replacing any previous content.
func (idx *InvertedIndex) Build(docs []corpus.Document) error {
	if err := corpus.Validate(docs); err != nil {
		return err
	}
	start := time.Now()

	postings := make(map[string][]int)
	docmap := make(map[int]corpus.Document, len(docs))
	termFreqs := make(TermFrequencies, len(docs))
	docLengths := make(map[int]int, len(docs))

	for _, doc := range docs {
		docmap[doc.ID] = doc
		tokens := idx.tokenizer.Tokenize(doc.Text())
		docLengths[doc.ID] = len(tokens)

		for _, term := range tokens {
			if termFreqs.Count(doc.ID, term) == 0 {
				postings[term] = append(postings[term], doc.ID)
			}
			termFreqs.add(doc.ID, term)
		}
	}
	for _, ids := range postings {
		sort.Ints(ids)
	}

	idx.mu.Lock()
	idx.install(postings, docmap, termFreqs, docLengths)
	idx.mu.Unlock()

	slog.Info("lexical_index_built",
		slog.Int("documents", len(docs)),
		slog.Int("terms", len(postings)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (idx *InvertedIndex) install(postings map[string][]int, docmap map[int]corpus.Document, termFreqs TermFrequencies, docLengths map[int]int) {
	ids := make([]int, 0, len(docmap))
	for id := range docmap {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	idx.postings = postings
	idx.docmap = docmap
	idx.termFreqs = termFreqs
	idx.docLengths = docLengths
	idx.docIDs = ids
	idx.loaded = true
}

// Save persists the four lexical artifacts.
func (idx *InvertedIndex) Save() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.loaded {
		return apperrors.NotLoaded("lexical")
	}
	if idx.artifacts == nil {
		return errors.New("no artifact store configured")
	}

	for _, a := range []struct {
		name string
		v    any
	}{
		{ArtifactIndex, idx.postings},
		{ArtifactDocmap, idx.docmap},
		{ArtifactTermFrequencies, idx.termFreqs},
		{ArtifactDocLengths, idx.docLengths},
	} {
		if err := idx.artifacts.Put(a.name, a.v); err != nil {
			return fmt.Errorf("save lexical index: %w", err)
		}
	}

	slog.Debug("lexical_index_saved", slog.String("location", idx.artifacts.Location()))
	return nil
}

// Load reads the four lexical artifacts. A missing artifact fails with
// CacheMissing and leaves the index unchanged.
func (idx *InvertedIndex) Load() error {
	if idx.artifacts == nil {
		return apperrors.CacheMissing(ArtifactIndex, nil)
	}

	var (
		postings   map[string][]int
		docmap     map[int]corpus.Document
		termFreqs  TermFrequencies
		docLengths map[int]int
	)
	for _, a := range []struct {
		name string
		v    any
	}{
		{ArtifactIndex, &postings},
		{ArtifactDocmap, &docmap},
		{ArtifactTermFrequencies, &termFreqs},
		{ArtifactDocLengths, &docLengths},
	} {
		if err := idx.artifacts.Get(a.name, a.v); err != nil {
			return err
		}
	}

	// gob drops empty maps, which a fresh build of an empty corpus produces.
	if postings == nil {
		postings = make(map[string][]int)
	}
	if docmap == nil {
		docmap = make(map[int]corpus.Document)
	}
	if termFreqs == nil {
		termFreqs = make(TermFrequencies)
	}
	if docLengths == nil {
		docLengths = make(map[int]int)
	}

	idx.mu.Lock()
	idx.install(postings, docmap, termFreqs, docLengths)
	idx.mu.Unlock()

	slog.Debug("lexical_index_loaded",
		slog.String("location", idx.artifacts.Location()),
		slog.Int("documents", len(docmap)))
	return nil
}

// LoadOrBuild loads the cached index, rebuilding and saving it when force is
// set, the cache is missing, or the cached document count differs from docs.
func (idx *InvertedIndex) LoadOrBuild(docs []corpus.Document, force bool) (rebuilt bool, err error) {
	if !force {
		err := idx.Load()
		switch {
		case err == nil && idx.Len() == len(docs):
			return false, nil
		case err == nil:
			slog.Info("lexical_cache_stale",
				slog.Int("cached_documents", idx.Len()),
				slog.Int("corpus_documents", len(docs)))
		case errors.Is(err, apperrors.ErrCacheMissing):
			slog.Info("lexical_cache_missing", slog.String("error", err.Error()))
		default:
			return false, err
		}
	}

	if err := idx.Build(docs); err != nil {
		return false, err
	}
	if idx.artifacts != nil {
		if err := idx.Save(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// singleTerm tokenizes input and requires exactly one resulting term.
func (idx *InvertedIndex) singleTerm(input string) (string, error) {
	terms := idx.tokenizer.Tokenize(input)
	if len(terms) != 1 {
		return "", apperrors.InvalidTermArity(input, len(terms))
	}
	return terms[0], nil
}

func (idx *InvertedIndex) readLocked() (func(), error) {
	idx.mu.RLock()
	if !idx.loaded {
		idx.mu.RUnlock()
		return nil, apperrors.NotLoaded("lexical")
	}
	return idx.mu.RUnlock, nil
}

// Documents returns the ascending ids of documents in the posting set of the
// single term the input tokenizes to.
func (idx *InvertedIndex) Documents(term string) ([]int, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, err := idx.singleTerm(term)
	if err != nil {
		return nil, err
	}
	ids := idx.postings[t]
	out := make([]int, len(ids))
	copy(out, ids)
	return out, nil
}

// TF returns the raw occurrence count of term in the document.
func (idx *InvertedIndex) TF(docID int, term string) (int, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return 0, err
	}
	defer unlock()

	t, err := idx.singleTerm(term)
	if err != nil {
		return 0, err
	}
	return idx.termFreqs.Count(docID, t), nil
}

// IDF returns ln((N+1)/(df+1)).
func (idx *InvertedIndex) IDF(term string) (float64, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return 0, err
	}
	defer unlock()

	t, err := idx.singleTerm(term)
	if err != nil {
		return 0, err
	}
	return idx.idf(t), nil
}

// TFIDF returns TF * IDF.
func (idx *InvertedIndex) TFIDF(docID int, term string) (float64, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return 0, err
	}
	defer unlock()

	t, err := idx.singleTerm(term)
	if err != nil {
		return 0, err
	}
	return float64(idx.termFreqs.Count(docID, t)) * idx.idf(t), nil
}

// BM25IDF returns ln((N - df + 0.5)/(df + 0.5) + 1).
func (idx *InvertedIndex) BM25IDF(term string) (float64, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return 0, err
	}
	defer unlock()

	t, err := idx.singleTerm(term)
	if err != nil {
		return 0, err
	}
	return idx.bm25IDF(t), nil
}

// BM25TF returns the saturated, length-normalized term frequency using the
// given k1 and b.
func (idx *InvertedIndex) BM25TF(docID int, term string, k1, b float64) (float64, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return 0, err
	}
	defer unlock()

	t, err := idx.singleTerm(term)
	if err != nil {
		return 0, err
	}
	return idx.bm25TF(docID, t, k1, b, idx.avgDocLength()), nil
}

// BM25 returns BM25IDF * BM25TF with the configured parameters.
func (idx *InvertedIndex) BM25(docID int, term string) (float64, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return 0, err
	}
	defer unlock()

	t, err := idx.singleTerm(term)
	if err != nil {
		return 0, err
	}
	return idx.bm25IDF(t) * idx.bm25TF(docID, t, idx.config.K1, idx.config.B, idx.avgDocLength()), nil
}

// Search scores every document against the query and returns the top limit
// hits, highest score first and ties broken by ascending id. A non-positive
// limit returns every document.
func (idx *InvertedIndex) Search(ctx context.Context, query string, limit int) ([]LexicalHit, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return nil, err
	}
	defer unlock()

	terms := idx.tokenizer.Tokenize(query)
	idfs := make([]float64, len(terms))
	for i, t := range terms {
		idfs[i] = idx.bm25IDF(t)
	}
	avg := idx.avgDocLength()

	hits := make([]LexicalHit, 0, len(idx.docIDs))
	for i, id := range idx.docIDs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var score float64
		for j, t := range terms {
			score += idfs[j] * idx.bm25TF(id, t, idx.config.K1, idx.config.B, avg)
		}
		hits = append(hits, LexicalHit{Document: idx.docmap[id], Score: score})
	}

	// docIDs is ascending, so a stable sort keeps the id tie-break.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// TermSearch returns up to limit documents containing any query token.
// Tokens are visited in query order and each token's documents in ascending
// id order; a document is listed once, at its first match.
func (idx *InvertedIndex) TermSearch(ctx context.Context, query string, limit int) ([]corpus.Document, error) {
	unlock, err := idx.readLocked()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tokens := idx.tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return nil, apperrors.EmptyInput("query")
	}

	seen := make(map[int]struct{})
	var out []corpus.Document
	for _, t := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, id := range idx.postings[t] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, idx.docmap[id])
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// Document returns the indexed document with the given id.
func (idx *InvertedIndex) Document(id int) (corpus.Document, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	doc, ok := idx.docmap[id]
	return doc, ok
}

// AllDocuments returns every indexed document in ascending id order.
func (idx *InvertedIndex) AllDocuments() []corpus.Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	docs := make([]corpus.Document, len(idx.docIDs))
	for i, id := range idx.docIDs {
		docs[i] = idx.docmap[id]
	}
	return docs
}

// Tokenize exposes the index's tokenizer.
func (idx *InvertedIndex) Tokenize(text string) []string {
	return idx.tokenizer.Tokenize(text)
}

// Len returns the number of indexed documents.
func (idx *InvertedIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docmap)
}

// Loaded reports whether Build or Load has completed.
func (idx *InvertedIndex) Loaded() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.loaded
}

// Config returns the BM25 parameters.
func (idx *InvertedIndex) Config() BM25Config {
	return idx.config
}

// Stats returns index statistics.
func (idx *InvertedIndex) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return IndexStats{
		DocumentCount: len(idx.docmap),
		TermCount:     len(idx.postings),
		AvgDocLength:  idx.avgDocLength(),
	}
}

func (idx *InvertedIndex) idf(term string) float64 {
	n := float64(len(idx.docmap))
	df := float64(len(idx.postings[term]))
	return math.Log((n + 1) / (df + 1))
}

func (idx *InvertedIndex) bm25IDF(term string) float64 {
	n := float64(len(idx.docmap))
	df := float64(len(idx.postings[term]))
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

func (idx *InvertedIndex) bm25TF(docID int, term string, k1, b, avg float64) float64 {
	tf := float64(idx.termFreqs.Count(docID, term))
	norm := 1.0
	if avg > 0 {
		norm = 1 - b + b*float64(idx.docLengths[docID])/avg
	}
	denom := tf + k1*norm
	if denom == 0 {
		return 0
	}
	return tf * (k1 + 1) / denom
}

// avgDocLength is derived on demand; zero for an empty corpus.
func (idx *InvertedIndex) avgDocLength() float64 {
	if len(idx.docLengths) == 0 {
		return 0
	}
	total := 0
	for _, l := range idx.docLengths {
		total += l
	}
	return float64(total) / float64(len(idx.docLengths))
}
