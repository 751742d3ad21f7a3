package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/hybridsearch/internal/chunk"
	"github.com/Aman-CERP/hybridsearch/internal/corpus"
	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// Splitter decides which texts represent a document in the vector index.
type Splitter interface {
	// Name prefixes the splitter's artifacts, e.g. "chunk" -> chunk_embeddings.
	Name() string
	Split(doc corpus.Document) ([]string, error)
}

// SentenceSplitter embeds overlapping sentence chunks of the description.
// Documents with a blank description produce no chunks.
type SentenceSplitter struct {
	Chunker chunk.Chunker
}

// NewSentenceSplitter returns a splitter over sentence chunks of the given
// size and overlap.
func NewSentenceSplitter(size, overlap int) SentenceSplitter {
	return SentenceSplitter{Chunker: chunk.SentenceChunker{Size: size, Overlap: overlap}}
}

// Name implements Splitter.
func (SentenceSplitter) Name() string { return "chunk" }

// Split implements Splitter.
func (s SentenceSplitter) Split(doc corpus.Document) ([]string, error) {
	if strings.TrimSpace(doc.Description) == "" {
		return nil, nil
	}
	return s.Chunker.Chunk(doc.Description)
}

// DocumentSplitter embeds each document whole as "title: description".
type DocumentSplitter struct{}

// Name implements Splitter.
func (DocumentSplitter) Name() string { return "document" }

// Split implements Splitter.
func (DocumentSplitter) Split(doc corpus.Document) ([]string, error) {
	return []string{fmt.Sprintf("%s: %s", doc.Title, doc.Description)}, nil
}

var (
	_ Splitter = SentenceSplitter{}
	_ Splitter = DocumentSplitter{}
)

// chunkManifest is the persisted metadata artifact. Documents records the
// corpus size the embeddings were built from.
type chunkManifest struct {
	Chunks    []ChunkMeta
	Documents int
}

// VectorIndex is a semantic index over embedded splitter output. Each
// document scores as its best-matching chunk.
//
// Build and Load replace the whole index. Once either returns, the index is
// safe for concurrent readers.
type VectorIndex struct {
	mu        sync.RWMutex
	embedder  Embedder
	splitter  Splitter
	artifacts ArtifactStore

	docmap     map[int]corpus.Document
	embeddings [][]float32
	chunks     []ChunkMeta
	builtFrom  int
	loaded     bool
}

// NewVectorIndex creates an empty vector index. artifacts may be nil for an
// index that is never persisted.
func NewVectorIndex(embedder Embedder, splitter Splitter, artifacts ArtifactStore) (*VectorIndex, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if splitter == nil {
		return nil, errors.New("splitter is required")
	}
	return &VectorIndex{
		embedder:  embedder,
		splitter:  splitter,
		artifacts: artifacts,
	}, nil
}

// EmbeddingsArtifact returns the name of the embedding matrix artifact.
func (v *VectorIndex) EmbeddingsArtifact() string { return v.splitter.Name() + "_embeddings" }

// MetadataArtifact returns the name of the chunk metadata artifact.
func (v *VectorIndex) MetadataArtifact() string { return v.splitter.Name() + "_metadata" }

// Build splits every document, embeds all chunk texts in one batch and
// replaces the index content.
func (v *VectorIndex) Build(ctx context.Context, docs []corpus.Document) error {
	if err := corpus.Validate(docs); err != nil {
		return err
	}
	start := time.Now()

	var texts []string
	var chunks []ChunkMeta
	for _, doc := range docs {
		parts, err := v.splitter.Split(doc)
		if err != nil {
			return fmt.Errorf("split document %d: %w", doc.ID, err)
		}
		for i, text := range parts {
			texts = append(texts, text)
			chunks = append(chunks, ChunkMeta{DocumentID: doc.ID, ChunkIndex: i, TotalChunks: len(parts)})
		}
	}

	var embeddings [][]float32
	if len(texts) > 0 {
		var err error
		embeddings, err = v.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(embeddings) != len(texts) {
			return apperrors.New(apperrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("embedder returned %d vectors for %d texts", len(embeddings), len(texts)), nil)
		}
	}

	v.mu.Lock()
	v.docmap = corpus.Map(docs)
	v.embeddings = embeddings
	v.chunks = chunks
	v.builtFrom = len(docs)
	v.loaded = true
	v.mu.Unlock()

	slog.Info("vector_index_built",
		slog.String("splitter", v.splitter.Name()),
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Save persists the embedding matrix and chunk metadata.
func (v *VectorIndex) Save() error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.loaded {
		return apperrors.NotLoaded("semantic")
	}
	if v.artifacts == nil {
		return errors.New("no artifact store configured")
	}

	if err := v.artifacts.Put(v.EmbeddingsArtifact(), v.embeddings); err != nil {
		return fmt.Errorf("save semantic index: %w", err)
	}
	manifest := chunkManifest{Chunks: v.chunks, Documents: v.builtFrom}
	if err := v.artifacts.Put(v.MetadataArtifact(), manifest); err != nil {
		return fmt.Errorf("save semantic index: %w", err)
	}
	return nil
}

// Load reads persisted embeddings and metadata; docs supplies the document
// map. Only existence and positional alignment of the artifacts are checked.
func (v *VectorIndex) Load(docs []corpus.Document) error {
	if v.artifacts == nil {
		return apperrors.CacheMissing(v.EmbeddingsArtifact(), nil)
	}

	var embeddings [][]float32
	if err := v.artifacts.Get(v.EmbeddingsArtifact(), &embeddings); err != nil {
		return err
	}
	var manifest chunkManifest
	if err := v.artifacts.Get(v.MetadataArtifact(), &manifest); err != nil {
		return err
	}
	if len(embeddings) != len(manifest.Chunks) {
		return apperrors.New(apperrors.ErrCodeCorruptIndex,
			fmt.Sprintf("%d embeddings but %d chunk metadata entries", len(embeddings), len(manifest.Chunks)), nil).
			WithSuggestion("Run 'hybridsearch build --force' to rebuild the cache")
	}

	v.mu.Lock()
	v.docmap = corpus.Map(docs)
	v.embeddings = embeddings
	v.chunks = manifest.Chunks
	v.builtFrom = manifest.Documents
	v.loaded = true
	v.mu.Unlock()

	slog.Debug("vector_index_loaded",
		slog.String("splitter", v.splitter.Name()),
		slog.Int("chunks", len(manifest.Chunks)))
	return nil
}

// LoadOrBuild loads the cached index, rebuilding and saving it when force is
// set, the cache is missing, or it was built from a different number of
// documents than docs holds.
func (v *VectorIndex) LoadOrBuild(ctx context.Context, docs []corpus.Document, force bool) (rebuilt bool, err error) {
	if !force {
		err := v.Load(docs)
		switch {
		case err == nil && v.BuiltFrom() == len(docs):
			return false, nil
		case err == nil:
			slog.Info("semantic_cache_stale",
				slog.Int("cached_documents", v.BuiltFrom()),
				slog.Int("corpus_documents", len(docs)))
		case errors.Is(err, apperrors.ErrCacheMissing):
			slog.Info("semantic_cache_missing", slog.String("error", err.Error()))
		default:
			return false, err
		}
	}

	if err := v.Build(ctx, docs); err != nil {
		return false, err
	}
	if v.artifacts != nil {
		if err := v.Save(); err != nil {
			return true, err
		}
	}
	return true, nil
}

type pooled struct {
	score float64
	chunk ChunkMeta
}

// Search embeds the query, scores every chunk by cosine similarity and keeps
// each document's best chunk. Results are ordered by score descending, ties
// by ascending id. A non-positive limit returns every scored document.
func (v *VectorIndex) Search(ctx context.Context, query string, limit int) ([]SemanticHit, error) {
	v.mu.RLock()
	loaded := v.loaded
	v.mu.RUnlock()
	if !loaded {
		return nil, apperrors.NotLoaded("semantic")
	}

	qvec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	best := make(map[int]pooled)
	for i, emb := range v.embeddings {
		if len(emb) != len(qvec) {
			return nil, apperrors.New(apperrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("query has %d dimensions, index has %d", len(qvec), len(emb)), nil).
				WithSuggestion("Rebuild the index with the current embedding model")
		}
		meta := v.chunks[i]
		score := CosineSimilarity(qvec, emb)
		if cur, ok := best[meta.DocumentID]; !ok || score > cur.score {
			best[meta.DocumentID] = pooled{score: score, chunk: meta}
		}
	}

	hits := make([]SemanticHit, 0, len(best))
	for id, p := range best {
		doc, ok := v.docmap[id]
		if !ok {
			continue
		}
		hits = append(hits, SemanticHit{
			ID:          id,
			Title:       doc.Title,
			Description: doc.Snippet(SnippetLength),
			Score:       p.score,
			Chunk:       p.chunk,
			Document:    doc,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Document returns a document from the index's own document map.
func (v *VectorIndex) Document(id int) (corpus.Document, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	doc, ok := v.docmap[id]
	return doc, ok
}

// Len returns the number of documents in the index's document map.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.docmap)
}

// ChunkCount returns the number of embedded chunks.
func (v *VectorIndex) ChunkCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks)
}

// Dimensions returns the width of the stored embeddings, 0 when empty.
func (v *VectorIndex) Dimensions() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.embeddings) == 0 {
		return 0
	}
	return len(v.embeddings[0])
}

// Chunks returns a copy of the chunk metadata in embedding order.
func (v *VectorIndex) Chunks() []ChunkMeta {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]ChunkMeta, len(v.chunks))
	copy(out, v.chunks)
	return out
}

// BuiltFrom returns the corpus size the current embeddings were built from.
func (v *VectorIndex) BuiltFrom() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.builtFrom
}

// Loaded reports whether Build or Load has completed.
func (v *VectorIndex) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either vector has
// zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
