package chunk

import (
	"regexp"
	"strings"
)

// sentenceEnd matches terminal punctuation and the whitespace after it.
// RE2 has no lookbehind, so SplitSentences cuts after the punctuation itself.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// SplitSentences splits text after '.', '!' or '?' followed by whitespace.
// Sentences are trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	var sentences []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for _, m := range sentenceEnd.FindAllStringIndex(text, -1) {
		add(text[start : m[0]+1])
		start = m[1]
	}
	add(text[start:])
	return sentences
}

// SplitWords splits text on single spaces, keeping empty fields the way a
// plain separator split does.
func SplitWords(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, " ")
}

// SentenceChunker groups sentences into overlapping chunks.
type SentenceChunker struct {
	Size    int
	Overlap int
}

// NewSentenceChunker returns a chunker with the default size and overlap.
func NewSentenceChunker() SentenceChunker {
	return SentenceChunker{Size: DefaultSentenceChunkSize, Overlap: DefaultSentenceOverlap}
}

// Chunk implements Chunker.
func (c SentenceChunker) Chunk(text string) ([]string, error) {
	return Join(SplitSentences(text), c.Size, c.Overlap)
}

// Name implements Chunker.
func (c SentenceChunker) Name() string { return "sentence" }

// WordChunker groups space-separated words into overlapping chunks.
type WordChunker struct {
	Size    int
	Overlap int
}

// Chunk implements Chunker.
func (c WordChunker) Chunk(text string) ([]string, error) {
	return Join(SplitWords(text), c.Size, c.Overlap)
}

// Name implements Chunker.
func (c WordChunker) Name() string { return "word" }

var (
	_ Chunker = SentenceChunker{}
	_ Chunker = WordChunker{}
)
