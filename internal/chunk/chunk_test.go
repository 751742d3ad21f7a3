package chunk

import (
	"errors"
	"fmt"
	"math"
	"testing"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Sentence splitting
// =============================================================================

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"terminal punctuation", "A bear. It attacks! Why? Nobody knows.", []string{"A bear.", "It attacks!", "Why?", "Nobody knows."}},
		{"no punctuation", "just one clause", []string{"just one clause"}},
		{"punctuation without whitespace", "Mr.Smith went to v1.2 today", []string{"Mr.Smith went to v1.2 today"}},
		{"newline separates", "First.\nSecond.", []string{"First.", "Second."}},
		{"surrounding whitespace trimmed", "  Hello there.   General Kenobi.  ", []string{"Hello there.", "General Kenobi."}},
		{"empty", "", nil},
		{"whitespace only", "   \n ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestSplitWords_SplitsOnSpaces(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "", "c"}, SplitWords("a b  c"))
	assert.Nil(t, SplitWords(""))
}

// =============================================================================
// Grouping
// =============================================================================

func sentences(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("s%d.", i)
	}
	return out
}

func TestGroup_FixedFixtures(t *testing.T) {
	// Given: five sentences, size 4, overlap 1
	groups, err := Group(sentences(5), 4, 1)

	// Then: the second chunk repeats the last sentence of the first
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"s0.", "s1.", "s2.", "s3."},
		{"s3.", "s4."},
	}, groups)

	groups, err = Group(sentences(8), 4, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"s0.", "s1.", "s2.", "s3."},
		{"s4.", "s5.", "s6.", "s7."},
	}, groups)

	groups, err = Group(sentences(4), 4, 1)
	require.NoError(t, err)
	assert.Len(t, groups, 1, "exactly size sentences fit one chunk")

	groups, err = Group(sentences(8), 4, 1)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"s6.", "s7."}, groups[2], "last chunk may be shorter")
}

func TestGroup_ZeroBlocksYieldZeroChunks(t *testing.T) {
	groups, err := Group(nil, 4, 1)

	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroup_ReconstructsSequenceAndMatchesCount(t *testing.T) {
	for _, p := range []struct{ size, overlap int }{{4, 1}, {3, 0}, {2, 1}, {5, 2}, {1, 0}} {
		for n := 1; n <= 20; n++ {
			t.Run(fmt.Sprintf("c%d_o%d_s%d", p.size, p.overlap, n), func(t *testing.T) {
				input := sentences(n)

				groups, err := Group(input, p.size, p.overlap)
				require.NoError(t, err)

				// Dropping the repeated prefix of every later chunk restores the input.
				var rebuilt []string
				for i, g := range groups {
					assert.LessOrEqual(t, len(g), p.size)
					if i == 0 {
						rebuilt = append(rebuilt, g...)
						continue
					}
					rebuilt = append(rebuilt, g[p.overlap:]...)
				}
				assert.Equal(t, input, rebuilt)

				want := int(math.Ceil(float64(max(n-p.overlap, 1)) / float64(p.size-p.overlap)))
				assert.Equal(t, want, len(groups))
			})
		}
	}
}

func TestGroup_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 3, -1},
		{"overlap equals size", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Group(sentences(3), tt.size, tt.overlap)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidChunking, apperrors.GetCode(err))
		})
	}
}

func TestGroup_DoesNotAliasNextChunk(t *testing.T) {
	groups, err := Group(sentences(5), 4, 1)
	require.NoError(t, err)

	groups[0] = append(groups[0], "extra")

	assert.Equal(t, "s3.", groups[1][0])
}

// =============================================================================
// Chunkers
// =============================================================================

func TestSentenceChunker_Chunk(t *testing.T) {
	text := "One. Two. Three. Four. Five."

	chunks, err := NewSentenceChunker().Chunk(text)

	require.NoError(t, err)
	assert.Equal(t, []string{"One. Two. Three. Four.", "Four. Five."}, chunks)
}

func TestSentenceChunker_EmptyTextYieldsNoChunks(t *testing.T) {
	chunks, err := NewSentenceChunker().Chunk("  ")

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestWordChunker_Chunk(t *testing.T) {
	chunks, err := WordChunker{Size: 3, Overlap: 1}.Chunk("a b c d e")

	require.NoError(t, err)
	assert.Equal(t, []string{"a b c", "c d e"}, chunks)
}

func TestWordChunker_InvalidOverlap(t *testing.T) {
	_, err := WordChunker{Size: 2, Overlap: 2}.Chunk("a b c")

	assert.True(t, errors.Is(err, &apperrors.SearchError{Code: apperrors.ErrCodeInvalidChunking}))
}
