package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzerTokenizer_DefaultStopList(t *testing.T) {
	// Given: the default English analysis chain
	tok, err := NewAnalyzerTokenizer(nil)
	require.NoError(t, err)

	// When: tokenizing text with stopwords, plurals and punctuation
	terms := tok.Tokenize("The Bears are Running!")

	// Then: stopwords are dropped and remaining terms stemmed
	assert.Equal(t, []string{"bear", "run"}, terms)
}

func TestAnalyzerTokenizer_CustomStopwords(t *testing.T) {
	tok, err := NewAnalyzerTokenizer([]string{"bear"})
	require.NoError(t, err)

	assert.Equal(t, []string{"attack"}, tok.Tokenize("Bear attack"))
}

func TestAnalyzerTokenizer_StripsPossessive(t *testing.T) {
	tok, err := NewAnalyzerTokenizer(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"paddington", "bear"}, tok.Tokenize("Paddington's bear"))
}

func TestAnalyzerTokenizer_EmptyInput(t *testing.T) {
	tok, err := NewAnalyzerTokenizer(nil)
	require.NoError(t, err)

	terms := tok.Tokenize("")
	assert.NotNil(t, terms)
	assert.Empty(t, terms)
	assert.Empty(t, tok.Tokenize("... !!!"))
}

func TestTermFrequencies_MissingKeysReadZero(t *testing.T) {
	tf := make(TermFrequencies)
	tf.add(1, "bear")
	tf.add(1, "bear")

	assert.Equal(t, 2, tf.Count(1, "bear"))
	assert.Equal(t, 0, tf.Count(1, "wolf"))
	assert.Equal(t, 0, tf.Count(99, "bear"))
	assert.Equal(t, 1, tf.Len(), "reads must not create entries")
	assert.Equal(t, []string{"bear"}, tf.Terms(1))
}
