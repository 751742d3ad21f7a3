package corpus

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Document JSON
// =============================================================================

func TestDocument_UnmarshalJSON_PreservesExtraFields(t *testing.T) {
	// Given: a record with a field outside the document model
	input := `{"id": 7, "title": "Jaws", "description": "A shark.", "year": 1975, "tags": ["sea"]}`

	// When: decoding and re-encoding
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(input), &doc))
	out, err := json.Marshal(doc)
	require.NoError(t, err)

	// Then: known fields are typed and extras survive untouched
	assert.Equal(t, 7, doc.ID)
	assert.Equal(t, "Jaws", doc.Title)
	assert.Equal(t, "A shark.", doc.Description)
	assert.JSONEq(t, input, string(out))
}

func TestDocument_Snippet_TruncatesByRune(t *testing.T) {
	doc := Document{Description: "éléphant rose"}

	assert.Equal(t, "élé", doc.Snippet(3))
	assert.Equal(t, "éléphant rose", doc.Snippet(100))
}

func TestDocument_Text_JoinsTitleAndDescription(t *testing.T) {
	assert.Equal(t, "Up A house flies.", Document{Title: "Up", Description: "A house flies."}.Text())
}

// =============================================================================
// Loaders
// =============================================================================

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMovies_ReadsDataset(t *testing.T) {
	path := writeFile(t, "movies.json", `{"movies": [
		{"id": 1, "title": "Bear Attack", "description": "A bear attacks."},
		{"id": 2, "title": "Paddington Bear", "description": "A polite bear."}
	]}`)

	docs, err := LoadMovies(path)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Paddington Bear", docs[1].Title)
	assert.Len(t, Map(docs), 2)
}

func TestLoadMovies_RejectsDuplicateIDs(t *testing.T) {
	path := writeFile(t, "movies.json", `{"movies": [{"id": 1, "title": "A"}, {"id": 1, "title": "B"}]}`)

	_, err := LoadMovies(path)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDuplicateDocument, apperrors.GetCode(err))
}

func TestLoadMovies_MissingFile(t *testing.T) {
	_, err := LoadMovies(filepath.Join(t.TempDir(), "absent.json"))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatasetNotFound, apperrors.GetCode(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadGoldenSet_ReadsCases(t *testing.T) {
	path := writeFile(t, "golden.json", `{"test_cases": [{"query": "cute bear", "relevant_docs": ["Paddington"]}]}`)

	cases, err := LoadGoldenSet(path)

	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "cute bear", cases[0].Query)
	assert.Equal(t, []string{"Paddington"}, cases[0].RelevantDocs)
}

func TestLoadStopwords_SkipsBlankLines(t *testing.T) {
	path := writeFile(t, "stopwords.txt", "the\n\n  a \nof\n")

	words, err := LoadStopwords(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"the", "a", "of"}, words)
}
