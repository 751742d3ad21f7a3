package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

type moviesFile struct {
	Movies []Document `json:"movies"`
}

// LoadMovies reads a {"movies": [...]} dataset and checks id uniqueness.
func LoadMovies(path string) ([]Document, error) {
	data, err := readDataset(path)
	if err != nil {
		return nil, err
	}

	var f moviesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeFileCorrupt,
			fmt.Sprintf("parse movies dataset %s", path), err)
	}
	if err := Validate(f.Movies); err != nil {
		return nil, err
	}
	return f.Movies, nil
}

// Validate rejects corpora with duplicate document ids.
func Validate(docs []Document) error {
	seen := make(map[int]struct{}, len(docs))
	for _, d := range docs {
		if _, dup := seen[d.ID]; dup {
			return apperrors.New(apperrors.ErrCodeDuplicateDocument,
				fmt.Sprintf("duplicate document id %d", d.ID), nil).
				WithDetail("id", fmt.Sprintf("%d", d.ID))
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// TestCase is one golden evaluation query with the titles judged relevant.
type TestCase struct {
	Query        string   `json:"query"`
	RelevantDocs []string `json:"relevant_docs"`
}

type goldenFile struct {
	TestCases []TestCase `json:"test_cases"`
}

// LoadGoldenSet reads a {"test_cases": [...]} evaluation dataset.
func LoadGoldenSet(path string) ([]TestCase, error) {
	data, err := readDataset(path)
	if err != nil {
		return nil, err
	}

	var f goldenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeFileCorrupt,
			fmt.Sprintf("parse golden dataset %s", path), err)
	}
	return f.TestCases, nil
}

// LoadStopwords reads one stopword per line, skipping blank lines.
func LoadStopwords(path string) ([]string, error) {
	data, err := readDataset(path)
	if err != nil {
		return nil, err
	}

	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		if w := strings.TrimSpace(line); w != "" {
			words = append(words, w)
		}
	}
	return words, nil
}

func readDataset(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.ErrCodeDatasetNotFound,
				fmt.Sprintf("dataset %s not found", path), err).
				WithSuggestion("Set the data section of .hybridsearch.yaml or HYBRIDSEARCH_MOVIES")
		}
		return nil, apperrors.New(apperrors.ErrCodeFilePermission,
			fmt.Sprintf("read dataset %s", path), err)
	}
	return data, nil
}
