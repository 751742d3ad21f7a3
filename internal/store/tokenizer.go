package store

import (
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/analysis/tokenmap"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	analyzerName     = "hybridsearch_text"
	stopTokenMapName = "hybridsearch_stop_map"
	stopFilterName   = "hybridsearch_stop"
)

// AnalyzerTokenizer tokenizes with a bleve analysis chain: unicode word
// segmentation, possessive stripping, lowercasing, stopword removal and
// Porter stemming.
type AnalyzerTokenizer struct {
	analyzer analysis.Analyzer
}

var _ Tokenizer = (*AnalyzerTokenizer)(nil)

// NewAnalyzerTokenizer builds the analysis chain. A nil or empty stopword list
// selects bleve's English stop list.
func NewAnalyzerTokenizer(stopwords []string) (*AnalyzerTokenizer, error) {
	cache := registry.NewCache()

	stopFilter := en.StopName
	if len(stopwords) > 0 {
		tokens := make([]interface{}, len(stopwords))
		for i, w := range stopwords {
			tokens[i] = w
		}
		if _, err := cache.DefineTokenMap(stopTokenMapName, map[string]interface{}{
			"type":   tokenmap.Name,
			"tokens": tokens,
		}); err != nil {
			return nil, fmt.Errorf("define stopword map: %w", err)
		}
		if _, err := cache.DefineTokenFilter(stopFilterName, map[string]interface{}{
			"type":           stop.Name,
			"stop_token_map": stopTokenMapName,
		}); err != nil {
			return nil, fmt.Errorf("define stopword filter: %w", err)
		}
		stopFilter = stopFilterName
	}

	analyzer, err := cache.DefineAnalyzer(analyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			en.PossessiveName,
			lowercase.Name,
			stopFilter,
			porter.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("define analyzer: %w", err)
	}

	return &AnalyzerTokenizer{analyzer: analyzer}, nil
}

// Tokenize implements Tokenizer.
func (t *AnalyzerTokenizer) Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	stream := t.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) > 0 {
			terms = append(terms, string(tok.Term))
		}
	}
	return terms
}
