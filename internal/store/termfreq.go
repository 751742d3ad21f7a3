package store

import "sort"

// TermFrequencies maps document id to per-term occurrence counts.
// Reads of missing documents or terms return zero and never create entries.
type TermFrequencies map[int]map[string]int

// Count returns how often term occurs in the document.
func (tf TermFrequencies) Count(docID int, term string) int {
	return tf[docID][term]
}

// Terms returns the distinct terms of a document in sorted order.
func (tf TermFrequencies) Terms(docID int) []string {
	counts := tf[docID]
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Len returns the number of documents with at least one counted term.
func (tf TermFrequencies) Len() int {
	return len(tf)
}

func (tf TermFrequencies) add(docID int, term string) {
	counts, ok := tf[docID]
	if !ok {
		counts = make(map[string]int)
		tf[docID] = counts
	}
	counts[term]++
}
