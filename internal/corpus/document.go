// Package corpus defines the document model and loads movie datasets,
// golden evaluation sets and stopword lists from disk.
package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Document is a single searchable record.
// Fields beyond id, title and description are preserved in Extra and
// written back unchanged by MarshalJSON.
type Document struct {
	ID          int
	Title       string
	Description string
	Extra       map[string]json.RawMessage
}

var knownFields = map[string]bool{"id": true, "title": true, "description": true}

// UnmarshalJSON decodes the known fields and keeps the rest verbatim.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var doc Document
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &doc.ID); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
	}
	if v, ok := raw["title"]; ok {
		if err := json.Unmarshal(v, &doc.Title); err != nil {
			return fmt.Errorf("decode title: %w", err)
		}
	}
	if v, ok := raw["description"]; ok {
		if err := json.Unmarshal(v, &doc.Description); err != nil {
			return fmt.Errorf("decode description: %w", err)
		}
	}
	for k, v := range raw {
		if knownFields[k] {
			continue
		}
		if doc.Extra == nil {
			doc.Extra = make(map[string]json.RawMessage)
		}
		doc.Extra[k] = v
	}

	*d = doc
	return nil
}

// MarshalJSON encodes the document with its extra fields in key order.
func (d Document) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	fmt.Fprintf(&buf, "%d", d.ID)
	for _, field := range []struct {
		name  string
		value string
	}{{"title", d.Title}, {"description", d.Description}} {
		enc, err := json.Marshal(field.value)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, `,%q:`, field.name)
		buf.Write(enc)
	}
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(d.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Text returns the title and description joined by a space, the text the
// lexical index tokenizes.
func (d Document) Text() string {
	return d.Title + " " + d.Description
}

// Snippet returns the description truncated to n runes.
func (d Document) Snippet(n int) string {
	runes := []rune(d.Description)
	if len(runes) <= n {
		return d.Description
	}
	return string(runes[:n])
}

// Map indexes documents by id.
func Map(docs []Document) map[int]Document {
	m := make(map[int]Document, len(docs))
	for _, d := range docs {
		m[d.ID] = d
	}
	return m
}
