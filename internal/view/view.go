// Package view converts engine structures into tabular, searchable,
// filterable view models and into fixed-layout exportable documents.
package view

import (
	"time"

	"github.com/tracelens/trace-console/internal/artifact"
)

// RecordKind distinguishes the two record streams in a unified row listing.
type RecordKind string

const (
	KindSMS  RecordKind = "sms"
	KindCall RecordKind = "call"
)

// Span is a half-open byte range [Start, End) to highlight in a field.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Row is one record projected for display. Highlight spans cover every
// non-overlapping case-insensitive occurrence of the active search term in
// the textual fields (identity, body).
type Row struct {
	Kind           RecordKind        `json:"kind"`
	Identity       string            `json:"identity"`
	Timestamp      time.Time         `json:"timestamp"`
	TimeValid      bool              `json:"timeValid"`
	Direction      string            `json:"direction"`
	Body           string            `json:"body,omitempty"`
	Category       artifact.Category `json:"category,omitempty"`
	Suspicious     bool              `json:"suspicious,omitempty"`
	SentimentEmoji string            `json:"sentimentEmoji,omitempty"`
	Duration       int               `json:"duration,omitempty"`
	ContactName    string            `json:"contactName,omitempty"`
	IdentitySpans  []Span            `json:"identitySpans,omitempty"`
	BodySpans      []Span            `json:"bodySpans,omitempty"`
}

// Filter holds the active predicates. All active predicates must hold for a
// row to be included (conjunctive filtering); zero values deactivate a
// predicate.
type Filter struct {
	Kinds          []RecordKind        `json:"kinds,omitempty"`
	Categories     []artifact.Category `json:"categories,omitempty"`
	SuspiciousOnly bool                `json:"suspiciousOnly,omitempty"`
	Search         string              `json:"search,omitempty"`
}

// FilteredView is the result of projecting a store through a filter.
type FilteredView struct {
	Rows   []Row  `json:"rows"`
	Total  int    `json:"total"`
	Search string `json:"search,omitempty"`
}

// Project builds the filtered, highlighted view model for a store. It is a
// pure re-projection: the store is never modified and no I/O happens, so
// search and filter changes never re-enter a loading state.
func Project(st *artifact.Store, f Filter) FilteredView {
	rows := make([]Row, 0, len(st.Messages)+len(st.Calls))

	for i := range st.Messages {
		m := &st.Messages[i]
		row := Row{
			Kind:           KindSMS,
			Identity:       m.Identity,
			Timestamp:      m.Timestamp,
			TimeValid:      m.TimeValid,
			Direction:      string(m.Direction),
			Body:           m.Body,
			Category:       m.Category,
			Suspicious:     m.Suspicious,
			SentimentEmoji: m.SentimentEmoji,
			ContactName:    m.ContactName,
		}
		if f.matches(&row) {
			highlightRow(&row, f.Search)
			rows = append(rows, row)
		}
	}

	for i := range st.Calls {
		c := &st.Calls[i]
		row := Row{
			Kind:      KindCall,
			Identity:  c.Identity,
			Timestamp: c.Timestamp,
			TimeValid: c.TimeValid,
			Direction: string(c.Direction),
			Duration:  c.Duration,
		}
		if f.matches(&row) {
			highlightRow(&row, f.Search)
			rows = append(rows, row)
		}
	}

	total := len(st.Messages) + len(st.Calls)
	return FilteredView{Rows: rows, Total: total, Search: f.Search}
}

// matches applies every active predicate; a row survives only if all hold.
func (f Filter) matches(row *Row) bool {
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, row.Kind) {
		return false
	}
	if len(f.Categories) > 0 {
		if row.Kind != KindSMS || !containsCategory(f.Categories, row.Category) {
			return false
		}
	}
	if f.SuspiciousOnly && !row.Suspicious {
		return false
	}
	if f.Search != "" {
		if !containsFold(row.Identity, f.Search) && !containsFold(row.Body, f.Search) {
			return false
		}
	}
	return true
}

func highlightRow(row *Row, term string) {
	if term == "" {
		return
	}
	row.IdentitySpans = HighlightSpans(row.Identity, term)
	row.BodySpans = HighlightSpans(row.Body, term)
}

// HighlightSpans returns the byte ranges of every non-overlapping
// case-insensitive occurrence of term in text, left to right. Case folding is
// ASCII-only so the returned offsets are always valid byte positions in text.
func HighlightSpans(text, term string) []Span {
	if term == "" || text == "" || len(term) > len(text) {
		return nil
	}
	var spans []Span
	for i := 0; i+len(term) <= len(text); {
		if equalFoldASCII(text[i:i+len(term)], term) {
			spans = append(spans, Span{Start: i, End: i + len(term)})
			i += len(term)
			continue
		}
		i++
	}
	return spans
}

func containsFold(text, term string) bool {
	return len(HighlightSpans(text, term)) > 0
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := lowerASCII(a[i]), lowerASCII(b[i])
		if ca != cb {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func containsKind(kinds []RecordKind, k RecordKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func containsCategory(cats []artifact.Category, c artifact.Category) bool {
	for _, cat := range cats {
		if cat == c {
			return true
		}
	}
	return false
}
