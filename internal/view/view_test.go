package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens/trace-console/internal/artifact"
)

func projectionStore() *artifact.Store {
	return artifact.Load([]artifact.RawMessage{
		{Address: "5551234567", Date: "2024-03-01T09:15:00Z", Type: "received", Body: "Pay the customs fee now", IsSuspicious: true, Category: "fraud", SentimentEmoji: "😠"},
		{Address: "5559876543", Date: "2024-03-02T14:05:00Z", Type: "received", Body: "Lunch tomorrow?", Category: "normal"},
		{Address: "5552223333", Date: "2024-03-02T19:45:00Z", Type: "received", Body: "We know where you live", IsSuspicious: true, Category: "threat"},
	}, []artifact.RawCall{
		{Number: "5551234567", Type: "incoming", Date: "2024-03-01T09:30:00Z", Duration: 42},
		{Number: "5559876543", Type: "missed", Date: "2024-03-02T20:00:00Z"},
	}, nil)
}

func TestProjectNoFilterReturnsEverything(t *testing.T) {
	fv := Project(projectionStore(), Filter{})
	assert.Len(t, fv.Rows, 5)
	assert.Equal(t, 5, fv.Total)
}

// The upstream sentiment marker rides along on SMS rows untouched.
func TestProjectCarriesSentimentMarker(t *testing.T) {
	fv := Project(projectionStore(), Filter{Categories: []artifact.Category{artifact.CategoryFraud}})
	require.Len(t, fv.Rows, 1)
	assert.Equal(t, "😠", fv.Rows[0].SentimentEmoji)

	calls := Project(projectionStore(), Filter{Kinds: []RecordKind{KindCall}})
	for _, row := range calls.Rows {
		assert.Empty(t, row.SentimentEmoji)
	}
}

func TestProjectFiltersAreConjunctive(t *testing.T) {
	st := projectionStore()

	// Kind alone.
	fv := Project(st, Filter{Kinds: []RecordKind{KindCall}})
	assert.Len(t, fv.Rows, 2)

	// Kind and suspicious together must both hold; no call is suspicious.
	fv = Project(st, Filter{Kinds: []RecordKind{KindCall}, SuspiciousOnly: true})
	assert.Empty(t, fv.Rows)

	// Category and search together.
	fv = Project(st, Filter{
		Categories: []artifact.Category{artifact.CategoryFraud, artifact.CategoryThreat},
		Search:     "customs",
	})
	require.Len(t, fv.Rows, 1)
	assert.Equal(t, artifact.CategoryFraud, fv.Rows[0].Category)
}

// The filtered result is always a subset of the unfiltered projection, and
// projecting twice with the same filter gives the same rows.
func TestProjectSubsetAndStable(t *testing.T) {
	st := projectionStore()
	all := Project(st, Filter{})
	filtered := Project(st, Filter{SuspiciousOnly: true})

	assert.LessOrEqual(t, len(filtered.Rows), len(all.Rows))
	assert.Equal(t, all.Total, filtered.Total)

	again := Project(st, Filter{SuspiciousOnly: true})
	assert.Equal(t, filtered, again)
}

func TestProjectCategoryNeverMatchesCalls(t *testing.T) {
	fv := Project(projectionStore(), Filter{Categories: []artifact.Category{artifact.CategoryNormal}})
	for _, row := range fv.Rows {
		assert.Equal(t, KindSMS, row.Kind)
	}
}

func TestProjectSearchHighlightsMatches(t *testing.T) {
	fv := Project(projectionStore(), Filter{Search: "555123"})
	require.Len(t, fv.Rows, 2)
	for _, row := range fv.Rows {
		require.Len(t, row.IdentitySpans, 1)
		sp := row.IdentitySpans[0]
		assert.Equal(t, "555123", row.Identity[sp.Start:sp.End])
	}
}

func TestHighlightSpans(t *testing.T) {
	t.Run("case insensitive", func(t *testing.T) {
		spans := HighlightSpans("Pay the FEE for the fee", "fee")
		assert.Equal(t, []Span{{Start: 8, End: 11}, {Start: 20, End: 23}}, spans)
	})

	t.Run("non-overlapping", func(t *testing.T) {
		spans := HighlightSpans("aaaa", "aa")
		assert.Equal(t, []Span{{Start: 0, End: 2}, {Start: 2, End: 4}}, spans)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, HighlightSpans("hello", "xyz"))
	})

	t.Run("empty term", func(t *testing.T) {
		assert.Nil(t, HighlightSpans("hello", ""))
	})

	t.Run("term longer than text", func(t *testing.T) {
		assert.Nil(t, HighlightSpans("hi", "hello"))
	})
}
