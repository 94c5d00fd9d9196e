package view

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens/trace-console/internal/correlate"
	"github.com/tracelens/trace-console/internal/report"
	"github.com/tracelens/trace-console/internal/timeline"
)

// Rendering the same inputs twice must produce byte-identical documents.
func TestRenderDeterministic(t *testing.T) {
	st := projectionStore()
	records := correlate.Correlate(st)
	tl := timeline.Aggregate(st, timeline.Day)

	assert.Equal(t, RenderCorrelation(records), RenderCorrelation(records))
	assert.Equal(t, RenderTimeline(tl), RenderTimeline(tl))

	snap := &report.Snapshot{
		ID:           "snap-1",
		CaseNumber:   "CASE-2024-001",
		Investigator: "J. Doe",
		Remark:       "Initial triage",
		DeviceName:   "Pixel 7",
		SMS:          report.ComputeSMSStats(st),
		Calls:        report.ComputeCallStats(st),
		Contacts:     report.ComputeContactStats(st),
		CreatedAt:    time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, RenderSnapshot(snap), RenderSnapshot(snap))
}

func TestRenderCorrelationContent(t *testing.T) {
	st := projectionStore()
	doc := string(RenderCorrelation(correlate.Correlate(st)))

	assert.Contains(t, doc, "DATA CORRELATION")
	assert.Contains(t, doc, "5551234567")
	assert.Contains(t, doc, "Pay the customs fee now")

	// Identity blocks appear in ascending key order.
	first := strings.Index(doc, "5551234567")
	second := strings.Index(doc, "5559876543")
	require.Greater(t, first, -1)
	require.Greater(t, second, -1)
	assert.Less(t, first, second)
}

func TestRenderCorrelationEmptyMessageSide(t *testing.T) {
	records := []correlate.Record{{Identity: "5550001111"}}
	doc := string(RenderCorrelation(records))
	assert.Contains(t, doc, "No SMS messages available.")
}

func TestRenderTimelineContent(t *testing.T) {
	st := projectionStore()
	doc := string(RenderTimeline(timeline.Aggregate(st, timeline.Day)))

	assert.Contains(t, doc, "TIMELINE ANALYSIS")
	assert.Contains(t, doc, "2024-03-01")
	assert.Contains(t, doc, "2024-03-02")
}

func TestRenderSnapshotContent(t *testing.T) {
	st := projectionStore()
	snap := &report.Snapshot{
		CaseNumber:   "CASE-2024-001",
		Investigator: "J. Doe",
		Remark:       "Initial triage",
		SMS:          report.ComputeSMSStats(st),
		Calls:        report.ComputeCallStats(st),
		Contacts:     report.ComputeContactStats(st),
		CreatedAt:    time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
	doc := string(RenderSnapshot(snap))

	assert.Contains(t, doc, "INVESTIGATION REPORT")
	assert.Contains(t, doc, "CASE-2024-001")
	assert.Contains(t, doc, "J. Doe")
	assert.Contains(t, doc, "2024-03-05 10:00:00 UTC")
}
