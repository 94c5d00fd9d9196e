package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens/trace-console/internal/api"
	"github.com/tracelens/trace-console/internal/ingest"
	"github.com/tracelens/trace-console/internal/report"
	"github.com/tracelens/trace-console/internal/session"
	"github.com/tracelens/trace-console/internal/store"
	"github.com/tracelens/trace-console/internal/timeline"
	"github.com/tracelens/trace-console/internal/view"
)

// TestDumpToReportWorkflow drives the full pipeline: a dump folder is loaded
// into a session, correlated and bucketed, served over the API, frozen into a
// report snapshot, and exported deterministically.
func TestDumpToReportWorkflow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.MessagesFile, `[
		{"address": "+1 (555) 123-4567", "date": "2024-03-01T09:15:00Z", "type": "received", "body": "Your package is held, pay at http://pay-fee.example", "isSuspicious": true, "category": "fraud"},
		{"address": "5551234567", "date": "2024-03-01T09:20:00Z", "type": "sent", "body": "Who is this?", "category": "normal"},
		{"address": "555-987-6543", "date": "2024-03-02T14:05:00Z", "type": "received", "body": "Lunch tomorrow?", "contactName": "Alex Chen", "category": "normal"},
		{"address": "5552223333", "date": "not-a-date", "type": "received", "body": "broken clock", "category": "normal"},
		{"address": "5554445555", "date": "", "type": "received", "body": "no clock at all", "category": "normal"}
	]`)
	writeFile(t, dir, ingest.CallsFile, `[
		{"number": "5551234567", "type": "incoming", "date": "2024-03-01T09:30:00Z", "duration": 42},
		{"number": "+1 (555) 987-6543", "type": "outgoing", "date": "2024-03-02T14:10:00Z", "duration": 180},
		{"number": "5550001111", "type": "missed", "date": "2024-03-02T20:00:00Z"}
	]`)
	writeFile(t, dir, ingest.ContactsFile, `[
		{"name": "Alex Chen", "phoneNumber": "+1 (555) 987-6543"}
	]`)
	writeFile(t, dir, ingest.DeviceFile, `{"deviceName": "Pixel 7"}`)

	logger := log.New(io.Discard, "", 0)

	source, err := ingest.NewFolderSource(ingest.FolderOptions{Dir: dir, Logger: logger})
	require.NoError(t, err)

	sess := session.New(source, nil, timeline.Day, logger)
	ctx := context.Background()
	require.NoError(t, sess.Load(ctx))

	// Validation: the empty-date record is dropped, the unparseable one kept.
	st, err := sess.Store()
	require.NoError(t, err)
	assert.Len(t, st.Messages, 4)
	assert.Equal(t, 1, st.Summary.DroppedMessages)
	assert.Equal(t, 1, st.Summary.InvalidTimestamps)
	assert.Equal(t, "Pixel 7", st.DeviceName)

	// Correlation: both renderings of 555-123-4567 share one record.
	records, err := sess.Correlation()
	require.NoError(t, err)
	ids := map[string]int{}
	for _, r := range records {
		ids[r.Identity] = r.SMSCount + len(r.Calls)
	}
	assert.Equal(t, 3, ids["5551234567"])
	assert.Equal(t, 2, ids["5559876543"])

	// Timeline: the unparseable record is excluded and counted, never bucketed.
	tl, err := sess.Timeline()
	require.NoError(t, err)
	require.Len(t, tl.Buckets, 2)
	assert.Equal(t, 1, tl.Unparseable)
	total := tl.Unparseable
	for _, b := range tl.Buckets {
		total += b.TotalMessages + b.TotalCalls
	}
	assert.Equal(t, len(st.Messages)+len(st.Calls), total)

	// Filtering with highlights over the same loaded records.
	fv, err := sess.Project(view.Filter{Search: "lunch"})
	require.NoError(t, err)
	require.Len(t, fv.Rows, 1)
	assert.NotEmpty(t, fv.Rows[0].BodySpans)

	// Serve the session over the API and freeze a report snapshot.
	reports, err := store.NewStore(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer reports.Close()

	synth := report.NewSynthesizer(reports, nil, logger)
	srv, err := api.NewServer(sess, synth, api.Options{Logger: logger})
	require.NoError(t, err)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/short-report",
		strings.NewReader(`{"caseNumber": "CASE-2024-001", "investigator": "J. Doe", "remark": "Initial triage"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var snap report.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 4, snap.SMS.TotalMessages)
	assert.Equal(t, 1, snap.SMS.SuspiciousMessages)
	assert.Equal(t, 3, snap.Calls.TotalCalls)
	assert.Equal(t, 1, snap.Contacts.TotalContacts)

	// The same case number cannot hold a second report.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/short-report",
		strings.NewReader(`{"caseNumber": "CASE-2024-001", "remark": "again"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The snapshot survives lookup by case number.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/find-report/CASE-2024-001", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var found struct {
		Report report.Snapshot `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Equal(t, snap.ID, found.Report.ID)

	// Saving and looking up the report each left an audit entry.
	trail, err := reports.GetAuditTrail(ctx, "CASE-2024-001", 10)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	actions := []string{trail[0].Action, trail[1].Action}
	assert.ElementsMatch(t, []string{store.ActionReportCreated, store.ActionReportViewed}, actions)

	// Exports are byte-identical across repeated renders.
	first, err := sess.ExportCorrelation()
	require.NoError(t, err)
	second, err := sess.ExportCorrelation()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), "5551234567")
}

// TestReloadAfterDumpChange covers load, re-extraction, reload.
func TestReloadAfterDumpChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.MessagesFile, `[{"address": "5551234567", "date": "2024-03-01T09:15:00Z", "type": "received", "body": "one"}]`)

	logger := log.New(io.Discard, "", 0)
	source, err := ingest.NewFolderSource(ingest.FolderOptions{Dir: dir, Logger: logger})
	require.NoError(t, err)

	sess := session.New(source, nil, timeline.Day, logger)
	require.NoError(t, sess.Load(context.Background()))

	st, err := sess.Store()
	require.NoError(t, err)
	require.Len(t, st.Messages, 1)

	writeFile(t, dir, ingest.MessagesFile, `[
		{"address": "5551234567", "date": "2024-03-01T09:15:00Z", "type": "received", "body": "one"},
		{"address": "5559876543", "date": "2024-03-02T10:00:00Z", "type": "received", "body": "two"}
	]`)

	require.NoError(t, sess.Load(context.Background()))
	st, err = sess.Store()
	require.NoError(t, err)
	assert.Len(t, st.Messages, 2)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}
