package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens/trace-console/internal/artifact"
	"github.com/tracelens/trace-console/internal/timeline"
	"github.com/tracelens/trace-console/internal/view"
)

// stubSource returns a fixed bundle, or an error until cleared.
type stubSource struct {
	bundle *artifact.Bundle
	err    error
	calls  int
}

func (s *stubSource) Artifacts(ctx context.Context) (*artifact.Bundle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bundle, nil
}

func sampleBundle() *artifact.Bundle {
	return &artifact.Bundle{
		Messages: []artifact.RawMessage{
			{Address: "5551234567", Date: "2024-03-01T09:15:00Z", Type: "received", Body: "fee due", IsSuspicious: true, Category: "fraud"},
			{Address: "5559876543", Date: "2024-03-02T14:05:00Z", Type: "received", Body: "lunch?"},
		},
		Calls: []artifact.RawCall{
			{Number: "5551234567", Type: "incoming", Date: "2024-03-01T09:30:00Z", Duration: 42},
		},
		Contacts: []artifact.RawContact{
			{Name: "Alex Chen", PhoneNumber: "5559876543"},
		},
		DeviceName: "Pixel 7",
	}
}

func TestSessionLifecycle(t *testing.T) {
	src := &stubSource{bundle: sampleBundle()}
	sess := New(src, nil, timeline.Day, nil)
	ctx := context.Background()

	assert.Equal(t, StateIdle, sess.State())
	assert.NotEmpty(t, sess.ID())

	// Projections before load fail.
	_, err := sess.Correlation()
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, sess.Load(ctx))
	assert.Equal(t, StateLoaded, sess.State())

	st, err := sess.Store()
	require.NoError(t, err)
	assert.Equal(t, "Pixel 7", st.DeviceName)
	assert.Len(t, st.Messages, 2)

	records, err := sess.Correlation()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	tl, err := sess.Timeline()
	require.NoError(t, err)
	assert.Len(t, tl.Buckets, 2)
}

func TestSessionLoadFailureAndRetry(t *testing.T) {
	src := &stubSource{err: errors.New("backend unreachable")}
	sess := New(src, nil, timeline.Day, nil)
	ctx := context.Background()

	err := sess.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, StateFailed, sess.State())

	// The failure reason survives on projection attempts.
	_, perr := sess.Correlation()
	assert.ErrorIs(t, perr, ErrNotLoaded)
	assert.Contains(t, perr.Error(), "backend unreachable")

	// Retry after the source recovers.
	src.err = nil
	src.bundle = sampleBundle()
	require.NoError(t, sess.Load(ctx))
	assert.Equal(t, StateLoaded, sess.State())
}

func TestSessionReload(t *testing.T) {
	src := &stubSource{bundle: sampleBundle()}
	sess := New(src, nil, timeline.Day, nil)
	ctx := context.Background()

	require.NoError(t, sess.Load(ctx))
	require.NoError(t, sess.Load(ctx))
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, StateLoaded, sess.State())
}

// Filtering is a pure re-projection; the session never leaves Loaded.
func TestSessionProjectKeepsState(t *testing.T) {
	src := &stubSource{bundle: sampleBundle()}
	sess := New(src, nil, timeline.Day, nil)
	require.NoError(t, sess.Load(context.Background()))

	fv, err := sess.Project(view.Filter{SuspiciousOnly: true})
	require.NoError(t, err)
	assert.Len(t, fv.Rows, 1)
	assert.Equal(t, StateLoaded, sess.State())
}

func TestSessionExportDeterministic(t *testing.T) {
	src := &stubSource{bundle: sampleBundle()}
	sess := New(src, nil, timeline.Day, nil)
	require.NoError(t, sess.Load(context.Background()))

	first, err := sess.ExportCorrelation()
	require.NoError(t, err)
	second, err := sess.ExportCorrelation()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, StateLoaded, sess.State())

	tl1, err := sess.ExportTimeline()
	require.NoError(t, err)
	tl2, err := sess.ExportTimeline()
	require.NoError(t, err)
	assert.Equal(t, tl1, tl2)
}

func TestSessionURLAnalysis(t *testing.T) {
	bundle := sampleBundle()
	bundle.Messages = append(bundle.Messages, artifact.RawMessage{
		Address: "5550001111", Date: "2024-03-03T08:00:00Z", Type: "received",
		Body: "claim your prize at http://win.example/now", IsSuspicious: true,
	})
	src := &stubSource{bundle: bundle}
	sess := New(src, nil, timeline.Day, nil)
	require.NoError(t, sess.Load(context.Background()))

	res, err := sess.URLAnalysis()
	require.NoError(t, err)
	require.Len(t, res.SpamURLs, 1)
	assert.Empty(t, res.NonSpamURLs)
	assert.Contains(t, res.SpamURLs[0].URLs, "http://win.example/now")
}
