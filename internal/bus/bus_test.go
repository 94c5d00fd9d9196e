package bus

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusFallsBackToNull(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	// Empty URL means no event stream at all.
	b := NewBus("", logger)
	_, ok := b.(*NullBus)
	assert.True(t, ok)

	// An unreachable Redis falls back rather than failing startup.
	b = NewBus("redis://127.0.0.1:1", logger)
	_, ok = b.(*NullBus)
	assert.True(t, ok)
}

func TestNullBusOperations(t *testing.T) {
	b := NewNullBus(log.New(io.Discard, "", 0))
	ctx := context.Background()

	require.NoError(t, b.PublishReport(ctx, ReportMessage{
		SnapshotID: "snap-1",
		CaseNumber: "CASE-1",
	}))
	require.NoError(t, b.PublishSession(ctx, SessionMessage{
		SessionID: "sess-1",
		Messages:  10,
	}))
	require.NoError(t, b.HealthCheck(ctx))
	require.NoError(t, b.Close())
}
