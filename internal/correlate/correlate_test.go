package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens/trace-console/internal/artifact"
)

func TestCorrelateGroupsAcrossSources(t *testing.T) {
	st := artifact.Load([]artifact.RawMessage{
		{Address: "+1 (555) 123-4567", Date: "2024-03-01T09:15:00Z", Type: "received", Body: "pay the fee"},
		{Address: "5551234567", Date: "2024-03-01T09:20:00Z", Type: "sent", Body: "who is this"},
		{Address: "5559876543", Date: "2024-03-02T14:05:00Z", Type: "received", Body: "lunch?"},
	}, []artifact.RawCall{
		{Number: "555-123-4567", Type: "incoming", Date: "2024-03-01T09:30:00Z", Duration: 42},
		{Number: "5550001111", Type: "missed", Date: "2024-03-03T08:00:00Z"},
	}, nil)

	records := Correlate(st)
	require.Len(t, records, 3)

	byID := map[string]Record{}
	for _, r := range records {
		byID[r.Identity] = r
	}

	// Two message renderings plus one call collapse onto one key.
	r := byID["5551234567"]
	assert.Equal(t, 2, r.SMSCount)
	assert.Len(t, r.Messages, 2)
	assert.Len(t, r.Calls, 1)

	// Keys seen in a single source still produce a record.
	assert.Len(t, byID["5559876543"].Calls, 0)
	assert.Equal(t, 1, byID["5559876543"].SMSCount)
	assert.Len(t, byID["5550001111"].Calls, 1)
	assert.Equal(t, 0, byID["5550001111"].SMSCount)
}

func TestCorrelateUnknownIdentity(t *testing.T) {
	st := artifact.Load([]artifact.RawMessage{
		{Address: "", Date: "2024-03-01T09:00:00Z", Type: "received", Body: "anonymous"},
		{Address: "n/a", Date: "2024-03-01T10:00:00Z", Type: "received", Body: "also anonymous"},
	}, nil, nil)

	records := Correlate(st)
	require.Len(t, records, 1)
	assert.Equal(t, artifact.UnknownIdentity, records[0].Identity)
	assert.Equal(t, 2, records[0].SMSCount)
}

func TestCorrelateOrderingDeterministic(t *testing.T) {
	st := artifact.Load([]artifact.RawMessage{
		{Address: "5552223333", Date: "2024-03-02T12:00:00Z", Type: "received"},
		{Address: "5551112222", Date: "2024-03-01T12:00:00Z", Type: "received"},
		{Address: "5551112222", Date: "2024-02-28T12:00:00Z", Type: "sent"},
	}, nil, nil)

	records := Correlate(st)
	require.Len(t, records, 2)

	// Records ascend by identity key.
	assert.Equal(t, "5551112222", records[0].Identity)
	assert.Equal(t, "5552223333", records[1].Identity)

	// Messages inside a record ascend by timestamp.
	msgs := records[0].Messages
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Timestamp.Before(msgs[1].Timestamp))

	// A second run over the same store yields the same ordering.
	again := Correlate(st)
	assert.Equal(t, records, again)
}

func TestCorrelateEmptyStore(t *testing.T) {
	records := Correlate(artifact.Load(nil, nil, nil))
	assert.Empty(t, records)
}
