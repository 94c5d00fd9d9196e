package urlscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens/trace-console/internal/artifact"
)

func TestScanSplitsBySuspiciousFlag(t *testing.T) {
	st := artifact.Load([]artifact.RawMessage{
		{Address: "5551234567", Date: "2024-03-01T09:15:00Z", Type: "received",
			Body: "pay at http://pay-fee.example/now", IsSuspicious: true},
		{Address: "5559876543", Date: "2024-03-02T14:05:00Z", Type: "received",
			Body: "menu is at https://cafe.example/menu and www.cafe.example"},
		{Address: "5552223333", Date: "2024-03-02T19:45:00Z", Type: "received",
			Body: "no links here"},
	}, nil, nil)

	res := Scan(st)

	require.Len(t, res.SpamURLs, 1)
	assert.Equal(t, []string{"http://pay-fee.example/now"}, res.SpamURLs[0].URLs)
	assert.Equal(t, "5551234567", res.SpamURLs[0].Sender)
	assert.Equal(t, "2024-03-01 09:15:00", res.SpamURLs[0].Date)

	require.Len(t, res.NonSpamURLs, 1)
	assert.Equal(t, []string{"https://cafe.example/menu", "www.cafe.example"}, res.NonSpamURLs[0].URLs)
}

func TestScanNoURLs(t *testing.T) {
	st := artifact.Load([]artifact.RawMessage{
		{Address: "5551234567", Date: "2024-03-01T09:15:00Z", Type: "received", Body: "hello"},
	}, nil, nil)

	res := Scan(st)
	assert.Empty(t, res.SpamURLs)
	assert.Empty(t, res.NonSpamURLs)
}

func TestScanInvalidTimestampLeavesDateEmpty(t *testing.T) {
	st := artifact.Load([]artifact.RawMessage{
		{Address: "5551234567", Date: "garbled", Type: "received", Body: "see http://x.example"},
	}, nil, nil)

	res := Scan(st)
	require.Len(t, res.NonSpamURLs, 1)
	assert.Empty(t, res.NonSpamURLs[0].Date)
}
