package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessagesBareArray(t *testing.T) {
	data := []byte(`[
		{"address": "5551234567", "date": "2024-03-01T09:15:00Z", "type": "received", "body": "hi", "isSuspicious": true, "category": "fraud"}
	]`)

	msgs, err := ParseMessages(data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "5551234567", msgs[0].Address)
	assert.True(t, msgs[0].IsSuspicious)
	assert.Equal(t, "fraud", msgs[0].Category)
}

func TestParseMessagesWrappedObject(t *testing.T) {
	data := []byte(`{"messages": [{"address": "5551234567", "date": "2024-03-01", "type": "sent", "body": "hi"}]}`)

	msgs, err := ParseMessages(data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "sent", msgs[0].Type)
}

func TestParseMessagesInvalid(t *testing.T) {
	_, err := ParseMessages([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseCalls(t *testing.T) {
	bare := []byte(`[{"number": "5551234567", "type": "incoming", "date": "2024-03-01", "duration": 42}]`)
	calls, err := ParseCalls(bare)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, 42, calls[0].Duration)

	wrapped := []byte(`{"calls": [{"number": "5559876543", "type": "missed", "date": "2024-03-02"}]}`)
	calls, err = ParseCalls(wrapped)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "missed", calls[0].Type)
}

func TestParseContacts(t *testing.T) {
	bare := []byte(`[{"name": "Alex Chen", "phoneNumber": "5559876543"}]`)
	contacts, err := ParseContacts(bare)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Alex Chen", contacts[0].Name)

	wrapped := []byte(`{"contacts": [{"phoneNumber": "5551112222"}]}`)
	contacts, err = ParseContacts(wrapped)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "5551112222", contacts[0].PhoneNumber)
}

func TestParseDevice(t *testing.T) {
	name, err := ParseDevice([]byte(`{"deviceName": "Pixel 7"}`))
	require.NoError(t, err)
	assert.Equal(t, "Pixel 7", name)

	_, err = ParseDevice([]byte(`[]`))
	assert.Error(t, err)
}
