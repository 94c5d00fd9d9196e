package ingest

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDump(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func testFolder(t *testing.T) *FolderSource {
	t.Helper()
	dir := t.TempDir()
	writeDump(t, dir, MessagesFile, `[{"address": "5551234567", "date": "2024-03-01T09:15:00Z", "type": "received", "body": "hi"}]`)
	writeDump(t, dir, CallsFile, `[{"number": "5551234567", "type": "incoming", "date": "2024-03-01T09:30:00Z", "duration": 42}]`)
	writeDump(t, dir, ContactsFile, `[{"name": "Alex Chen", "phoneNumber": "5559876543"}]`)
	writeDump(t, dir, DeviceFile, `{"deviceName": "Pixel 7"}`)

	fs, err := NewFolderSource(FolderOptions{Dir: dir, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	return fs
}

func TestFolderSourceArtifacts(t *testing.T) {
	fs := testFolder(t)

	bundle, err := fs.Artifacts(context.Background())
	require.NoError(t, err)
	assert.Len(t, bundle.Messages, 1)
	assert.Len(t, bundle.Calls, 1)
	assert.Len(t, bundle.Contacts, 1)
	assert.Equal(t, "Pixel 7", bundle.DeviceName)
}

// Only the messages dump is required; a partial extraction still loads.
func TestFolderSourcePartialDump(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, MessagesFile, `[]`)

	fs, err := NewFolderSource(FolderOptions{Dir: dir, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)

	bundle, err := fs.Artifacts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bundle.Calls)
	assert.Empty(t, bundle.Contacts)
	assert.Empty(t, bundle.DeviceName)
}

func TestFolderSourceMissingMessages(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFolderSource(FolderOptions{Dir: dir, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)

	_, err = fs.Artifacts(context.Background())
	assert.Error(t, err)
}

func TestNewFolderSourceValidation(t *testing.T) {
	_, err := NewFolderSource(FolderOptions{})
	assert.Error(t, err)

	_, err = NewFolderSource(FolderOptions{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestFolderSourceCancelledContext(t *testing.T) {
	fs := testFolder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fs.Artifacts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
