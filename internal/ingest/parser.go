// Package ingest loads device artifact dumps from disk, either one-shot or
// watching a directory for re-extracted dumps.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/tracelens/trace-console/internal/artifact"
)

// Dump file names expected inside an artifact directory.
const (
	MessagesFile = "messages.json"
	CallsFile    = "calls.json"
	ContactsFile = "contacts.json"
	DeviceFile   = "device.json"
)

// ParseMessages decodes a raw SMS dump. The payload may be either a bare
// array or an object with a "messages" key, matching what extraction tools
// emit.
func ParseMessages(data []byte) ([]artifact.RawMessage, error) {
	var arr []artifact.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil
	}
	var wrapped struct {
		Messages []artifact.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse messages dump: %w", err)
	}
	return wrapped.Messages, nil
}

// ParseCalls decodes a raw call-log dump (bare array or {"calls": [...]}).
func ParseCalls(data []byte) ([]artifact.RawCall, error) {
	var arr []artifact.RawCall
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil
	}
	var wrapped struct {
		Calls []artifact.RawCall `json:"calls"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse calls dump: %w", err)
	}
	return wrapped.Calls, nil
}

// ParseContacts decodes a raw contact dump (bare array or {"contacts": [...]}).
func ParseContacts(data []byte) ([]artifact.RawContact, error) {
	var arr []artifact.RawContact
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil
	}
	var wrapped struct {
		Contacts []artifact.RawContact `json:"contacts"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse contacts dump: %w", err)
	}
	return wrapped.Contacts, nil
}

// ParseDevice decodes the optional device metadata file.
func ParseDevice(data []byte) (string, error) {
	var wrapped struct {
		DeviceName string `json:"deviceName"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return "", fmt.Errorf("parse device dump: %w", err)
	}
	return wrapped.DeviceName, nil
}
