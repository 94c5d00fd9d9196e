package artifact

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValidationError describes one malformed input record. Records failing
// validation are dropped and counted; a bad record never aborts the load.
type ValidationError struct {
	Collection string // "messages", "calls", "contacts"
	Index      int
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s[%d]: invalid %s: %s", e.Collection, e.Index, e.Field, e.Reason)
}

// LoadSummary reports what the adapter dropped or flagged during one load.
// Surfaced to the investigator alongside the successful result.
type LoadSummary struct {
	DroppedMessages   int                `json:"dropped_messages"`
	DroppedCalls      int                `json:"dropped_calls"`
	DroppedContacts   int                `json:"dropped_contacts"`
	InvalidTimestamps int                `json:"invalid_timestamps"`
	ValidationErrors  []*ValidationError `json:"-"`
}

// Dropped returns the total number of records excluded from the store.
func (s LoadSummary) Dropped() int {
	return s.DroppedMessages + s.DroppedCalls + s.DroppedContacts
}

// Store holds the normalized record collections for one analysis session.
// It owns the records; derived views (correlation, timeline) reference them.
type Store struct {
	Messages []Message
	Calls    []CallRecord
	Contacts []Contact
	Summary  LoadSummary

	DeviceName string
}

// Load normalizes the three raw collections into a Store. Records missing
// their timestamp are dropped and counted; records whose timestamp is present
// but unparseable are kept with TimeValid=false so correlation still sees
// them (the timeline excludes and counts them separately). Records with no
// usable phone number fall under the UnknownIdentity key.
func Load(msgs []RawMessage, calls []RawCall, contacts []RawContact) *Store {
	st := &Store{}

	for i, raw := range msgs {
		if strings.TrimSpace(raw.Date) == "" {
			st.Summary.DroppedMessages++
			st.Summary.ValidationErrors = append(st.Summary.ValidationErrors, &ValidationError{
				Collection: "messages", Index: i, Field: "date", Reason: "missing",
			})
			continue
		}
		ts, ok := ParseTimestamp(raw.Date)
		if !ok {
			st.Summary.InvalidTimestamps++
		}
		st.Messages = append(st.Messages, Message{
			Address:        raw.Address,
			Identity:       NormalizeIdentity(raw.Address),
			Timestamp:      ts,
			TimeValid:      ok,
			Direction:      messageDirection(raw.Type),
			Body:           raw.Body,
			Suspicious:     raw.IsSuspicious,
			Category:       ParseCategory(raw.Category),
			SentimentEmoji: raw.SentimentEmoji,
			ContactName:    raw.ContactName,
		})
	}

	for i, raw := range calls {
		if strings.TrimSpace(raw.Date) == "" {
			st.Summary.DroppedCalls++
			st.Summary.ValidationErrors = append(st.Summary.ValidationErrors, &ValidationError{
				Collection: "calls", Index: i, Field: "date", Reason: "missing",
			})
			continue
		}
		ts, ok := ParseTimestamp(raw.Date)
		if !ok {
			st.Summary.InvalidTimestamps++
		}
		st.Calls = append(st.Calls, CallRecord{
			Number:    raw.Number,
			Identity:  NormalizeIdentity(raw.Number),
			Timestamp: ts,
			TimeValid: ok,
			Direction: callDirection(raw.Type),
			Duration:  raw.Duration,
		})
	}

	for i, raw := range contacts {
		if strings.TrimSpace(raw.PhoneNumber) == "" && strings.TrimSpace(raw.Name) == "" {
			st.Summary.DroppedContacts++
			st.Summary.ValidationErrors = append(st.Summary.ValidationErrors, &ValidationError{
				Collection: "contacts", Index: i, Field: "phoneNumber", Reason: "missing",
			})
			continue
		}
		st.Contacts = append(st.Contacts, Contact{
			Name:     raw.Name,
			Number:   raw.PhoneNumber,
			Identity: NormalizeIdentity(raw.PhoneNumber),
		})
	}

	return st
}

// timestampLayouts are tried in order when parsing device timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTimestamp parses a device timestamp string. Epoch values (seconds or
// milliseconds) and the common textual layouts are accepted. The boolean is
// false when nothing matched; callers must not guess a bucket for such records.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch {
		case n > 1e12: // milliseconds
			return time.UnixMilli(n).UTC(), true
		case n > 1e9: // seconds
			return time.Unix(n, 0).UTC(), true
		default:
			return time.Time{}, false
		}
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func messageDirection(raw string) MessageDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(MessageSent)) {
		return MessageSent
	}
	return MessageReceived
}

func callDirection(raw string) CallDirection {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(CallOutgoing):
		return CallOutgoing
	case string(CallMissed):
		return CallMissed
	default:
		return CallIncoming
	}
}

// ParseCategory maps a raw label to a known Category; unknown labels fall
// back to normal rather than failing the record.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryNormal
}
