package bus

import (
	"context"
	"io"
	"log"
)

// ReportMessage is published to the reports stream when a snapshot is created.
type ReportMessage struct {
	SnapshotID   string `json:"snapshot_id"`
	CaseNumber   string `json:"case_number"`
	Investigator string `json:"investigator"`
	DeviceName   string `json:"device_name"`
	Timestamp    int64  `json:"timestamp"`
}

// SessionMessage is published to the sessions stream when an analysis session
// finishes loading a device's artifacts.
type SessionMessage struct {
	SessionID  string `json:"session_id"`
	DeviceName string `json:"device_name"`
	Messages   int    `json:"messages"`
	Calls      int    `json:"calls"`
	Contacts   int    `json:"contacts"`
	Dropped    int    `json:"dropped"`
	Timestamp  int64  `json:"timestamp"`
}

// Bus defines the interface for event bus implementations.
type Bus interface {
	// PublishReport publishes a report-created notification to the reports stream
	PublishReport(ctx context.Context, msg ReportMessage) error

	// PublishSession publishes a session-loaded notification to the sessions stream
	PublishSession(ctx context.Context, msg SessionMessage) error

	// HealthCheck performs a health check on the bus connection
	HealthCheck(ctx context.Context) error

	// Close closes the bus connection
	Close() error
}

// NewBus creates a new bus instance based on the Redis URL.
// If redisURL is empty or unreachable, returns a NullBus.
func NewBus(redisURL string, logger *log.Logger) Bus {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if redisURL == "" {
		return NewNullBus(logger)
	}

	if redisBus, err := NewRedisBus(redisURL, logger); err == nil {
		return redisBus
	}

	// Fall back to null bus if Redis fails
	return NewNullBus(logger)
}
