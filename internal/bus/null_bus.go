package bus

import (
	"context"
	"log"
)

// NullBus is a no-op implementation of the bus interface for when Redis is disabled
type NullBus struct {
	logger *log.Logger
}

// NewNullBus creates a new null bus instance
func NewNullBus(logger *log.Logger) *NullBus {
	if logger == nil {
		logger = log.New(log.Writer(), "[NullBus] ", log.LstdFlags)
	}

	return &NullBus{
		logger: logger,
	}
}

// Close is a no-op for null bus
func (nb *NullBus) Close() error {
	return nil
}

// PublishReport logs the report but doesn't actually publish it
func (nb *NullBus) PublishReport(ctx context.Context, msg ReportMessage) error {
	nb.logger.Printf("Would publish report for case %s (Redis disabled)", msg.CaseNumber)
	return nil
}

// PublishSession logs the session but doesn't actually publish it
func (nb *NullBus) PublishSession(ctx context.Context, msg SessionMessage) error {
	nb.logger.Printf("Would publish session %s for device %s (Redis disabled)", msg.SessionID, msg.DeviceName)
	return nil
}

// HealthCheck always returns nil for null bus
func (nb *NullBus) HealthCheck(ctx context.Context) error {
	return nil
}
