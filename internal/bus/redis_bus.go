package bus

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Stream names used by the Redis bus.
const (
	ReportsStream  = "reports"
	SessionsStream = "sessions"
)

// RedisBus provides Redis Streams-based messaging for downstream consumers
// (notification sinks, report indexers) watching the engine.
type RedisBus struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisBus creates a new Redis bus instance
func NewRedisBus(redisURL string, logger *log.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = log.New(log.Writer(), "[RedisBus] ", log.LstdFlags)
	}

	return &RedisBus{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (rb *RedisBus) Close() error {
	return rb.client.Close()
}

// PublishReport publishes a report-created notification to the reports stream
func (rb *RedisBus) PublishReport(ctx context.Context, msg ReportMessage) error {
	fields := map[string]interface{}{
		"snapshot_id":  msg.SnapshotID,
		"case_number":  msg.CaseNumber,
		"investigator": msg.Investigator,
		"device_name":  msg.DeviceName,
		"timestamp":    strconv.FormatInt(msg.Timestamp, 10),
	}

	result := rb.client.XAdd(ctx, &redis.XAddArgs{
		Stream: ReportsStream,
		Values: fields,
	})

	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}

	rb.logger.Printf("Published report for case %s to %s stream", msg.CaseNumber, ReportsStream)
	return nil
}

// PublishSession publishes a session-loaded notification to the sessions stream
func (rb *RedisBus) PublishSession(ctx context.Context, msg SessionMessage) error {
	fields := map[string]interface{}{
		"session_id":  msg.SessionID,
		"device_name": msg.DeviceName,
		"messages":    msg.Messages,
		"calls":       msg.Calls,
		"contacts":    msg.Contacts,
		"dropped":     msg.Dropped,
		"timestamp":   strconv.FormatInt(msg.Timestamp, 10),
	}

	result := rb.client.XAdd(ctx, &redis.XAddArgs{
		Stream: SessionsStream,
		Values: fields,
	})

	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish session: %w", err)
	}

	rb.logger.Printf("Published session %s to %s stream", msg.SessionID, SessionsStream)
	return nil
}

// HealthCheck performs a health check on the Redis connection
func (rb *RedisBus) HealthCheck(ctx context.Context) error {
	if err := rb.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
