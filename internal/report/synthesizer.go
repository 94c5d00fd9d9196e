package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens/trace-console/internal/artifact"
	"github.com/tracelens/trace-console/internal/bus"
)

// ErrDuplicateCase is returned when a snapshot already exists for a case
// number. The stored snapshot is never overwritten.
var ErrDuplicateCase = errors.New("case number already has a report")

// ErrNotFound is returned when no snapshot exists for a case number.
var ErrNotFound = errors.New("report not found")

// Snapshot is an immutable, uniquely-keyed frozen summary of a case's
// statistics at save time. It owns independent copies of the numbers, not the
// underlying record lists, so it stays stable after the session ends.
type Snapshot struct {
	ID           string       `json:"id"`
	CaseNumber   string       `json:"caseNumber"`
	Investigator string       `json:"investigator"`
	Remark       string       `json:"remark"`
	DeviceName   string       `json:"deviceName"`
	SMS          SMSStats     `json:"sms"`
	Calls        CallStats    `json:"calls"`
	Contacts     ContactStats `json:"contacts"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Store persists snapshots. SaveSnapshot must enforce case-number uniqueness
// atomically at the persistence boundary (a constraint, not a read-then-write)
// and return ErrDuplicateCase on conflict. GetSnapshot returns ErrNotFound on
// a miss.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, caseNumber string) (*Snapshot, error)
	ListSnapshots(ctx context.Context) ([]Snapshot, error)
}

// Meta carries the investigator-provided case metadata for one snapshot.
type Meta struct {
	CaseNumber   string
	Investigator string
	Remark       string
}

// Synthesizer combines session statistics and case metadata into durable
// report snapshots, and looks them up later by case number.
type Synthesizer struct {
	store  Store
	bus    bus.Bus
	logger *log.Logger
}

// NewSynthesizer creates a Synthesizer backed by the given snapshot store.
// The bus may be nil when no event stream is configured.
func NewSynthesizer(st Store, b bus.Bus, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Synthesizer{store: st, bus: b, logger: logger}
}

// CreateSnapshot freezes the store's statistics under the given case metadata
// and persists the result. A second call with the same case number fails with
// ErrDuplicateCase and leaves the first snapshot untouched.
func (s *Synthesizer) CreateSnapshot(ctx context.Context, meta Meta, st *artifact.Store) (*Snapshot, error) {
	if strings.TrimSpace(meta.CaseNumber) == "" {
		return nil, fmt.Errorf("case number is required")
	}
	if strings.TrimSpace(meta.Remark) == "" {
		return nil, fmt.Errorf("remark is required")
	}

	snap := &Snapshot{
		ID:           uuid.NewString(),
		CaseNumber:   strings.TrimSpace(meta.CaseNumber),
		Investigator: meta.Investigator,
		Remark:       meta.Remark,
		DeviceName:   st.DeviceName,
		SMS:          ComputeSMSStats(st),
		Calls:        ComputeCallStats(st),
		Contacts:     ComputeContactStats(st),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	s.logger.Printf("Created report snapshot %s for case %s", snap.ID, snap.CaseNumber)

	if s.bus != nil {
		msg := bus.ReportMessage{
			SnapshotID:   snap.ID,
			CaseNumber:   snap.CaseNumber,
			Investigator: snap.Investigator,
			DeviceName:   snap.DeviceName,
			Timestamp:    snap.CreatedAt.Unix(),
		}
		if err := s.bus.PublishReport(ctx, msg); err != nil {
			// The snapshot is durable; a missed notification is not fatal.
			s.logger.Printf("Failed to publish report message for case %s: %v", snap.CaseNumber, err)
		}
	}

	return snap, nil
}

// FindSnapshot returns the snapshot stored for a case number, or ErrNotFound.
func (s *Synthesizer) FindSnapshot(ctx context.Context, caseNumber string) (*Snapshot, error) {
	return s.store.GetSnapshot(ctx, strings.TrimSpace(caseNumber))
}

// ListSnapshots returns every stored snapshot, newest first.
func (s *Synthesizer) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	return s.store.ListSnapshots(ctx)
}
