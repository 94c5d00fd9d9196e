// Package session owns the state machine for one analysis session: load the
// device's artifacts, derive correlation and timeline views once, and serve
// pure re-projections to whichever screen asks.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens/trace-console/internal/artifact"
	"github.com/tracelens/trace-console/internal/bus"
	"github.com/tracelens/trace-console/internal/correlate"
	"github.com/tracelens/trace-console/internal/timeline"
	"github.com/tracelens/trace-console/internal/urlscan"
	"github.com/tracelens/trace-console/internal/view"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateLoaded    State = "loaded"
	StateFailed    State = "failed"
	StateExporting State = "exporting"
)

// ErrNotLoaded is returned when a projection is requested before a successful load.
var ErrNotLoaded = errors.New("session has no loaded data")

// ErrLoadInProgress is returned when Load is called while a load is running.
var ErrLoadInProgress = errors.New("load already in progress")

// Source delivers one device's raw artifact bundle. Implemented by the
// backend client and the folder source.
type Source interface {
	Artifacts(ctx context.Context) (*artifact.Bundle, error)
}

// Session is one investigator's analysis of one device extraction. All heavy
// computation runs as a single synchronous pass at load time; afterwards every
// view is a read-only projection of the same in-memory records. A Session is
// safe for concurrent use.
type Session struct {
	id          string
	source      Source
	bus         bus.Bus
	granularity timeline.Granularity
	logger      *log.Logger

	mu          sync.Mutex
	state       State
	loadErr     error
	store       *artifact.Store
	correlation []correlate.Record
	timeline    timeline.Result
}

// New creates an idle session over the given source.
func New(src Source, b bus.Bus, g timeline.Granularity, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		id:          uuid.NewString(),
		source:      src,
		bus:         b,
		granularity: g,
		logger:      logger,
		state:       StateIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure from the last load attempt, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Load fetches the artifacts and derives the correlation and timeline views.
// Valid from Idle, Failed (retry) and Loaded (reload after a new extraction);
// a second Load while one is running returns ErrLoadInProgress. Cancelling
// ctx abandons the load and moves the session to Failed.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateLoading || s.state == StateExporting {
		s.mu.Unlock()
		return ErrLoadInProgress
	}
	s.state = StateLoading
	s.loadErr = nil
	s.mu.Unlock()

	bundle, err := s.source.Artifacts(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.loadErr = err
		s.mu.Unlock()
		return err
	}

	// One synchronous pass: normalize, then derive both views. The dataset is
	// bounded by one device's extraction, so no internal threading.
	st := artifact.Load(bundle.Messages, bundle.Calls, bundle.Contacts)
	st.DeviceName = bundle.DeviceName
	corr := correlate.Correlate(st)
	tl := timeline.Aggregate(st, s.granularity)

	s.mu.Lock()
	s.store = st
	s.correlation = corr
	s.timeline = tl
	s.state = StateLoaded
	s.mu.Unlock()

	s.logger.Printf("Session %s loaded: %d messages, %d calls, %d contacts (dropped %d, invalid timestamps %d)",
		s.id, len(st.Messages), len(st.Calls), len(st.Contacts),
		st.Summary.Dropped(), st.Summary.InvalidTimestamps)

	if s.bus != nil {
		msg := bus.SessionMessage{
			SessionID:  s.id,
			DeviceName: st.DeviceName,
			Messages:   len(st.Messages),
			Calls:      len(st.Calls),
			Contacts:   len(st.Contacts),
			Dropped:    st.Summary.Dropped(),
			Timestamp:  time.Now().Unix(),
		}
		if err := s.bus.PublishSession(ctx, msg); err != nil {
			s.logger.Printf("Failed to publish session message: %v", err)
		}
	}

	return nil
}

// Store returns the loaded record store.
func (s *Session) Store() (*artifact.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoaded && s.state != StateExporting {
		return nil, s.notLoaded()
	}
	return s.store, nil
}

// Correlation returns the correlation table derived at load time.
func (s *Session) Correlation() ([]correlate.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoaded && s.state != StateExporting {
		return nil, s.notLoaded()
	}
	return s.correlation, nil
}

// Timeline returns the timeline derived at load time.
func (s *Session) Timeline() (timeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoaded && s.state != StateExporting {
		return timeline.Result{}, s.notLoaded()
	}
	return s.timeline, nil
}

// Project applies a filter to the loaded records. Pure re-projection: the
// session stays Loaded throughout.
func (s *Session) Project(f view.Filter) (view.FilteredView, error) {
	st, err := s.Store()
	if err != nil {
		return view.FilteredView{}, err
	}
	return view.Project(st, f), nil
}

// URLAnalysis extracts URL-bearing messages from the loaded records.
func (s *Session) URLAnalysis() (urlscan.Result, error) {
	st, err := s.Store()
	if err != nil {
		return urlscan.Result{}, err
	}
	return urlscan.Scan(st), nil
}

// ExportCorrelation renders the correlation document. The session passes
// through Exporting and returns to Loaded; exports never depend on any
// interactive state, so repeated exports are byte-identical.
func (s *Session) ExportCorrelation() ([]byte, error) {
	return s.export(func() []byte { return view.RenderCorrelation(s.correlation) })
}

// ExportTimeline renders the timeline document.
func (s *Session) ExportTimeline() ([]byte, error) {
	return s.export(func() []byte { return view.RenderTimeline(s.timeline) })
}

func (s *Session) export(render func() []byte) ([]byte, error) {
	s.mu.Lock()
	if s.state != StateLoaded {
		defer s.mu.Unlock()
		return nil, s.notLoaded()
	}
	s.state = StateExporting
	doc := render()
	s.state = StateLoaded
	s.mu.Unlock()
	return doc, nil
}

func (s *Session) notLoaded() error {
	if s.state == StateFailed && s.loadErr != nil {
		return fmt.Errorf("%w: last load failed: %v", ErrNotLoaded, s.loadErr)
	}
	return ErrNotLoaded
}
