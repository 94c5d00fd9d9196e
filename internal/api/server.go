// Package api exposes the engine's tables and report operations over HTTP,
// serving the same endpoints the dashboard screens consume.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tracelens/trace-console/internal/artifact"
	"github.com/tracelens/trace-console/internal/report"
	"github.com/tracelens/trace-console/internal/session"
	"github.com/tracelens/trace-console/internal/view"
)

// Options controls the API server behavior.
type Options struct {
	// Bind address, e.g. "127.0.0.1:8080"
	Bind string
	// Token for Authorization: Bearer <token> header. Empty disables auth.
	Token string
	// RPS is max requests per second (approximate). 0 disables rate limiting.
	RPS int
	// Burst is the token bucket size. If 0 and RPS>0, defaults to RPS.
	Burst int
	// Logger for minimal logs (optional)
	Logger *log.Logger
	// MaxBodyBytes caps request body size; defaults to 1 MiB.
	MaxBodyBytes int64
}

// Server serves the engine's correlation/timeline tables and the report
// snapshot create/find operations.
type Server struct {
	srv     *http.Server
	opts    Options
	sess    *session.Session
	synth   *report.Synthesizer
	limiter *simpleLimiter
	logger  *log.Logger
	started int32
}

// NewServer constructs the API server over one analysis session.
func NewServer(sess *session.Session, synth *report.Synthesizer, opts Options) (*Server, error) {
	if sess == nil || synth == nil {
		return nil, errors.New("session and synthesizer are required")
	}
	if opts.Bind == "" {
		opts.Bind = "127.0.0.1:8080"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 * 1024 * 1024 // 1 MiB
	}
	var logger *log.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}
	var lim *simpleLimiter
	if opts.RPS > 0 {
		if opts.Burst <= 0 {
			opts.Burst = opts.RPS
		}
		lim = newSimpleLimiter(opts.RPS, opts.Burst)
	}

	s := &Server{
		opts:    opts,
		sess:    sess,
		synth:   synth,
		limiter: lim,
		logger:  logger,
	}

	s.srv = &http.Server{
		Addr:         opts.Bind,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the route table; exposed separately so tests can drive it
// without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.wrap(s.handleHealth))
	mux.HandleFunc("/data-correlation", s.wrap(s.handleCorrelation))
	mux.HandleFunc("/timeline-analysis", s.wrap(s.handleTimeline))
	mux.HandleFunc("/short-report", s.wrap(s.handleShortReport))
	mux.HandleFunc("/find-report/", s.wrap(s.handleFindReport))
	mux.HandleFunc("/url-analysis", s.wrap(s.handleURLAnalysis))
	mux.HandleFunc("/records", s.wrap(s.handleRecords))
	return mux
}

// Start starts the HTTP server concurrently and attaches to ctx for shutdown.
func (s *Server) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return errors.New("api server already started")
	}
	// Bind early to surface errors synchronously
	ln, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Bind, err)
	}
	s.logger.Printf("API listening on http://%s rps=%d auth=%v", s.opts.Bind, s.opts.RPS, s.opts.Token != "")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("graceful shutdown failed: %v", err)
		}
	}()

	return nil
}

// wrap applies auth and rate limiting ahead of every handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.opts.Token {
				s.writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		if err := s.limiter.Wait(r.Context()); err != nil {
			s.writeError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(s.sess.State()),
	})
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, err := s.sess.Correlation()
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	res, err := s.sess.Timeline()
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// shortReportResponse is the GET /short-report payload: the session's current
// statistics, before any snapshot is saved.
type shortReportResponse struct {
	DeviceName string              `json:"deviceName"`
	SMS        report.SMSStats     `json:"sms"`
	Calls      report.CallStats    `json:"calls"`
	Contacts   report.ContactStats `json:"contacts"`
	Dropped    int                 `json:"droppedRecords"`
	Invalid    int                 `json:"invalidTimestamps"`
}

// createReportRequest is the POST /short-report payload.
type createReportRequest struct {
	CaseNumber   string `json:"caseNumber"`
	Investigator string `json:"investigator"`
	Remark       string `json:"remark"`
}

func (s *Server) handleShortReport(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, err := s.sess.Store()
		if err != nil {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, shortReportResponse{
			DeviceName: st.DeviceName,
			SMS:        report.ComputeSMSStats(st),
			Calls:      report.ComputeCallStats(st),
			Contacts:   report.ComputeContactStats(st),
			Dropped:    st.Summary.Dropped(),
			Invalid:    st.Summary.InvalidTimestamps,
		})

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, s.opts.MaxBodyBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		var req createReportRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		st, err := s.sess.Store()
		if err != nil {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		meta := report.Meta{
			CaseNumber:   req.CaseNumber,
			Investigator: req.Investigator,
			Remark:       req.Remark,
		}
		snap, err := s.synth.CreateSnapshot(r.Context(), meta, st)
		if err != nil {
			switch {
			case errors.Is(err, report.ErrDuplicateCase):
				s.writeError(w, http.StatusConflict, err.Error())
			default:
				s.writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		s.writeJSON(w, http.StatusCreated, snap)

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleFindReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	caseNumber := strings.TrimPrefix(r.URL.Path, "/find-report/")
	if caseNumber == "" {
		s.writeError(w, http.StatusBadRequest, "case number is required")
		return
	}

	snap, err := s.synth.FindSnapshot(r.Context(), caseNumber)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"report": snap})
}

func (s *Server) handleURLAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	res, err := s.sess.URLAnalysis()
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// handleRecords serves the filtered, highlighted row listing. Query params:
// q (free text), kind (sms|call, repeatable), category (repeatable),
// suspicious=true.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	f := view.Filter{
		Search:         q.Get("q"),
		SuspiciousOnly: q.Get("suspicious") == "true",
	}
	for _, k := range q["kind"] {
		f.Kinds = append(f.Kinds, view.RecordKind(k))
	}
	for _, c := range q["category"] {
		f.Categories = append(f.Categories, artifact.ParseCategory(c))
	}

	fv, err := s.sess.Project(f)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, fv)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
