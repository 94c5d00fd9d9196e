package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tracelens/trace-console/internal/report"
)

// Store represents the SQLite storage implementation for report snapshots
// and the audit trail.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// NewStore creates a new SQLite store instance
func NewStore(dbPath string) (*Store, error) {
	// Ensure target directory exists (e.g., ./data)
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(sqliteDriver, sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: log.New(os.Stderr, "[store] ", log.LstdFlags),
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// SetLogger redirects the store's diagnostics, used when the dashboard owns
// the terminal.
func (s *Store) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate performs database migrations
func (s *Store) migrate() error {
	migrations := []string{
		// Reports table. The UNIQUE constraint on case_number is what makes
		// snapshot creation a single atomic check-and-insert; application
		// code never does its own existence check first.
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			case_number TEXT NOT NULL UNIQUE,
			investigator TEXT,
			remark TEXT NOT NULL,
			device_name TEXT,
			total_messages INTEGER NOT NULL,
			suspicious_messages INTEGER NOT NULL,
			fraud_messages INTEGER NOT NULL,
			criminal_messages INTEGER NOT NULL,
			cyberbullying_messages INTEGER NOT NULL,
			threat_messages INTEGER NOT NULL,
			negative_sentiment_messages INTEGER NOT NULL,
			total_calls INTEGER NOT NULL,
			incoming_calls INTEGER NOT NULL,
			outgoing_calls INTEGER NOT NULL,
			missed_calls INTEGER NOT NULL,
			total_contacts INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_reports_case_number ON reports(case_number)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	if err := s.setupAuditTable(); err != nil {
		return err
	}

	return nil
}

// SaveSnapshot inserts a report snapshot. The reports.case_number UNIQUE
// constraint serializes concurrent creates for the same case; a conflicting
// insert returns report.ErrDuplicateCase and the stored row is untouched.
func (s *Store) SaveSnapshot(ctx context.Context, snap *report.Snapshot) error {
	query := `INSERT INTO reports (
		id, case_number, investigator, remark, device_name,
		total_messages, suspicious_messages, fraud_messages, criminal_messages,
		cyberbullying_messages, threat_messages, negative_sentiment_messages,
		total_calls, incoming_calls, outgoing_calls, missed_calls,
		total_contacts, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.CaseNumber, snap.Investigator, snap.Remark, snap.DeviceName,
		snap.SMS.TotalMessages, snap.SMS.SuspiciousMessages, snap.SMS.FraudMessages,
		snap.SMS.CriminalMessages, snap.SMS.CyberbullyingMessages, snap.SMS.ThreatMessages,
		snap.SMS.NegativeSentimentMessages,
		snap.Calls.TotalCalls, snap.Calls.IncomingCalls, snap.Calls.OutgoingCalls,
		snap.Calls.MissedCalls,
		snap.Contacts.TotalContacts, snap.CreatedAt.Unix(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("case %s: %w", snap.CaseNumber, report.ErrDuplicateCase)
		}
		return fmt.Errorf("failed to save report: %w", err)
	}

	if err := s.RecordAudit(ctx, AuditEntry{
		CaseNumber: snap.CaseNumber,
		Action:     ActionReportCreated,
		Actor:      snap.Investigator,
		Details:    map[string]string{"snapshot_id": snap.ID, "device_name": snap.DeviceName},
	}); err != nil {
		s.logger.Printf("Failed to record audit entry for case %s: %v", snap.CaseNumber, err)
	}

	return nil
}

// GetSnapshot returns the snapshot stored for a case number, or
// report.ErrNotFound when no report exists.
func (s *Store) GetSnapshot(ctx context.Context, caseNumber string) (*report.Snapshot, error) {
	query := selectReportColumns + ` FROM reports WHERE case_number = ?`

	row := s.db.QueryRowContext(ctx, query, caseNumber)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case %s: %w", caseNumber, report.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	if err := s.RecordAudit(ctx, AuditEntry{
		CaseNumber: snap.CaseNumber,
		Action:     ActionReportViewed,
		Details:    map[string]string{"snapshot_id": snap.ID},
	}); err != nil {
		s.logger.Printf("Failed to record audit entry for case %s: %v", snap.CaseNumber, err)
	}

	return snap, nil
}

// ListSnapshots returns all report snapshots newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]report.Snapshot, error) {
	query := selectReportColumns + ` FROM reports ORDER BY created_at DESC, case_number ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var snaps []report.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}

	return snaps, nil
}

const selectReportColumns = `SELECT id, case_number, investigator, remark, device_name,
	total_messages, suspicious_messages, fraud_messages, criminal_messages,
	cyberbullying_messages, threat_messages, negative_sentiment_messages,
	total_calls, incoming_calls, outgoing_calls, missed_calls,
	total_contacts, created_at`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*report.Snapshot, error) {
	var snap report.Snapshot
	var investigator, deviceName sql.NullString
	var createdAt int64

	err := row.Scan(&snap.ID, &snap.CaseNumber, &investigator, &snap.Remark, &deviceName,
		&snap.SMS.TotalMessages, &snap.SMS.SuspiciousMessages, &snap.SMS.FraudMessages,
		&snap.SMS.CriminalMessages, &snap.SMS.CyberbullyingMessages, &snap.SMS.ThreatMessages,
		&snap.SMS.NegativeSentimentMessages,
		&snap.Calls.TotalCalls, &snap.Calls.IncomingCalls, &snap.Calls.OutgoingCalls,
		&snap.Calls.MissedCalls,
		&snap.Contacts.TotalContacts, &createdAt)
	if err != nil {
		return nil, err
	}

	if investigator.Valid {
		snap.Investigator = investigator.String
	}
	if deviceName.Valid {
		snap.DeviceName = deviceName.String
	}
	snap.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &snap, nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint failure.
// Both drivers (mattn, modernc) surface the constraint name in the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
