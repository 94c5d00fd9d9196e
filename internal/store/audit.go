package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by the engine.
const (
	ActionReportCreated = "report_created"
	ActionReportViewed  = "report_viewed"
	ActionSessionLoaded = "session_loaded"
)

// AuditEntry records one investigator-visible action for the audit trail.
// Reports are write-once, so the audit trail is the only place corrections
// and lookups leave a trace.
type AuditEntry struct {
	ID         string            `json:"id"`
	CaseNumber string            `json:"case_number,omitempty"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor"`
	Details    map[string]string `json:"details"`
	Timestamp  time.Time         `json:"timestamp"`
}

// setupAuditTable creates the audit table if it doesn't exist
func (s *Store) setupAuditTable() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			case_number TEXT,
			action TEXT NOT NULL,
			actor TEXT,
			details TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_case_number ON audit_entries(case_number)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_entries(action)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute audit migration: %w", err)
		}
	}

	return nil
}

// RecordAudit appends one entry to the audit trail.
func (s *Store) RecordAudit(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Details == nil {
		entry.Details = map[string]string{}
	}

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `INSERT INTO audit_entries (id, case_number, action, actor, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.CaseNumber, entry.Action, entry.Actor,
		string(detailsJSON), entry.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}

	return nil
}

// GetAuditTrail returns audit entries for a case, newest first. An empty case
// number returns the full trail.
func (s *Store) GetAuditTrail(ctx context.Context, caseNumber string, limit int) ([]AuditEntry, error) {
	query := `SELECT id, case_number, action, actor, details, timestamp FROM audit_entries`
	args := []interface{}{}

	if caseNumber != "" {
		query += ` WHERE case_number = ?`
		args = append(args, caseNumber)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			entry         AuditEntry
			caseNo, actor sql.NullString
			detailsJSON   string
			ts            int64
		)
		if err := rows.Scan(&entry.ID, &caseNo, &entry.Action, &actor, &detailsJSON, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry.CaseNumber = caseNo.String
		entry.Actor = actor.String
		entry.Timestamp = time.Unix(ts, 0).UTC()

		details := make(map[string]string)
		if err := json.Unmarshal([]byte(detailsJSON), &details); err != nil {
			// Corrupt details should not fail the whole result set
			details = map[string]string{"_error": "failed to unmarshal audit details"}
		}
		entry.Details = details

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return entries, nil
}
