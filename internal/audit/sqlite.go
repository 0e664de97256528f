// Package audit persists compliance flags and physician approval feedback
// for the reporting workflow. The pipeline appends; reporting reads.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clinical-reasoning-server/internal/domain"
)

// SQLiteStore implements domain.FlagStore using SQLite. It is the default
// single-node deployment store.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS compliance_flags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		encounter_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		symptom TEXT DEFAULT '',
		duration_days INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS encounters (
		encounter_id TEXT PRIMARY KEY,
		flagged INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS approvals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id TEXT NOT NULL UNIQUE,
		encounter_id TEXT NOT NULL,
		suggested_diagnosis TEXT DEFAULT '',
		physician_diagnosis TEXT DEFAULT '',
		physician_agreed INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_flags_encounter ON compliance_flags(encounter_id);
	CREATE INDEX IF NOT EXISTS idx_flags_rule ON compliance_flags(rule_id);
	CREATE INDEX IF NOT EXISTS idx_flags_created_at ON compliance_flags(created_at);
	CREATE INDEX IF NOT EXISTS idx_approvals_encounter ON approvals(encounter_id);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveFlags records an encounter and its compliance flags. Saving an
// encounter with zero flags still counts it toward the compliance-rate
// denominator.
func (s *SQLiteStore) SaveFlags(ctx context.Context, encounterID string, flags []domain.ComplianceFlag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	flagged := 0
	if len(flags) > 0 {
		flagged = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO encounters (encounter_id, flagged) VALUES (?, ?)
		 ON CONFLICT(encounter_id) DO UPDATE SET flagged = MAX(flagged, excluded.flagged)`,
		encounterID, flagged,
	); err != nil {
		return fmt.Errorf("failed to record encounter: %w", err)
	}

	for _, flag := range flags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO compliance_flags (encounter_id, rule_id, severity, message, symptom, duration_days)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			encounterID, flag.RuleID, string(flag.Severity), flag.Message, flag.Symptom, flag.DurationDays,
		); err != nil {
			return fmt.Errorf("failed to save flag: %w", err)
		}
	}

	return tx.Commit()
}

// ListFlags returns persisted flags with pagination, newest first.
func (s *SQLiteStore) ListFlags(ctx context.Context, limit, offset int) ([]domain.StoredFlag, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, encounter_id, rule_id, severity, message, symptom, duration_days, created_at
		 FROM compliance_flags ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	defer rows.Close()

	var flags []domain.StoredFlag
	for rows.Next() {
		var stored domain.StoredFlag
		var severity string
		var createdAt time.Time
		if err := rows.Scan(&stored.ID, &stored.EncounterID, &stored.Flag.RuleID, &severity,
			&stored.Flag.Message, &stored.Flag.Symptom, &stored.Flag.DurationDays, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		stored.Flag.Severity = domain.AlertSeverity(severity)
		stored.CreatedAt = createdAt.Format(time.RFC3339)
		flags = append(flags, stored)
	}
	return flags, rows.Err()
}

// CountEncounters returns the total and flagged encounter counts used for
// the aggregate compliance rate.
func (s *SQLiteStore) CountEncounters(ctx context.Context) (int64, int64, error) {
	var total, flagged int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(flagged), 0) FROM encounters",
	).Scan(&total, &flagged)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count encounters: %w", err)
	}
	return total, flagged, nil
}

// SaveApproval stores or updates the physician's decision on a note.
func (s *SQLiteStore) SaveApproval(ctx context.Context, approval *domain.ApprovalFeedback) error {
	agreed := 0
	if approval.PhysicianAgreed {
		agreed = 1
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO approvals (note_id, encounter_id, suggested_diagnosis, physician_diagnosis, physician_agreed, notes)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(note_id) DO UPDATE SET
			physician_diagnosis = excluded.physician_diagnosis,
			physician_agreed = excluded.physician_agreed,
			notes = excluded.notes`,
		approval.NoteID, approval.EncounterID, approval.SuggestedDiagnosis,
		approval.PhysicianDiagnosis, agreed, approval.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to save approval: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		approval.ID = id
	}
	return nil
}

// GetApproval returns the approval record for a note, or ErrNotFound.
func (s *SQLiteStore) GetApproval(ctx context.Context, noteID string) (*domain.ApprovalFeedback, error) {
	approval := &domain.ApprovalFeedback{}
	var agreed int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, note_id, encounter_id, suggested_diagnosis, physician_diagnosis, physician_agreed, notes
		 FROM approvals WHERE note_id = ?`,
		noteID,
	).Scan(&approval.ID, &approval.NoteID, &approval.EncounterID,
		&approval.SuggestedDiagnosis, &approval.PhysicianDiagnosis, &agreed, &approval.Notes)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	approval.PhysicianAgreed = agreed != 0
	return approval, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
