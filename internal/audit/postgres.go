package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/clinical-reasoning-server/internal/domain"
)

// PostgresStore implements domain.FlagStore using PostgreSQL for
// multi-node deployments where several pipeline instances share one audit
// trail.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing connection and ensures the schema
// exists.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if err := createPostgresSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// OpenPostgresStore connects with the given DSN and builds the store.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func createPostgresSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS compliance_flags (
		id BIGSERIAL PRIMARY KEY,
		encounter_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		symptom TEXT DEFAULT '',
		duration_days INTEGER DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS encounters (
		encounter_id TEXT PRIMARY KEY,
		flagged BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS approvals (
		id BIGSERIAL PRIMARY KEY,
		note_id TEXT NOT NULL UNIQUE,
		encounter_id TEXT NOT NULL,
		suggested_diagnosis TEXT DEFAULT '',
		physician_diagnosis TEXT DEFAULT '',
		physician_agreed BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_flags_encounter ON compliance_flags(encounter_id);
	CREATE INDEX IF NOT EXISTS idx_flags_rule ON compliance_flags(rule_id);
	CREATE INDEX IF NOT EXISTS idx_approvals_encounter ON approvals(encounter_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveFlags records an encounter and its compliance flags.
func (s *PostgresStore) SaveFlags(ctx context.Context, encounterID string, flags []domain.ComplianceFlag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO encounters (encounter_id, flagged) VALUES ($1, $2)
		 ON CONFLICT (encounter_id) DO UPDATE SET flagged = encounters.flagged OR EXCLUDED.flagged`,
		encounterID, len(flags) > 0,
	); err != nil {
		return fmt.Errorf("failed to record encounter: %w", err)
	}

	for _, flag := range flags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO compliance_flags (encounter_id, rule_id, severity, message, symptom, duration_days)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			encounterID, flag.RuleID, string(flag.Severity), flag.Message, flag.Symptom, flag.DurationDays,
		); err != nil {
			return fmt.Errorf("failed to save flag: %w", err)
		}
	}

	return tx.Commit()
}

// ListFlags returns persisted flags with pagination, newest first.
func (s *PostgresStore) ListFlags(ctx context.Context, limit, offset int) ([]domain.StoredFlag, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, encounter_id, rule_id, severity, message, symptom, duration_days, created_at
		 FROM compliance_flags ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
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

// CountEncounters returns the total and flagged encounter counts.
func (s *PostgresStore) CountEncounters(ctx context.Context) (int64, int64, error) {
	var total, flagged int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE flagged) FROM encounters",
	).Scan(&total, &flagged)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count encounters: %w", err)
	}
	return total, flagged, nil
}

// SaveApproval stores or updates the physician's decision on a note.
func (s *PostgresStore) SaveApproval(ctx context.Context, approval *domain.ApprovalFeedback) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO approvals (note_id, encounter_id, suggested_diagnosis, physician_diagnosis, physician_agreed, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (note_id) DO UPDATE SET
			physician_diagnosis = EXCLUDED.physician_diagnosis,
			physician_agreed = EXCLUDED.physician_agreed,
			notes = EXCLUDED.notes
		 RETURNING id`,
		approval.NoteID, approval.EncounterID, approval.SuggestedDiagnosis,
		approval.PhysicianDiagnosis, approval.PhysicianAgreed, approval.Notes,
	).Scan(&approval.ID)
	if err != nil {
		return fmt.Errorf("failed to save approval: %w", err)
	}
	return nil
}

// GetApproval returns the approval record for a note, or ErrNotFound.
func (s *PostgresStore) GetApproval(ctx context.Context, noteID string) (*domain.ApprovalFeedback, error) {
	approval := &domain.ApprovalFeedback{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, note_id, encounter_id, suggested_diagnosis, physician_diagnosis, physician_agreed, notes
		 FROM approvals WHERE note_id = $1`,
		noteID,
	).Scan(&approval.ID, &approval.NoteID, &approval.EncounterID,
		&approval.SuggestedDiagnosis, &approval.PhysicianDiagnosis, &approval.PhysicianAgreed, &approval.Notes)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return approval, nil
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
