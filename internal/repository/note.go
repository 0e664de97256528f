package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
)

// NoteRepository persists assembled notes pending physician approval. The
// structured payload is stored as JSONB so the approval workflow can render
// the full note without re-running the pipeline.
type NoteRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *pgxpool.Pool, logger *logrus.Logger) *NoteRepository {
	return &NoteRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts an assembled note. Notes are immutable after creation;
// there is deliberately no update path here.
func (r *NoteRepository) Create(ctx context.Context, note *domain.EnhancedSOAPNote) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encoding note: %w", err)
	}

	query := `
		INSERT INTO soap_notes (
			note_id, encounter_id, quality_grade, consensus_status, payload, generated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`

	_, err = r.db.Exec(ctx, query,
		note.NoteID,
		note.EncounterID,
		string(note.QualityGrade),
		string(note.ConsensusStatus),
		payload,
		note.GeneratedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"note_id":      note.NoteID,
			"encounter_id": note.EncounterID,
			"error":        err,
		}).Error("Failed to create note")
		return domain.NewPipelineError(domain.ErrDatabaseError, "repository", "creating note").
			WithEntity(note.NoteID).WithCause(err)
	}

	r.log.WithFields(logrus.Fields{
		"note_id":      note.NoteID,
		"encounter_id": note.EncounterID,
	}).Info("Note created successfully")

	return nil
}

// GetByID retrieves a note by its ID
func (r *NoteRepository) GetByID(ctx context.Context, noteID string) (*domain.EnhancedSOAPNote, error) {
	query := `SELECT payload FROM soap_notes WHERE note_id = $1`

	var payload []byte
	err := r.db.QueryRow(ctx, query, noteID).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewPipelineError(domain.ErrDatabaseError, "repository", "getting note").
			WithEntity(noteID).WithCause(err)
	}

	var note domain.EnhancedSOAPNote
	if err := json.Unmarshal(payload, &note); err != nil {
		return nil, fmt.Errorf("decoding note %s: %w", noteID, err)
	}
	return &note, nil
}

// ListByEncounter returns all notes generated for an encounter, newest
// first.
func (r *NoteRepository) ListByEncounter(ctx context.Context, encounterID string) ([]domain.EnhancedSOAPNote, error) {
	query := `SELECT payload FROM soap_notes WHERE encounter_id = $1 ORDER BY generated_at DESC`

	rows, err := r.db.Query(ctx, query, encounterID)
	if err != nil {
		return nil, domain.NewPipelineError(domain.ErrDatabaseError, "repository", "listing notes").
			WithEntity(encounterID).WithCause(err)
	}
	defer rows.Close()

	var notes []domain.EnhancedSOAPNote
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		var note domain.EnhancedSOAPNote
		if err := json.Unmarshal(payload, &note); err != nil {
			return nil, fmt.Errorf("decoding note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
