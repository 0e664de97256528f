package domain

import (
	"context"
)

// OpinionGenerator is the polymorphic capability provided by the external
// reasoning collaborator. Concrete backends are selected at startup by
// configuration, never by runtime type inspection. Implementations must not
// be assumed deterministic; identical-opinion collapse across calls is
// legitimate Strong consensus, not an error.
type OpinionGenerator interface {
	// GenerateOpinion produces one independent diagnostic opinion for the
	// encounter case. seat identifies the council seat requesting the
	// opinion so backends can vary sampling across seats.
	GenerateOpinion(ctx context.Context, encounter *EncounterCase, seat int) (*DiagnosticOpinion, error)

	// Name identifies the backend for logging and audit trails.
	Name() string
}

// ConfigManager provides access to validated application configuration.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetPipelineConfig() *PipelineConfig
	Validate() error
}

// FlagStore persists compliance flags and physician approval feedback for
// the external reporting collaborator. The pipeline itself only appends.
type FlagStore interface {
	SaveFlags(ctx context.Context, encounterID string, flags []ComplianceFlag) error
	ListFlags(ctx context.Context, limit, offset int) ([]StoredFlag, error)
	CountEncounters(ctx context.Context) (total int64, flagged int64, err error)
	SaveApproval(ctx context.Context, approval *ApprovalFeedback) error
	GetApproval(ctx context.Context, noteID string) (*ApprovalFeedback, error)
	Close() error
}

// NoteRepository persists assembled notes pending physician approval.
type NoteRepository interface {
	Create(ctx context.Context, note *EnhancedSOAPNote) error
	GetByID(ctx context.Context, noteID string) (*EnhancedSOAPNote, error)
	ListByEncounter(ctx context.Context, encounterID string) ([]EnhancedSOAPNote, error)
}

// StoredFlag is a persisted compliance flag with its encounter context.
type StoredFlag struct {
	ID          int64          `json:"id,omitempty"`
	EncounterID string         `json:"encounter_id"`
	Flag        ComplianceFlag `json:"flag"`
	CreatedAt   string         `json:"created_at,omitempty"`
}

// ApprovalFeedback records the physician's decision on an assembled note:
// agreement with the suggested assessment, or an override with notes. The
// approval workflow itself stays external; this is the audit record.
type ApprovalFeedback struct {
	ID                 int64  `json:"id,omitempty"`
	NoteID             string `json:"note_id"`
	EncounterID        string `json:"encounter_id"`
	SuggestedDiagnosis string `json:"suggested_diagnosis"`
	PhysicianDiagnosis string `json:"physician_diagnosis"`
	PhysicianAgreed    bool   `json:"physician_agreed"`
	Notes              string `json:"notes,omitempty"`
}
