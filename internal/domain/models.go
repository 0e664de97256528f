package domain

import (
	"errors"
	"fmt"
	"time"
)

// Finding represents a discrete observation extracted from a medical image by
// the external imaging-analysis collaborator. Immutable once created.
type Finding struct {
	ID            string   `json:"id" validate:"required"`
	Region        string   `json:"region" validate:"required"`
	Description   string   `json:"description" validate:"required"`
	Modality      Modality `json:"modality" validate:"required"`
	RawConfidence float64  `json:"raw_confidence"`
}

// Validate ensures the finding data meets pipeline requirements before it
// enters classification.
func (f *Finding) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("finding validation: %w", errors.New("ID is required"))
	}
	if f.Description == "" {
		return fmt.Errorf("finding validation: %w", errors.New("description is required"))
	}
	if !f.Modality.IsValid() {
		return fmt.Errorf("finding validation: %w", ErrInvalidModality)
	}
	if f.RawConfidence < 0 || f.RawConfidence > 1 {
		return fmt.Errorf("finding validation: %w", errors.New("raw confidence must be in [0,1]"))
	}
	return nil
}

// Artifact represents a technical imaging defect degrading interpretability.
// Many artifacts may be derived from one finding or from image metadata.
type Artifact struct {
	Kind        ArtifactKind     `json:"kind"`
	Severity    ArtifactSeverity `json:"severity"`
	Region      string           `json:"region,omitempty"`
	Description string           `json:"description,omitempty"`
}

// Symptom represents a patient-reported symptom extracted from the encounter
// narrative. Duration is optional; upstream parsing may not provide it.
type Symptom struct {
	Text         string `json:"text"`
	Region       string `json:"region,omitempty"`
	DurationDays *int   `json:"duration_days,omitempty"`
}

// PrevalenceEntry is a static knowledge table row describing how common a
// finding is in an asymptomatic population.
type PrevalenceEntry struct {
	ConditionName         string   `json:"condition_name"`
	PopulationDescription string   `json:"population_description"`
	MinPct                float64  `json:"min_pct"`
	MaxPct                float64  `json:"max_pct"`
	SourceCitation        string   `json:"source_citation,omitempty"`
	Regions               []string `json:"regions,omitempty"`
	Note                  string   `json:"note,omitempty"`
}

// Note formats the prevalence context attached to an incidental finding,
// e.g. "25-50% of chest CTs".
func (pe *PrevalenceEntry) PrevalenceNote() string {
	return fmt.Sprintf("%s-%s%% of %s", trimFloat(pe.MinPct), trimFloat(pe.MaxPct), pe.PopulationDescription)
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// CorrelationResult is the classification of one imaging finding against the
// patient's presentation. Exactly one is produced per finding.
type CorrelationResult struct {
	FindingID      string                `json:"finding_id"`
	Classification FindingClassification `json:"classification"`
	MatchedSymptom string                `json:"matched_symptom,omitempty"`
	PrevalenceNote string                `json:"prevalence_note,omitempty"`
	Reasoning      string                `json:"reasoning,omitempty"`
	Action         string                `json:"recommended_action,omitempty"`
}

// Validate ensures the correlation result carries a valid classification and
// honors the invariants tying classification to supporting evidence.
func (cr *CorrelationResult) Validate() error {
	if cr.FindingID == "" {
		return fmt.Errorf("correlation validation: %w", errors.New("finding ID is required"))
	}
	if !cr.Classification.IsValid() {
		return fmt.Errorf("correlation validation: %w", ErrInvalidClassification)
	}
	if cr.Classification == INCIDENTAL && cr.PrevalenceNote == "" {
		return fmt.Errorf("correlation validation: %w", errors.New("incidental classification requires a prevalence note"))
	}
	return nil
}

// ICD10Entry maps trigger keywords in finding descriptions to standardized
// diagnosis codes.
type ICD10Entry struct {
	Code            string   `json:"code"`
	Label           string   `json:"label"`
	TriggerKeywords []string `json:"trigger_keywords"`
}

// DrugInteractionEntry is a static knowledge table row describing a known
// drug-drug interaction. Lookup is symmetric in (DrugA, DrugB).
type DrugInteractionEntry struct {
	DrugA    string              `json:"drug_a"`
	DrugB    string              `json:"drug_b"`
	Severity InteractionSeverity `json:"severity"`
	Note     string              `json:"note,omitempty"`
}

// Alert is an actionable warning surfaced to the physician. Alerts are the
// only entities appended to during pipeline traversal; all others are
// immutable after creation.
type Alert struct {
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
	Source   string        `json:"source"` // finding id, drug pair, or compliance rule id
}

// RankedDiagnosis is a single diagnosis candidate with its confidence.
type RankedDiagnosis struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DiagnosticOpinion is one independent reasoning pass over the encounter
// case. Diversity comes from the external reasoning collaborator; the
// pipeline only aggregates.
type DiagnosticOpinion struct {
	OpinionID        string            `json:"opinion_id"`
	RankedDiagnoses  []RankedDiagnosis `json:"ranked_diagnoses"`
	Reasoning        string            `json:"reasoning,omitempty"`
	RecommendedTests []string          `json:"recommended_tests,omitempty"`
	Urgency          Urgency           `json:"urgency,omitempty"`
}

// Top returns the opinion's top-ranked diagnosis, or false if the opinion is
// empty (empty opinions are excluded from consensus).
func (o *DiagnosticOpinion) Top() (RankedDiagnosis, bool) {
	if len(o.RankedDiagnoses) == 0 {
		return RankedDiagnosis{}, false
	}
	return o.RankedDiagnoses[0], true
}

// ConsensusResult summarizes agreement across diagnostic opinions.
type ConsensusResult struct {
	TopDiagnosis      string            `json:"top_diagnosis"`
	AgreementFraction float64           `json:"agreement_fraction"`
	Strength          ConsensusStrength `json:"strength"`
	MeanConfidence    float64           `json:"mean_confidence"`
	Dissenting        []string          `json:"dissenting,omitempty"`
	Urgency           Urgency           `json:"urgency,omitempty"`
	Summary           string            `json:"summary,omitempty"`
}

// ComplianceFlag is a documentation-process deficiency marker, not a clinical
// finding.
type ComplianceFlag struct {
	RuleID       string        `json:"rule_id"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	Symptom      string        `json:"symptom,omitempty"`
	DurationDays int           `json:"duration_days,omitempty"`
}

// EncounterCase is the normalized per-encounter input consumed by the
// pipeline: transcript-derived symptoms, structured history, and imaging
// findings from the external collaborators.
type EncounterCase struct {
	EncounterID    string         `json:"encounter_id"`
	Narrative      string         `json:"narrative,omitempty"`
	ChiefComplaint string         `json:"chief_complaint,omitempty"`
	Symptoms       []Symptom      `json:"symptoms"`
	Findings       []Finding      `json:"findings"`
	ImageMetadata  []string       `json:"image_metadata,omitempty"`
	History        PatientHistory `json:"history"`
}

// PatientHistory is the structured context from the EHR/history collaborator.
type PatientHistory struct {
	Medications     []string  `json:"medications"`
	Conditions      []string  `json:"conditions"`
	LastUpdated     time.Time `json:"last_updated,omitempty"`
	AssessmentTerms []string  `json:"assessment_terms,omitempty"` // symptoms covered by a documented assessment
	ConditionType   string    `json:"condition_type,omitempty"`   // critical, acute, chronic, routine
	SymptomOnset    time.Time `json:"symptom_onset,omitempty"`
}

// Validate ensures the encounter is processable.
func (ec *EncounterCase) Validate() error {
	if ec.EncounterID == "" {
		return fmt.Errorf("encounter validation: %w", errors.New("encounter ID is required"))
	}
	for i := range ec.Findings {
		if err := ec.Findings[i].Validate(); err != nil {
			return fmt.Errorf("encounter validation: finding %d: %w", i, err)
		}
	}
	return nil
}

// RouteRequest is a normalized incoming request considered by the tool
// router.
type RouteRequest struct {
	Intent   string `json:"intent"`
	HasImage bool   `json:"has_image"`
	HasAudio bool   `json:"has_audio"`
}

// RouteDecision is the router's pure classification of a request.
type RouteDecision struct {
	Kind   RouteKind `json:"kind"`
	Target string    `json:"target,omitempty"` // simple action name when Kind == ROUTE_SIMPLE
	Reason string    `json:"reason,omitempty"`
}

// ConsensusStatus marks whether consensus is present on an assembled note.
// A note must never carry an empty-but-valid ConsensusResult.
type ConsensusStatus string

const (
	CONSENSUS_AVAILABLE   ConsensusStatus = "AVAILABLE"
	CONSENSUS_UNAVAILABLE ConsensusStatus = "UNAVAILABLE"
)

// EnhancedSOAPNote is the single structured output of one encounter's
// pipeline run. Created once by the assembler, immutable afterwards;
// physician approval (external) is the only path to persistence.
type EnhancedSOAPNote struct {
	NoteID             string              `json:"note_id"`
	EncounterID        string              `json:"encounter_id"`
	Subjective         string              `json:"subjective"`
	Objective          string              `json:"objective"`
	Assessment         string              `json:"assessment"`
	Plan               string              `json:"plan"`
	QualityGrade       QualityGrade        `json:"quality_grade"`
	Artifacts          []Artifact          `json:"artifacts,omitempty"`
	CorrelationResults []CorrelationResult `json:"correlation_results"`
	CorrelationSummary string              `json:"correlation_summary,omitempty"`
	ICD10Codes         []ICD10Entry        `json:"icd10_codes"`
	Alerts             []Alert             `json:"alerts"`
	ConsensusStatus    ConsensusStatus     `json:"consensus_status"`
	Consensus          *ConsensusResult    `json:"consensus,omitempty"`
	Opinions           []DiagnosticOpinion `json:"opinions,omitempty"`
	ComplianceFlags    []ComplianceFlag    `json:"compliance_flags"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

// Validate enforces the all-or-nothing assembly invariant: a note either
// carries a real consensus or is explicitly marked unavailable.
func (n *EnhancedSOAPNote) Validate() error {
	if n.NoteID == "" {
		return fmt.Errorf("note validation: %w", errors.New("note ID is required"))
	}
	if n.EncounterID == "" {
		return fmt.Errorf("note validation: %w", errors.New("encounter ID is required"))
	}
	if !n.QualityGrade.IsValid() {
		return fmt.Errorf("note validation: %w", ErrInvalidQualityGrade)
	}
	switch n.ConsensusStatus {
	case CONSENSUS_AVAILABLE:
		if n.Consensus == nil {
			return fmt.Errorf("note validation: %w", errors.New("consensus marked available but missing"))
		}
		if !n.Consensus.Strength.IsValid() {
			return fmt.Errorf("note validation: %w", errors.New("consensus strength invalid"))
		}
	case CONSENSUS_UNAVAILABLE:
		if n.Consensus != nil {
			return fmt.Errorf("note validation: %w", errors.New("consensus marked unavailable but present"))
		}
	default:
		return fmt.Errorf("note validation: %w", errors.New("consensus status is required"))
	}
	return nil
}
