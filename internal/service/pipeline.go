package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// PipelineService runs one encounter through the full clinical reasoning
// sequence: quality classification, finding correlation, intelligence
// mapping, council deliberation and compliance checking, then assembles the
// single structured note. Stage order is load-bearing; each stage consumes
// the previous stage's output and must not be reordered.
type PipelineService struct {
	logger       *logrus.Logger
	tables       *knowledge.Tables
	narrative    *NarrativeParserService
	quality      *QualityService
	correlator   *CorrelatorService
	intelligence *IntelligenceService
	council      *CouncilService
	compliance   *ComplianceService
	flagStore    domain.FlagStore // nil disables flag persistence
	now          func() time.Time
}

// NewPipelineService wires the pipeline stages together
func NewPipelineService(
	tables *knowledge.Tables,
	generator domain.OpinionGenerator,
	cfg *domain.PipelineConfig,
	flagStore domain.FlagStore,
	logger *logrus.Logger,
) *PipelineService {
	return &PipelineService{
		logger:       logger,
		tables:       tables,
		narrative:    NewNarrativeParserService(tables, logger),
		quality:      NewQualityService(tables, logger),
		correlator:   NewCorrelatorService(tables, logger),
		intelligence: NewIntelligenceService(tables, logger),
		council:      NewCouncilService(generator, cfg, logger),
		compliance:   NewComplianceService(tables, cfg, logger),
		flagStore:    flagStore,
		now:          time.Now,
	}
}

// ProcessEncounter executes the pipeline for one encounter. Assembly is
// all-or-nothing: an upstream failure propagates and no partial note is
// produced, since a partial clinical note is more dangerous than no note.
// The one tolerated degradation is a failed council, which yields a note
// explicitly marked as having no consensus while the correlation and
// intelligence results are still surfaced.
func (s *PipelineService) ProcessEncounter(ctx context.Context, encounter *domain.EncounterCase) (*domain.EnhancedSOAPNote, error) {
	startTime := s.now()

	if err := encounter.Validate(); err != nil {
		return nil, domain.NewPipelineError(domain.ErrInvalidInput, "pipeline", "encounter failed validation").
			WithEntity(encounter.EncounterID).WithCause(err)
	}

	// Structured symptoms win; the narrative is only parsed to fill a gap
	// left by the transcript collaborator.
	if len(encounter.Symptoms) == 0 && encounter.Narrative != "" {
		parsed := s.narrative.ParseNarrative(encounter.Narrative)
		encounter.Symptoms = parsed.Symptoms
		if encounter.ChiefComplaint == "" {
			encounter.ChiefComplaint = parsed.ChiefComplaint
		}
	}

	s.logger.WithFields(logrus.Fields{
		"encounter_id": encounter.EncounterID,
		"findings":     len(encounter.Findings),
		"symptoms":     len(encounter.Symptoms),
	}).Info("Starting encounter pipeline")

	if err := stageCtx(ctx, "quality"); err != nil {
		return nil, err
	}
	grade, artifacts := s.quality.ClassifyQuality(encounter.Findings, encounter.ImageMetadata)

	if err := stageCtx(ctx, "correlator"); err != nil {
		return nil, err
	}
	correlations, err := s.correlator.Correlate(encounter.Findings, encounter.Symptoms, artifacts)
	if err != nil {
		return nil, err
	}

	if err := stageCtx(ctx, "intelligence"); err != nil {
		return nil, err
	}
	codes, alerts := s.intelligence.MapIntelligence(encounter.Findings, correlations, encounter.History.Medications)

	if err := stageCtx(ctx, "council"); err != nil {
		return nil, err
	}
	consensus, opinions, err := s.council.Deliberate(ctx, encounter)
	if err != nil {
		if !domain.IsPipelineCode(err, domain.ErrInsufficientOpinions) {
			return nil, err
		}
		s.logger.WithError(err).WithField("encounter_id", encounter.EncounterID).
			Warn("Council produced no opinions, assembling note without consensus")
		consensus, opinions = nil, nil
	}

	if err := stageCtx(ctx, "compliance"); err != nil {
		return nil, err
	}
	flags := s.compliance.CheckCompliance(encounter.Symptoms, &encounter.History, s.now())

	note := assembleNote(encounter, grade, artifacts, correlations, codes, alerts, consensus, opinions, flags, s.now())
	if err := note.Validate(); err != nil {
		return nil, domain.NewPipelineError(domain.ErrInternalServer, "assembler", "assembled note failed validation").
			WithEntity(encounter.EncounterID).WithCause(err)
	}

	// Flag persistence feeds the external reporting collaborator; it is an
	// audit concern and must not block the note already in hand.
	if s.flagStore != nil {
		if err := s.flagStore.SaveFlags(ctx, encounter.EncounterID, flags); err != nil {
			s.logger.WithError(err).WithField("encounter_id", encounter.EncounterID).
				Warn("Failed to persist compliance flags")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"encounter_id":     encounter.EncounterID,
		"note_id":          note.NoteID,
		"quality_grade":    note.QualityGrade.String(),
		"alerts":           len(note.Alerts),
		"compliance_flags": len(note.ComplianceFlags),
		"consensus_status": string(note.ConsensusStatus),
		"duration_ms":      s.now().Sub(startTime).Milliseconds(),
	}).Info("Encounter pipeline completed")

	return note, nil
}

// stageCtx checks for cancellation before entering a stage. Once the note
// is assembled, cancellation has no effect.
func stageCtx(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewPipelineError(domain.ErrUpstreamUnavailable, stage, "pipeline cancelled").WithCause(err)
	}
	return nil
}

// assembleNote is a pure merge of the stage outputs into one note. It calls
// no external services and fails only through the caller's validation.
func assembleNote(
	encounter *domain.EncounterCase,
	grade domain.QualityGrade,
	artifacts []domain.Artifact,
	correlations []domain.CorrelationResult,
	codes []domain.ICD10Entry,
	alerts []domain.Alert,
	consensus *domain.ConsensusResult,
	opinions []domain.DiagnosticOpinion,
	flags []domain.ComplianceFlag,
	generatedAt time.Time,
) *domain.EnhancedSOAPNote {
	status := domain.CONSENSUS_UNAVAILABLE
	if consensus != nil {
		status = domain.CONSENSUS_AVAILABLE
	}

	return &domain.EnhancedSOAPNote{
		NoteID:             uuid.New().String(),
		EncounterID:        encounter.EncounterID,
		Subjective:         buildSubjective(encounter),
		Objective:          buildObjective(encounter, grade),
		Assessment:         buildAssessment(correlations, codes, consensus),
		Plan:               buildPlan(correlations, alerts, opinions),
		QualityGrade:       grade,
		Artifacts:          artifacts,
		CorrelationResults: correlations,
		CorrelationSummary: summarizeCorrelations(correlations),
		ICD10Codes:         codes,
		Alerts:             alerts,
		ConsensusStatus:    status,
		Consensus:          consensus,
		Opinions:           opinions,
		ComplianceFlags:    flags,
		GeneratedAt:        generatedAt,
	}
}

func buildSubjective(encounter *domain.EncounterCase) string {
	var b strings.Builder
	if encounter.ChiefComplaint != "" {
		fmt.Fprintf(&b, "Chief complaint: %s.", encounter.ChiefComplaint)
	}
	for _, symptom := range encounter.Symptoms {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		if symptom.DurationDays != nil {
			fmt.Fprintf(&b, "Reports %s for %d days.", symptom.Text, *symptom.DurationDays)
		} else {
			fmt.Fprintf(&b, "Reports %s.", symptom.Text)
		}
	}
	if b.Len() == 0 && encounter.Narrative != "" {
		return encounter.Narrative
	}
	if b.Len() == 0 {
		return "No subjective complaints documented."
	}
	return b.String()
}

func buildObjective(encounter *domain.EncounterCase, grade domain.QualityGrade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imaging quality: %s.", grade.String())
	for _, finding := range encounter.Findings {
		fmt.Fprintf(&b, " %s (%s, %s, confidence %.2f).",
			finding.Description, finding.Region, finding.Modality, finding.RawConfidence)
	}
	if len(encounter.Findings) == 0 {
		b.WriteString(" No imaging findings reported.")
	}
	return b.String()
}

func buildAssessment(correlations []domain.CorrelationResult, codes []domain.ICD10Entry, consensus *domain.ConsensusResult) string {
	var b strings.Builder
	for _, c := range correlations {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Finding %s classified %s: %s.", c.FindingID, c.Classification, c.Reasoning)
	}
	if len(codes) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		labels := make([]string, 0, len(codes))
		for _, code := range codes {
			labels = append(labels, fmt.Sprintf("%s %s", code.Code, code.Label))
		}
		fmt.Fprintf(&b, "Suggested codes for review: %s.", strings.Join(labels, "; "))
	}
	if consensus != nil {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Council consensus (%s, %.0f%% agreement) suggests %s for physician confirmation.",
			consensus.Strength, consensus.AgreementFraction*100, consensus.TopDiagnosis)
	} else {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Diagnostic consensus unavailable for this encounter.")
	}
	return b.String()
}

func buildPlan(correlations []domain.CorrelationResult, alerts []domain.Alert, opinions []domain.DiagnosticOpinion) string {
	var b strings.Builder
	seen := make(map[string]struct{})
	appendItem := func(item string) {
		if item == "" {
			return
		}
		if _, dup := seen[item]; dup {
			return
		}
		seen[item] = struct{}{}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(item)
		if !strings.HasSuffix(item, ".") {
			b.WriteString(".")
		}
	}

	for _, alert := range alerts {
		if alert.Severity == domain.CRITICAL_ALERT {
			appendItem("Address critical alert: " + alert.Message)
		}
	}
	for _, c := range correlations {
		appendItem(c.Action)
	}
	for _, opinion := range opinions {
		for _, test := range opinion.RecommendedTests {
			appendItem("Consider " + test)
		}
	}
	if b.Len() == 0 {
		return "Routine follow-up as clinically indicated."
	}
	return b.String()
}

func summarizeCorrelations(correlations []domain.CorrelationResult) string {
	counts := make(map[domain.FindingClassification]int)
	for _, c := range correlations {
		counts[c.Classification]++
	}
	order := []domain.FindingClassification{domain.CRITICAL, domain.SIGNIFICANT, domain.INCIDENTAL, domain.ARTIFACT}
	var parts []string
	for _, class := range order {
		if counts[class] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[class], strings.ToLower(class.String())))
		}
	}
	if len(parts) == 0 {
		return "no findings"
	}
	return strings.Join(parts, ", ")
}
