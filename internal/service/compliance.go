package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// Compliance rule identifiers persisted with each flag.
const (
	RuleOverdueSymptomReview = "OVERDUE_SYMPTOM_REVIEW"
	RuleStaleDocumentation   = "STALE_DOCUMENTATION"
)

// ComplianceService evaluates documentation timeliness and completeness.
// Its flags describe the documentation process, never the patient.
type ComplianceService struct {
	logger               *logrus.Logger
	tables               *knowledge.Tables
	defaultThresholdDays int
	defaultWindowDays    int
}

// NewComplianceService creates a new compliance checker
func NewComplianceService(tables *knowledge.Tables, cfg *domain.PipelineConfig, logger *logrus.Logger) *ComplianceService {
	return &ComplianceService{
		logger:               logger,
		tables:               tables,
		defaultThresholdDays: cfg.SymptomDurationThresholdDays,
		defaultWindowDays:    cfg.FreshnessWindowDays,
	}
}

// CheckCompliance produces zero or more flags for one encounter. A symptom
// lasting exactly the threshold number of days is already overdue; the
// boundary is inclusive.
func (s *ComplianceService) CheckCompliance(symptoms []domain.Symptom, history *domain.PatientHistory, now time.Time) []domain.ComplianceFlag {
	var flags []domain.ComplianceFlag

	for _, symptom := range symptoms {
		if symptom.DurationDays == nil {
			continue
		}
		duration := *symptom.DurationDays

		threshold := s.tables.SymptomDurationThreshold(symptom.Text, s.defaultThresholdDays)
		if duration < threshold.ReviewDays {
			continue
		}
		if s.hasAssessmentFor(symptom, history) {
			continue
		}

		severity := domain.WARNING_ALERT
		if duration >= threshold.UrgentDays {
			severity = domain.CRITICAL_ALERT
		}
		flags = append(flags, domain.ComplianceFlag{
			RuleID:   RuleOverdueSymptomReview,
			Severity: severity,
			Message: fmt.Sprintf("Symptom %q has persisted %d days (review due at %d) without a documented assessment",
				symptom.Text, duration, threshold.ReviewDays),
			Symptom:      symptom.Text,
			DurationDays: duration,
		})
	}

	if flag, ok := s.checkFreshness(history, now); ok {
		flags = append(flags, flag)
	}

	if len(flags) > 0 {
		s.logger.WithField("flag_count", len(flags)).Debug("Compliance flags raised")
	}

	return flags
}

// hasAssessmentFor reports whether any documented assessment entry covers
// the symptom, by keyword overlap.
func (s *ComplianceService) hasAssessmentFor(symptom domain.Symptom, history *domain.PatientHistory) bool {
	if history == nil {
		return false
	}
	for _, term := range history.AssessmentTerms {
		if s.tables.KeywordOverlap(symptom.Text, term) > 0 {
			return true
		}
	}
	return false
}

// checkFreshness flags documentation older than the freshness window for
// the patient's condition type. Critical conditions need daily updates;
// routine care tolerates a quarter.
func (s *ComplianceService) checkFreshness(history *domain.PatientHistory, now time.Time) (domain.ComplianceFlag, bool) {
	if history == nil || history.LastUpdated.IsZero() {
		return domain.ComplianceFlag{}, false
	}

	windowDays := s.tables.FreshnessWindowDays(history.ConditionType, s.defaultWindowDays)
	age := now.Sub(history.LastUpdated)
	if age <= time.Duration(windowDays)*24*time.Hour {
		return domain.ComplianceFlag{}, false
	}

	ageDays := int(age.Hours() / 24)
	return domain.ComplianceFlag{
		RuleID:   RuleStaleDocumentation,
		Severity: domain.WARNING_ALERT,
		Message: fmt.Sprintf("Documentation last updated %d days ago, exceeding the %d-day window for %s care",
			ageDays, windowDays, conditionTypeLabel(history.ConditionType)),
	}, true
}

func conditionTypeLabel(conditionType string) string {
	if conditionType == "" {
		return "routine"
	}
	return conditionType
}
