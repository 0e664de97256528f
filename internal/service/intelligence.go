package service

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// IntelligenceService converts correlated findings and patient history into
// ICD-10 codes, critical alerts and drug-interaction warnings.
type IntelligenceService struct {
	logger *logrus.Logger
	tables *knowledge.Tables
}

// NewIntelligenceService creates a new clinical intelligence mapper
func NewIntelligenceService(tables *knowledge.Tables, logger *logrus.Logger) *IntelligenceService {
	return &IntelligenceService{
		logger: logger,
		tables: tables,
	}
}

// MapIntelligence derives codes and alerts for one encounter. The returned
// alert list is stable-ordered by severity (critical, warning, info) and
// then by insertion order, so rendering and tests are deterministic.
func (s *IntelligenceService) MapIntelligence(findings []domain.Finding, correlations []domain.CorrelationResult, medications []string) ([]domain.ICD10Entry, []domain.Alert) {
	descriptions := make(map[string]string, len(findings))
	for _, f := range findings {
		descriptions[f.ID] = f.Description
	}

	var codes []domain.ICD10Entry
	seenCodes := make(map[string]struct{})
	var alerts []domain.Alert

	for _, correlation := range correlations {
		description := descriptions[correlation.FindingID]

		for _, entry := range s.tables.MatchICD10(description) {
			if _, dup := seenCodes[entry.Code]; dup {
				continue
			}
			seenCodes[entry.Code] = struct{}{}
			codes = append(codes, entry)
		}

		if correlation.Classification == domain.CRITICAL {
			alerts = append(alerts, domain.Alert{
				Severity: domain.CRITICAL_ALERT,
				Message:  fmt.Sprintf("Critical finding requires immediate review: %s", description),
				Source:   correlation.FindingID,
			})
			continue
		}

		// Watchlist conditions always alert, whatever the classification;
		// they are never acceptable to downgrade.
		if term, ok := s.tables.IsCriticalTerm(description); ok {
			alerts = append(alerts, domain.Alert{
				Severity: domain.CRITICAL_ALERT,
				Message:  fmt.Sprintf("Watchlist condition %q present: %s", term, description),
				Source:   correlation.FindingID,
			})
		}
	}

	alerts = append(alerts, s.checkMedications(medications)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})

	s.logger.WithFields(logrus.Fields{
		"icd10_codes": len(codes),
		"alerts":      len(alerts),
	}).Debug("Clinical intelligence mapped")

	return codes, alerts
}

// checkMedications tests every unordered medication pair against the
// interaction table and scales the alert to the interaction severity.
func (s *IntelligenceService) checkMedications(medications []string) []domain.Alert {
	var alerts []domain.Alert
	for i := 0; i < len(medications); i++ {
		for j := i + 1; j < len(medications); j++ {
			entry, ok := s.tables.CheckInteraction(medications[i], medications[j])
			if !ok {
				continue
			}
			alerts = append(alerts, domain.Alert{
				Severity: entry.Severity.AlertSeverity(),
				Message:  fmt.Sprintf("Drug interaction (%s): %s + %s. %s", entry.Severity, entry.DrugA, entry.DrugB, entry.Note),
				Source:   fmt.Sprintf("%s+%s", entry.DrugA, entry.DrugB),
			})
		}
	}
	return alerts
}
