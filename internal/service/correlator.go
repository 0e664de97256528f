package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// CorrelatorService classifies each imaging finding against the patient's
// reported symptoms, detected artifacts and the prevalence table. Exactly
// one CorrelationResult is produced per finding; nothing is silently
// dropped.
type CorrelatorService struct {
	logger *logrus.Logger
	tables *knowledge.Tables
}

// NewCorrelatorService creates a new finding correlator
func NewCorrelatorService(tables *knowledge.Tables, logger *logrus.Logger) *CorrelatorService {
	return &CorrelatorService{
		logger: logger,
		tables: tables,
	}
}

// Correlate classifies every finding. Rules are checked in a fixed order
// chosen so the safety ordering Critical > Significant > Incidental >
// Artifact holds even when several rules match the same finding:
//
//  1. Critical watchlist terms in the description win outright.
//  2. A detected artifact of at least moderate severity in the finding's
//     region marks the finding Artifact.
//  3. A symptom in the same region with keyword overlap marks it
//     Significant (watchlist hits were already taken in step 1).
//  4. A prevalence table match with no symptom marks it Incidental with
//     the prevalence note attached.
//  5. Anything unexplained defaults to Significant rather than being
//     dropped.
//
// An empty symptom list never blocks correlation; unmatched findings fall
// through to the prevalence lookup.
func (s *CorrelatorService) Correlate(findings []domain.Finding, symptoms []domain.Symptom, artifacts []domain.Artifact) ([]domain.CorrelationResult, error) {
	results := make([]domain.CorrelationResult, 0, len(findings))

	for i := range findings {
		finding := &findings[i]
		if err := finding.Validate(); err != nil {
			return nil, domain.NewPipelineError(domain.ErrUpstreamUnavailable, "correlator", "malformed finding from imaging collaborator").
				WithEntity(finding.ID).WithCause(err)
		}

		result := s.classifyFinding(finding, symptoms, artifacts)
		if err := result.Validate(); err != nil {
			// Unreachable given the default-to-Significant fallback,
			// validated defensively.
			return nil, domain.NewPipelineError(domain.ErrAmbiguousMatch, "correlator", "finding could not be resolved to a classification").
				WithEntity(finding.ID).WithCause(err)
		}

		s.logger.WithFields(logrus.Fields{
			"finding_id":     result.FindingID,
			"classification": result.Classification.String(),
			"region":         finding.Region,
		}).Debug("Finding correlated")

		results = append(results, result)
	}

	return results, nil
}

func (s *CorrelatorService) classifyFinding(finding *domain.Finding, symptoms []domain.Symptom, artifacts []domain.Artifact) domain.CorrelationResult {
	result := domain.CorrelationResult{FindingID: finding.ID}

	if term, ok := s.tables.IsCriticalTerm(finding.Description); ok {
		result.Classification = domain.CRITICAL
		result.Reasoning = fmt.Sprintf("description matches critical watchlist condition %q", term)
		result.Action = "Immediate physician review required"
		if symptom, overlap := s.bestSymptomMatch(finding, symptoms); overlap > 0 {
			result.MatchedSymptom = symptom.Text
		}
		return result
	}

	if artifact, ok := regionArtifact(finding.Region, artifacts); ok {
		result.Classification = domain.ARTIFACT
		result.Reasoning = fmt.Sprintf("%s artifact of %s severity detected in the %s region",
			artifact.Kind, artifact.Severity, finding.Region)
		result.Action = "Consider repeat imaging"
		return result
	}

	if symptom, overlap := s.bestSymptomMatch(finding, symptoms); overlap > 0 {
		result.Classification = domain.SIGNIFICANT
		result.MatchedSymptom = symptom.Text
		result.Reasoning = fmt.Sprintf("finding correlates with reported symptom %q in the %s region", symptom.Text, finding.Region)
		result.Action = "Physician review recommended"
		return result
	}

	if entry, ok := s.tables.LookupPrevalence(finding.Description); ok {
		result.Classification = domain.INCIDENTAL
		result.PrevalenceNote = entry.PrevalenceNote()
		result.Reasoning = fmt.Sprintf("no matching symptom; %s is a common incidental finding (%s)",
			entry.ConditionName, result.PrevalenceNote)
		result.Action = "Document and follow up per guidelines"
		return result
	}

	// Conservative bias: an unexplained finding is flagged, never dropped.
	result.Classification = domain.SIGNIFICANT
	result.Reasoning = "finding is unexplained by symptoms, artifacts or prevalence data"
	result.Action = "Physician review recommended"
	return result
}

// bestSymptomMatch picks the same-region symptom with the highest keyword
// overlap against the finding description and its region's expected symptom
// vocabulary. Ties keep the earliest symptom in input order, so matching is
// deterministic.
func (s *CorrelatorService) bestSymptomMatch(finding *domain.Finding, symptoms []domain.Symptom) (domain.Symptom, int) {
	var best domain.Symptom
	bestOverlap := 0

	for _, symptom := range symptoms {
		region := symptom.Region
		if region == "" {
			region = s.tables.RegionForSymptom(symptom.Text)
		}
		if region != finding.Region {
			continue
		}

		overlap := s.tables.KeywordOverlap(finding.Description, symptom.Text)
		for _, expected := range s.tables.ExpectedSymptoms(region) {
			if s.tables.KeywordOverlap(symptom.Text, expected) > 0 && s.tables.KeywordOverlap(finding.Description, expected) > 0 {
				overlap++
				break
			}
		}

		if overlap > bestOverlap {
			best = symptom
			bestOverlap = overlap
		}
	}

	return best, bestOverlap
}

func regionArtifact(region string, artifacts []domain.Artifact) (domain.Artifact, bool) {
	for _, artifact := range artifacts {
		if artifact.Region == region && artifact.Severity.AtLeast(domain.SEVERITY_MODERATE) {
			return artifact, true
		}
	}
	return domain.Artifact{}, false
}
