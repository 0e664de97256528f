package service

import (
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// QualityService grades the technical quality of an imaging study by
// scanning finding descriptions and raw image metadata for artifact
// signatures.
type QualityService struct {
	logger *logrus.Logger
	tables *knowledge.Tables
}

// NewQualityService creates a new quality classifier
func NewQualityService(tables *knowledge.Tables, logger *logrus.Logger) *QualityService {
	return &QualityService{
		logger: logger,
		tables: tables,
	}
}

// ClassifyQuality scans the study for artifacts and computes a single
// quality grade under a worst-artifact-wins policy. It always returns a
// grade: a study with zero findings and clean metadata is Diagnostic with
// an empty artifact list.
func (s *QualityService) ClassifyQuality(findings []domain.Finding, imageMetadata []string) (domain.QualityGrade, []domain.Artifact) {
	var artifacts []domain.Artifact

	for _, finding := range findings {
		for _, kind := range s.tables.MatchArtifactKinds(finding.Description) {
			artifacts = append(artifacts, domain.Artifact{
				Kind:        kind,
				Severity:    knowledge.ArtifactSeverityFromText(finding.Description),
				Region:      finding.Region,
				Description: finding.Description,
			})
		}
	}

	for _, meta := range imageMetadata {
		for _, kind := range s.tables.MatchArtifactKinds(meta) {
			artifacts = append(artifacts, domain.Artifact{
				Kind:        kind,
				Severity:    knowledge.ArtifactSeverityFromText(meta),
				Description: meta,
			})
		}
	}

	grade := gradeForArtifacts(artifacts)

	s.logger.WithFields(logrus.Fields{
		"quality_grade":  grade.String(),
		"artifact_count": len(artifacts),
	}).Debug("Image quality classified")

	return grade, artifacts
}

// gradeForArtifacts applies the severity ordering severe > moderate > mild:
// any severe artifact forces NonDiagnostic, any moderate forces at least
// Degraded, only-mild yields Acceptable, none yields Diagnostic.
func gradeForArtifacts(artifacts []domain.Artifact) domain.QualityGrade {
	if len(artifacts) == 0 {
		return domain.DIAGNOSTIC
	}
	worst := domain.SEVERITY_NONE
	for _, a := range artifacts {
		if a.Severity.Level() > worst.Level() {
			worst = a.Severity
		}
	}
	switch worst {
	case domain.SEVERITY_SEVERE:
		return domain.NON_DIAGNOSTIC
	case domain.SEVERITY_MODERATE:
		return domain.DEGRADED
	case domain.SEVERITY_MILD:
		return domain.ACCEPTABLE
	default:
		return domain.DIAGNOSTIC
	}
}
