package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-reasoning-server/internal/domain"
)

func TestClassifyQuality(t *testing.T) {
	svc := NewQualityService(testTables(t), testLogger())

	tests := []struct {
		name          string
		findings      []domain.Finding
		metadata      []string
		wantGrade     domain.QualityGrade
		wantArtifacts int
	}{
		{
			name:      "no findings defaults to diagnostic",
			wantGrade: domain.DIAGNOSTIC,
		},
		{
			name: "clean findings are diagnostic",
			findings: []domain.Finding{
				{ID: "f1", Region: "chest", Description: "clear lung fields", Modality: domain.XRAY, RawConfidence: 0.9},
			},
			wantGrade: domain.DIAGNOSTIC,
		},
		{
			name: "mild artifact is acceptable",
			findings: []domain.Finding{
				{ID: "f1", Region: "chest", Description: "slight motion blur at the bases", Modality: domain.XRAY, RawConfidence: 0.8},
			},
			wantGrade:     domain.ACCEPTABLE,
			wantArtifacts: 1,
		},
		{
			name: "moderate artifact degrades the study",
			metadata: []string{
				"moderate ghosting across the field of view",
			},
			wantGrade:     domain.DEGRADED,
			wantArtifacts: 1,
		},
		{
			name: "any severe artifact forces non-diagnostic",
			findings: []domain.Finding{
				{ID: "f1", Region: "chest", Description: "slight blur", Modality: domain.CT, RawConfidence: 0.8},
			},
			metadata: []string{
				"severe metallic streak artifact from spinal hardware",
			},
			wantGrade:     domain.NON_DIAGNOSTIC,
			wantArtifacts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grade, artifacts := svc.ClassifyQuality(tt.findings, tt.metadata)
			assert.Equal(t, tt.wantGrade, grade)
			assert.Len(t, artifacts, tt.wantArtifacts)
		})
	}
}

func TestClassifyQualityArtifactRegions(t *testing.T) {
	svc := NewQualityService(testTables(t), testLogger())

	findings := []domain.Finding{
		{ID: "f1", Region: "chest", Description: "moderate motion artifact obscuring the left base", Modality: domain.XRAY, RawConfidence: 0.7},
	}

	grade, artifacts := svc.ClassifyQuality(findings, nil)
	assert.Equal(t, domain.DEGRADED, grade)
	require.Len(t, artifacts, 1)
	assert.Equal(t, domain.MOTION, artifacts[0].Kind)
	assert.Equal(t, domain.SEVERITY_MODERATE, artifacts[0].Severity)
	assert.Equal(t, "chest", artifacts[0].Region)
}
