package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-reasoning-server/internal/domain"
)

func chestFinding(id, description string) domain.Finding {
	return domain.Finding{
		ID:            id,
		Region:        "chest",
		Description:   description,
		Modality:      domain.CT,
		RawConfidence: 0.85,
	}
}

func TestCorrelateClassification(t *testing.T) {
	svc := NewCorrelatorService(testTables(t), testLogger())

	tests := []struct {
		name               string
		finding            domain.Finding
		symptoms           []domain.Symptom
		artifacts          []domain.Artifact
		wantClassification domain.FindingClassification
		wantPrevalence     string
		wantSymptom        string
	}{
		{
			name:               "prevalence match with no symptoms is incidental",
			finding:            chestFinding("f1", "pulmonary nodule, right upper lobe"),
			wantClassification: domain.INCIDENTAL,
			wantPrevalence:     "25-50% of chest CTs",
		},
		{
			name:               "critical watchlist term wins outright",
			finding:            chestFinding("f2", "pneumothorax, left apex"),
			wantClassification: domain.CRITICAL,
		},
		{
			name:    "critical outranks artifact suppression",
			finding: chestFinding("f3", "suspected pulmonary embolism"),
			artifacts: []domain.Artifact{
				{Kind: domain.MOTION, Severity: domain.SEVERITY_SEVERE, Region: "chest"},
			},
			wantClassification: domain.CRITICAL,
		},
		{
			name:               "critical even with a prevalence entry in the description",
			finding:            chestFinding("f4", "pulmonary nodule with adjacent mass"),
			wantClassification: domain.CRITICAL,
		},
		{
			name:    "moderate artifact in region suppresses the finding",
			finding: chestFinding("f5", "hazy opacity at the left base"),
			artifacts: []domain.Artifact{
				{Kind: domain.MOTION, Severity: domain.SEVERITY_MODERATE, Region: "chest"},
			},
			wantClassification: domain.ARTIFACT,
		},
		{
			name:    "mild artifact does not suppress",
			finding: chestFinding("f6", "hazy opacity at the left base"),
			artifacts: []domain.Artifact{
				{Kind: domain.MOTION, Severity: domain.SEVERITY_MILD, Region: "chest"},
			},
			wantClassification: domain.SIGNIFICANT,
		},
		{
			name:    "artifact in a different region does not suppress",
			finding: chestFinding("f7", "hazy opacity at the left base"),
			artifacts: []domain.Artifact{
				{Kind: domain.METAL, Severity: domain.SEVERITY_SEVERE, Region: "spine"},
			},
			wantClassification: domain.SIGNIFICANT,
		},
		{
			name:    "symptom overlap in the same region is significant",
			finding: chestFinding("f8", "consolidation at the left chest base"),
			symptoms: []domain.Symptom{
				{Text: "productive cough with chest pain", Region: "chest"},
			},
			wantClassification: domain.SIGNIFICANT,
			wantSymptom:        "productive cough with chest pain",
		},
		{
			name:    "symptom match outranks prevalence",
			finding: chestFinding("f9", "pulmonary nodule, right upper lobe"),
			symptoms: []domain.Symptom{
				{Text: "shortness of breath with pulmonary complaints", Region: "chest"},
			},
			wantClassification: domain.SIGNIFICANT,
			wantSymptom:        "shortness of breath with pulmonary complaints",
		},
		{
			name:    "symptom in another region falls through to prevalence",
			finding: chestFinding("f10", "pulmonary nodule, right upper lobe"),
			symptoms: []domain.Symptom{
				{Text: "persistent headache", Region: "head"},
			},
			wantClassification: domain.INCIDENTAL,
			wantPrevalence:     "25-50% of chest CTs",
		},
		{
			name:               "unexplained finding defaults to significant",
			finding:            chestFinding("f11", "nonspecific linear density"),
			wantClassification: domain.SIGNIFICANT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := svc.Correlate([]domain.Finding{tt.finding}, tt.symptoms, tt.artifacts)
			require.NoError(t, err)
			require.Len(t, results, 1)

			result := results[0]
			assert.Equal(t, tt.finding.ID, result.FindingID)
			assert.Equal(t, tt.wantClassification, result.Classification)
			if tt.wantPrevalence != "" {
				assert.Equal(t, tt.wantPrevalence, result.PrevalenceNote)
			}
			if tt.wantSymptom != "" {
				assert.Equal(t, tt.wantSymptom, result.MatchedSymptom)
			}
			assert.NotEmpty(t, result.Reasoning)
			assert.NotEmpty(t, result.Action)
		})
	}
}

func TestCorrelateOneResultPerFinding(t *testing.T) {
	svc := NewCorrelatorService(testTables(t), testLogger())

	findings := []domain.Finding{
		chestFinding("f1", "pulmonary nodule, right upper lobe"),
		chestFinding("f2", "pneumothorax, left apex"),
		chestFinding("f3", "nonspecific linear density"),
	}

	results, err := svc.Correlate(findings, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, len(findings))
	for i, result := range results {
		assert.Equal(t, findings[i].ID, result.FindingID)
	}
}

func TestCorrelateSymptomRegionInference(t *testing.T) {
	svc := NewCorrelatorService(testTables(t), testLogger())

	// No explicit region on the symptom; "chest pain" must be assigned to
	// the chest region before matching.
	symptoms := []domain.Symptom{
		{Text: "sharp chest pain on inspiration"},
	}

	results, err := svc.Correlate([]domain.Finding{
		chestFinding("f1", "pleural effusion with chest wall thickening"),
	}, symptoms, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.SIGNIFICANT, results[0].Classification)
	assert.Equal(t, symptoms[0].Text, results[0].MatchedSymptom)
}

func TestCorrelateTieKeepsFirstSymptom(t *testing.T) {
	svc := NewCorrelatorService(testTables(t), testLogger())

	symptoms := []domain.Symptom{
		{Text: "worsening cough", Region: "chest"},
		{Text: "nighttime cough", Region: "chest"},
	}

	results, err := svc.Correlate([]domain.Finding{
		chestFinding("f1", "consolidation with cough-associated changes"),
	}, symptoms, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "worsening cough", results[0].MatchedSymptom)
}

func TestCorrelateMalformedFinding(t *testing.T) {
	svc := NewCorrelatorService(testTables(t), testLogger())

	findings := []domain.Finding{
		{ID: "f1", Region: "chest", Description: "", Modality: domain.CT},
	}

	results, err := svc.Correlate(findings, nil, nil)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, domain.IsPipelineCode(err, domain.ErrUpstreamUnavailable))

	var perr *domain.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "correlator", perr.Stage)
	assert.Equal(t, "f1", perr.EntityID)
}
