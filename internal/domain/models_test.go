package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFinding() Finding {
	return Finding{
		ID:            "f1",
		Region:        "chest",
		Description:   "dense consolidation at the right base",
		Modality:      XRAY,
		RawConfidence: 0.9,
	}
}

func TestFindingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Finding)
		wantErr bool
	}{
		{name: "valid", mutate: func(f *Finding) {}},
		{name: "missing id", mutate: func(f *Finding) { f.ID = "" }, wantErr: true},
		{name: "missing description", mutate: func(f *Finding) { f.Description = "" }, wantErr: true},
		{name: "bad modality", mutate: func(f *Finding) { f.Modality = "ULTRASOUND" }, wantErr: true},
		{name: "confidence above one", mutate: func(f *Finding) { f.RawConfidence = 1.2 }, wantErr: true},
		{name: "negative confidence", mutate: func(f *Finding) { f.RawConfidence = -0.1 }, wantErr: true},
		{name: "zero confidence is allowed", mutate: func(f *Finding) { f.RawConfidence = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFinding()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrevalenceNote(t *testing.T) {
	tests := []struct {
		name  string
		entry PrevalenceEntry
		want  string
	}{
		{
			name:  "integer bounds",
			entry: PrevalenceEntry{MinPct: 25, MaxPct: 50, PopulationDescription: "chest CTs"},
			want:  "25-50% of chest CTs",
		},
		{
			name:  "fractional bounds keep their precision",
			entry: PrevalenceEntry{MinPct: 1.5, MaxPct: 2.5, PopulationDescription: "brain MRIs"},
			want:  "1.5-2.5% of brain MRIs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.PrevalenceNote())
		})
	}
}

func TestCorrelationResultValidate(t *testing.T) {
	valid := CorrelationResult{FindingID: "f1", Classification: SIGNIFICANT}
	assert.NoError(t, valid.Validate())

	missingID := CorrelationResult{Classification: SIGNIFICANT}
	assert.Error(t, missingID.Validate())

	badClass := CorrelationResult{FindingID: "f1", Classification: "BENIGN"}
	assert.Error(t, badClass.Validate())

	incidentalWithoutNote := CorrelationResult{FindingID: "f1", Classification: INCIDENTAL}
	assert.Error(t, incidentalWithoutNote.Validate())

	incidentalWithNote := CorrelationResult{
		FindingID:      "f1",
		Classification: INCIDENTAL,
		PrevalenceNote: "25-50% of chest CTs",
	}
	assert.NoError(t, incidentalWithNote.Validate())
}

func TestOpinionTop(t *testing.T) {
	empty := DiagnosticOpinion{OpinionID: "op-1"}
	_, ok := empty.Top()
	assert.False(t, ok)

	ranked := DiagnosticOpinion{
		OpinionID: "op-2",
		RankedDiagnoses: []RankedDiagnosis{
			{Label: "Pneumonia", Confidence: 0.9},
			{Label: "Bronchitis", Confidence: 0.4},
		},
	}
	top, ok := ranked.Top()
	require.True(t, ok)
	assert.Equal(t, "Pneumonia", top.Label)
}

func TestEncounterCaseValidate(t *testing.T) {
	valid := EncounterCase{EncounterID: "enc-1", Findings: []Finding{validFinding()}}
	assert.NoError(t, valid.Validate())

	missingID := EncounterCase{}
	assert.Error(t, missingID.Validate())

	badFinding := EncounterCase{EncounterID: "enc-1", Findings: []Finding{{ID: "f1"}}}
	assert.Error(t, badFinding.Validate())

	// Findings are optional; an encounter may be narrative only.
	narrativeOnly := EncounterCase{EncounterID: "enc-1", Narrative: "routine visit"}
	assert.NoError(t, narrativeOnly.Validate())
}

func TestEnhancedSOAPNoteValidate(t *testing.T) {
	base := func() EnhancedSOAPNote {
		return EnhancedSOAPNote{
			NoteID:          "n1",
			EncounterID:     "enc-1",
			QualityGrade:    DIAGNOSTIC,
			ConsensusStatus: CONSENSUS_UNAVAILABLE,
		}
	}

	valid := base()
	assert.NoError(t, valid.Validate())

	withConsensus := base()
	withConsensus.ConsensusStatus = CONSENSUS_AVAILABLE
	withConsensus.Consensus = &ConsensusResult{TopDiagnosis: "Pneumonia", Strength: STRONG}
	assert.NoError(t, withConsensus.Validate())

	availableButMissing := base()
	availableButMissing.ConsensusStatus = CONSENSUS_AVAILABLE
	assert.Error(t, availableButMissing.Validate())

	unavailableButPresent := base()
	unavailableButPresent.Consensus = &ConsensusResult{TopDiagnosis: "Pneumonia", Strength: STRONG}
	assert.Error(t, unavailableButPresent.Validate())

	missingStatus := base()
	missingStatus.ConsensusStatus = ""
	assert.Error(t, missingStatus.Validate())

	badStrength := base()
	badStrength.ConsensusStatus = CONSENSUS_AVAILABLE
	badStrength.Consensus = &ConsensusResult{TopDiagnosis: "Pneumonia", Strength: "OVERWHELMING"}
	assert.Error(t, badStrength.Validate())

	badGrade := base()
	badGrade.QualityGrade = "PRISTINE"
	assert.Error(t, badGrade.Validate())
}
