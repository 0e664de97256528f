package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-reasoning-server/internal/domain"
)

func TestCheckComplianceOverdueSymptoms(t *testing.T) {
	svc := NewComplianceService(testTables(t), testPipelineConfig(), testLogger())
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		symptom      domain.Symptom
		history      *domain.PatientHistory
		wantFlags    int
		wantSeverity domain.AlertSeverity
	}{
		{
			name:      "no duration never flags",
			symptom:   domain.Symptom{Text: "persistent fever"},
			wantFlags: 0,
		},
		{
			name:      "below the review threshold",
			symptom:   domain.Symptom{Text: "persistent fever", DurationDays: intPtr(4)},
			wantFlags: 0,
		},
		{
			name:         "duration equal to the threshold already flags",
			symptom:      domain.Symptom{Text: "persistent fever", DurationDays: intPtr(5)},
			wantFlags:    1,
			wantSeverity: domain.WARNING_ALERT,
		},
		{
			name:         "duration at the urgent threshold escalates",
			symptom:      domain.Symptom{Text: "persistent fever", DurationDays: intPtr(10)},
			wantFlags:    1,
			wantSeverity: domain.CRITICAL_ALERT,
		},
		{
			name:    "documented assessment suppresses the flag",
			symptom: domain.Symptom{Text: "persistent fever", DurationDays: intPtr(8)},
			history: &domain.PatientHistory{
				AssessmentTerms: []string{"fever workup in progress"},
			},
			wantFlags: 0,
		},
		{
			name:    "unrelated assessment does not suppress",
			symptom: domain.Symptom{Text: "persistent fever", DurationDays: intPtr(8)},
			history: &domain.PatientHistory{
				AssessmentTerms: []string{"knee strain rehabilitation"},
			},
			wantFlags:    1,
			wantSeverity: domain.WARNING_ALERT,
		},
		{
			name:         "unknown symptom uses the configured default",
			symptom:      domain.Symptom{Text: "tingling sensation", DurationDays: intPtr(14)},
			wantFlags:    1,
			wantSeverity: domain.WARNING_ALERT,
		},
		{
			name:      "unknown symptom below the default threshold",
			symptom:   domain.Symptom{Text: "tingling sensation", DurationDays: intPtr(13)},
			wantFlags: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := svc.CheckCompliance([]domain.Symptom{tt.symptom}, tt.history, now)
			require.Len(t, flags, tt.wantFlags)
			if tt.wantFlags > 0 {
				flag := flags[0]
				assert.Equal(t, RuleOverdueSymptomReview, flag.RuleID)
				assert.Equal(t, tt.wantSeverity, flag.Severity)
				assert.Equal(t, tt.symptom.Text, flag.Symptom)
				assert.Equal(t, *tt.symptom.DurationDays, flag.DurationDays)
			}
		})
	}
}

func TestCheckComplianceStaleDocumentation(t *testing.T) {
	svc := NewComplianceService(testTables(t), testPipelineConfig(), testLogger())
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		history   *domain.PatientHistory
		wantFlags int
	}{
		{
			name:      "nil history",
			wantFlags: 0,
		},
		{
			name:      "unknown last update never flags",
			history:   &domain.PatientHistory{ConditionType: "critical"},
			wantFlags: 0,
		},
		{
			name: "critical condition flags after a day",
			history: &domain.PatientHistory{
				ConditionType: "critical",
				LastUpdated:   now.Add(-36 * time.Hour),
			},
			wantFlags: 1,
		},
		{
			name: "chronic condition within its window",
			history: &domain.PatientHistory{
				ConditionType: "chronic",
				LastUpdated:   now.Add(-20 * 24 * time.Hour),
			},
			wantFlags: 0,
		},
		{
			name: "chronic condition past its window",
			history: &domain.PatientHistory{
				ConditionType: "chronic",
				LastUpdated:   now.Add(-45 * 24 * time.Hour),
			},
			wantFlags: 1,
		},
		{
			name: "unknown condition type falls back to the configured window",
			history: &domain.PatientHistory{
				ConditionType: "experimental",
				LastUpdated:   now.Add(-60 * 24 * time.Hour),
			},
			wantFlags: 1,
		},
		{
			name: "unknown condition type inside the configured window",
			history: &domain.PatientHistory{
				ConditionType: "experimental",
				LastUpdated:   now.Add(-20 * 24 * time.Hour),
			},
			wantFlags: 0,
		},
		{
			name: "routine documentation past a quarter",
			history: &domain.PatientHistory{
				LastUpdated: now.Add(-100 * 24 * time.Hour),
			},
			wantFlags: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := svc.CheckCompliance(nil, tt.history, now)
			require.Len(t, flags, tt.wantFlags)
			if tt.wantFlags > 0 {
				assert.Equal(t, RuleStaleDocumentation, flags[0].RuleID)
				assert.Equal(t, domain.WARNING_ALERT, flags[0].Severity)
			}
		})
	}
}

func TestCheckComplianceCombinesRules(t *testing.T) {
	svc := NewComplianceService(testTables(t), testPipelineConfig(), testLogger())
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	symptoms := []domain.Symptom{
		{Text: "chest pain", DurationDays: intPtr(2)},
		{Text: "worsening cough", DurationDays: intPtr(30)},
	}
	history := &domain.PatientHistory{
		ConditionType: "acute",
		LastUpdated:   now.Add(-10 * 24 * time.Hour),
	}

	flags := svc.CheckCompliance(symptoms, history, now)
	require.Len(t, flags, 3)
	assert.Equal(t, RuleOverdueSymptomReview, flags[0].RuleID)
	assert.Equal(t, domain.WARNING_ALERT, flags[0].Severity)
	assert.Equal(t, RuleOverdueSymptomReview, flags[1].RuleID)
	assert.Equal(t, domain.CRITICAL_ALERT, flags[1].Severity)
	assert.Equal(t, RuleStaleDocumentation, flags[2].RuleID)
}
