package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-reasoning-server/internal/domain"
)

func TestMapIntelligenceCodes(t *testing.T) {
	svc := NewIntelligenceService(testTables(t), testLogger())

	findings := []domain.Finding{
		chestFinding("f1", "dense consolidation with airspace opacity"),
		chestFinding("f2", "small pleural effusion"),
		chestFinding("f3", "patchy consolidation at the right base"),
	}
	correlations := []domain.CorrelationResult{
		{FindingID: "f1", Classification: domain.SIGNIFICANT},
		{FindingID: "f2", Classification: domain.SIGNIFICANT},
		{FindingID: "f3", Classification: domain.SIGNIFICANT},
	}

	codes, alerts := svc.MapIntelligence(findings, correlations, nil)

	require.Len(t, codes, 2)
	assert.Equal(t, "J18.9", codes[0].Code)
	assert.Equal(t, "J90", codes[1].Code)
	assert.Empty(t, alerts)
}

func TestMapIntelligenceCriticalAlert(t *testing.T) {
	svc := NewIntelligenceService(testTables(t), testLogger())

	findings := []domain.Finding{
		chestFinding("f1", "large pneumothorax, left apex"),
	}
	correlations := []domain.CorrelationResult{
		{FindingID: "f1", Classification: domain.CRITICAL},
	}

	_, alerts := svc.MapIntelligence(findings, correlations, nil)

	require.Len(t, alerts, 1)
	assert.Equal(t, domain.CRITICAL_ALERT, alerts[0].Severity)
	assert.Equal(t, "f1", alerts[0].Source)
	assert.Contains(t, alerts[0].Message, "pneumothorax")
}

func TestMapIntelligenceWatchlistAlwaysAlerts(t *testing.T) {
	svc := NewIntelligenceService(testTables(t), testLogger())

	// The correlation was downgraded upstream; the watchlist term must
	// still raise a critical alert.
	findings := []domain.Finding{
		chestFinding("f1", "probable pneumothorax obscured by artifact"),
	}
	correlations := []domain.CorrelationResult{
		{FindingID: "f1", Classification: domain.ARTIFACT},
	}

	_, alerts := svc.MapIntelligence(findings, correlations, nil)

	require.Len(t, alerts, 1)
	assert.Equal(t, domain.CRITICAL_ALERT, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "pneumothorax")
}

func TestMapIntelligenceDrugInteractions(t *testing.T) {
	svc := NewIntelligenceService(testTables(t), testLogger())

	tests := []struct {
		name         string
		medications  []string
		wantAlerts   int
		wantSeverity domain.AlertSeverity
	}{
		{
			name:         "contraindicated pair is critical",
			medications:  []string{"Sildenafil", "Nitroglycerin"},
			wantAlerts:   1,
			wantSeverity: domain.CRITICAL_ALERT,
		},
		{
			name:         "order does not matter",
			medications:  []string{"Aspirin 81mg daily", "Warfarin 5mg"},
			wantAlerts:   1,
			wantSeverity: domain.CRITICAL_ALERT,
		},
		{
			name:         "moderate pair is a warning",
			medications:  []string{"Omeprazole", "Clopidogrel"},
			wantAlerts:   1,
			wantSeverity: domain.WARNING_ALERT,
		},
		{
			name:         "minor pair is informational",
			medications:  []string{"Metformin", "Furosemide"},
			wantAlerts:   1,
			wantSeverity: domain.INFO_ALERT,
		},
		{
			name:        "no known interaction",
			medications: []string{"Lisinopril", "Metformin"},
		},
		{
			name:        "single medication never alerts",
			medications: []string{"Warfarin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, alerts := svc.MapIntelligence(nil, nil, tt.medications)
			require.Len(t, alerts, tt.wantAlerts)
			if tt.wantAlerts > 0 {
				assert.Equal(t, tt.wantSeverity, alerts[0].Severity)
			}
		})
	}
}

func TestMapIntelligenceAlertOrdering(t *testing.T) {
	svc := NewIntelligenceService(testTables(t), testLogger())

	findings := []domain.Finding{
		chestFinding("f1", "pneumothorax, left apex"),
	}
	correlations := []domain.CorrelationResult{
		{FindingID: "f1", Classification: domain.CRITICAL},
	}
	medications := []string{"Metformin", "Furosemide", "Omeprazole", "Clopidogrel"}

	_, alerts := svc.MapIntelligence(findings, correlations, medications)

	require.Len(t, alerts, 3)
	assert.Equal(t, domain.CRITICAL_ALERT, alerts[0].Severity)
	assert.Equal(t, domain.WARNING_ALERT, alerts[1].Severity)
	assert.Equal(t, domain.INFO_ALERT, alerts[2].Severity)
	assert.Equal(t, "f1", alerts[0].Source)
}
