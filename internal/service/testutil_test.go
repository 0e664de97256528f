package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testTables(t *testing.T) *knowledge.Tables {
	t.Helper()
	tables, err := knowledge.NewTables(nil, testLogger())
	require.NoError(t, err)
	return tables
}

func testPipelineConfig() *domain.PipelineConfig {
	return &domain.PipelineConfig{
		OpinionCount:                 5,
		SymptomDurationThresholdDays: 14,
		CouncilTimeout:               5 * time.Second,
		FreshnessWindowDays:          30,
	}
}

func intPtr(v int) *int {
	return &v
}

// scriptedGenerator returns pre-seeded opinions per seat; a nil entry makes
// that seat fail.
type scriptedGenerator struct {
	opinions []*domain.DiagnosticOpinion
	delay    time.Duration
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) GenerateOpinion(ctx context.Context, encounter *domain.EncounterCase, seat int) (*domain.DiagnosticOpinion, error) {
	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.delay):
		}
	}
	if seat >= len(g.opinions) || g.opinions[seat] == nil {
		return nil, errors.New("seat unavailable")
	}
	return g.opinions[seat], nil
}

func opinion(id, label string, confidence float64) *domain.DiagnosticOpinion {
	return &domain.DiagnosticOpinion{
		OpinionID:       id,
		RankedDiagnoses: []domain.RankedDiagnosis{{Label: label, Confidence: confidence}},
	}
}

// memoryFlagStore records flags in memory for pipeline tests.
type memoryFlagStore struct {
	saved map[string][]domain.ComplianceFlag
	fail  bool
}

func newMemoryFlagStore() *memoryFlagStore {
	return &memoryFlagStore{saved: make(map[string][]domain.ComplianceFlag)}
}

func (m *memoryFlagStore) SaveFlags(ctx context.Context, encounterID string, flags []domain.ComplianceFlag) error {
	if m.fail {
		return errors.New("store unavailable")
	}
	m.saved[encounterID] = flags
	return nil
}

func (m *memoryFlagStore) ListFlags(ctx context.Context, limit, offset int) ([]domain.StoredFlag, error) {
	return nil, nil
}

func (m *memoryFlagStore) CountEncounters(ctx context.Context) (int64, int64, error) {
	return int64(len(m.saved)), 0, nil
}

func (m *memoryFlagStore) SaveApproval(ctx context.Context, approval *domain.ApprovalFeedback) error {
	return nil
}

func (m *memoryFlagStore) GetApproval(ctx context.Context, noteID string) (*domain.ApprovalFeedback, error) {
	return nil, domain.ErrNotFound
}

func (m *memoryFlagStore) Close() error { return nil }
