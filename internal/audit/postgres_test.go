package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-reasoning-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{db: db}, mock
}

func TestPostgresStore_SaveFlags(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO encounters").
		WithArgs("enc-001", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO compliance_flags").
		WithArgs("enc-001", "OVERDUE_SYMPTOM_REVIEW", "WARNING", "overdue", "cough", 21).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.SaveFlags(context.Background(), "enc-001", []domain.ComplianceFlag{
		{
			RuleID:       "OVERDUE_SYMPTOM_REVIEW",
			Severity:     domain.WARNING_ALERT,
			Message:      "overdue",
			Symptom:      "cough",
			DurationDays: 21,
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFlags_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO encounters").
		WithArgs("enc-001", true).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.SaveFlags(context.Background(), "enc-001", []domain.ComplianceFlag{
		{RuleID: "OVERDUE_SYMPTOM_REVIEW", Severity: domain.WARNING_ALERT, Message: "overdue"},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountEncounters(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(10, 3))

	total, flagged, err := store.CountEncounters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	assert.Equal(t, int64(3), flagged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListFlags(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "encounter_id", "rule_id", "severity", "message", "symptom", "duration_days", "created_at"}).
		AddRow(int64(2), "enc-002", "STALE_DOCUMENTATION", "WARNING", "stale", "", 0, now).
		AddRow(int64(1), "enc-001", "OVERDUE_SYMPTOM_REVIEW", "CRITICAL", "overdue", "fever", 12, now)

	mock.ExpectQuery("SELECT id, encounter_id, rule_id").
		WithArgs(10, 0).
		WillReturnRows(rows)

	flags, err := store.ListFlags(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "STALE_DOCUMENTATION", flags[0].Flag.RuleID)
	assert.Equal(t, domain.CRITICAL_ALERT, flags[1].Flag.Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetApproval_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, note_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetApproval(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
