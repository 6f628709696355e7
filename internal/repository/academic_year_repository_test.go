package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

func newAcademicYearRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAcademicYearRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newAcademicYearRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	rows := sqlmock.NewRows([]string{"id", "label", "start_date", "end_date", "is_active", "created_at", "updated_at"}).
		AddRow("y1", "2025-2026", time.Now(), time.Now(), true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, label, start_date, end_date, is_active, created_at, updated_at FROM academic_years WHERE is_active = TRUE LIMIT 1")).
		WillReturnRows(rows)

	year, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "y1", year.ID)
	assert.True(t, year.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryActivate(t *testing.T) {
	db, mock, cleanup := newAcademicYearRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = TRUE, updated_at = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), "y2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Activate(context.Background(), "y2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryActivateUnknownYearRollsBack(t *testing.T) {
	db, mock, cleanup := newAcademicYearRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = TRUE, updated_at = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such year")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAcademicYearRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectExec("INSERT INTO academic_years").
		WithArgs(sqlmock.AnyArg(), "2025-2026", sqlmock.AnyArg(), sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	year := &models.AcademicYear{Label: "2025-2026", StartDate: time.Now(), EndDate: time.Now().AddDate(0, 10, 0)}
	require.NoError(t, repo.Create(context.Background(), year))
	assert.NotEmpty(t, year.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
