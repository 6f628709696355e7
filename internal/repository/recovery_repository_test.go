package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

func newRecoveryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRecoveryRepositoryReport(t *testing.T) {
	db, mock, cleanup := newRecoveryRepoMock(t)
	defer cleanup()
	repo := NewRecoveryRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "matricule", "student_name", "class_name", "expected", "paid", "balance"}).
		AddRow("st1", "M001", "A. Ba", "6A", 150000.0, 50000.0, 100000.0).
		AddRow("st2", "M002", "B. Sow", "6A", 150000.0, 150000.0, 0.0)
	mock.ExpectQuery("LEFT JOIN").
		WithArgs("y1").
		WillReturnRows(rows)

	report, err := repo.Report(context.Background(), models.RecoveryFilter{AcademicYearID: "y1"})
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, 100000.0, report[0].Balance)
	assert.Equal(t, 0.0, report[1].Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoveryRepositoryReportDebtorsOnly(t *testing.T) {
	db, mock, cleanup := newRecoveryRepoMock(t)
	defer cleanup()
	repo := NewRecoveryRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "matricule", "student_name", "class_name", "expected", "paid", "balance"}).
		AddRow("st1", "M001", "A. Ba", "6A", 150000.0, 50000.0, 100000.0)
	mock.ExpectQuery(regexp.QuoteMeta("AND c.fee_amount - COALESCE(p.paid, 0) > 0")).
		WithArgs("y1", "c1").
		WillReturnRows(rows)

	report, err := repo.Report(context.Background(), models.RecoveryFilter{AcademicYearID: "y1", ClassID: "c1", OnlyDebtors: true})
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Positive(t, report[0].Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoveryRepositoryCreatePayment(t *testing.T) {
	db, mock, cleanup := newRecoveryRepoMock(t)
	defer cleanup()
	repo := NewRecoveryRepository(db)

	mock.ExpectExec("INSERT INTO fee_payments").
		WithArgs(sqlmock.AnyArg(), "st1", "y1", 25000.0, sqlmock.AnyArg(), "RCP-17", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.FeePayment{StudentID: "st1", AcademicYearID: "y1", Amount: 25000, Reference: "RCP-17"}
	require.NoError(t, repo.CreatePayment(context.Background(), payment))
	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.PaidAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
