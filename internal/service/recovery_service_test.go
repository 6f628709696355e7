package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type stubRecoveryRepo struct {
	rows     []models.RecoveryRow
	payments []models.FeePayment
	created  *models.FeePayment
}

func (s *stubRecoveryRepo) Report(ctx context.Context, filter models.RecoveryFilter) ([]models.RecoveryRow, error) {
	return s.rows, nil
}

func (s *stubRecoveryRepo) CreatePayment(ctx context.Context, payment *models.FeePayment) error {
	payment.ID = "pay-1"
	s.created = payment
	return nil
}

func (s *stubRecoveryRepo) ListPayments(ctx context.Context, studentID, yearID string) ([]models.FeePayment, error) {
	return s.payments, nil
}

type stubStudentResolver struct {
	student *models.Student
}

func (s *stubStudentResolver) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

type captureAuditRecorder struct {
	logs []*models.AuditLog
}

func (c *captureAuditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	c.logs = append(c.logs, log)
	return nil
}

func TestRecoveryServiceReportSummary(t *testing.T) {
	repo := &stubRecoveryRepo{rows: []models.RecoveryRow{
		{StudentID: "st1", Expected: 150000, Paid: 50000, Balance: 100000},
		{StudentID: "st2", Expected: 150000, Paid: 150000, Balance: 0},
		{StudentID: "st3", Expected: 120000, Paid: 30000, Balance: 90000},
	}}
	svc := NewRecoveryService(repo, &stubStudentResolver{}, nil, nil, nil)

	rows, summary, err := svc.Report(context.Background(), models.RecoveryFilter{AcademicYearID: "y1"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, 420000.0, summary.Expected)
	assert.Equal(t, 230000.0, summary.Paid)
	assert.Equal(t, 190000.0, summary.Balance)
	assert.Equal(t, 3, summary.Students)
	assert.Equal(t, 2, summary.Debtors)
}

func TestRecoveryServiceReportRequiresYear(t *testing.T) {
	svc := NewRecoveryService(&stubRecoveryRepo{}, &stubStudentResolver{}, nil, nil, nil)

	_, _, err := svc.Report(context.Background(), models.RecoveryFilter{})
	require.Error(t, err)
}

func TestRecoveryServiceRecordPayment(t *testing.T) {
	repo := &stubRecoveryRepo{}
	audit := &captureAuditRecorder{}
	svc := NewRecoveryService(repo, &stubStudentResolver{student: &models.Student{ID: "st1"}}, audit, nil, nil)

	payment, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		StudentID:      "st1",
		AcademicYearID: "y1",
		Amount:         25000,
		Reference:      "RCP-17",
		PaidAt:         "2026-01-15",
		ActorID:        "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", payment.ID)
	assert.Equal(t, 2026, payment.PaidAt.Year())
	require.NotNil(t, payment.RecordedBy)
	assert.Equal(t, "u1", *payment.RecordedBy)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionPaymentRecord, audit.logs[0].Action)
}

func TestRecoveryServiceRecordPaymentUnknownStudent(t *testing.T) {
	svc := NewRecoveryService(&stubRecoveryRepo{}, &stubStudentResolver{}, nil, nil, nil)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		StudentID:      "ghost",
		AcademicYearID: "y1",
		Amount:         25000,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRecoveryServiceRecordPaymentRejectsBadInput(t *testing.T) {
	svc := NewRecoveryService(&stubRecoveryRepo{}, &stubStudentResolver{student: &models.Student{ID: "st1"}}, nil, nil, nil)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{StudentID: "st1", AcademicYearID: "y1", Amount: 0})
	require.Error(t, err)

	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{StudentID: "st1", AcademicYearID: "y1", Amount: 100, PaidAt: "15/01/2026"})
	require.Error(t, err)
}
