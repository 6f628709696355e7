package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type recoveryRepository interface {
	Report(ctx context.Context, filter models.RecoveryFilter) ([]models.RecoveryRow, error)
	CreatePayment(ctx context.Context, payment *models.FeePayment) error
	ListPayments(ctx context.Context, studentID, yearID string) ([]models.FeePayment, error)
}

type recoveryStudentResolver interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type recoveryAuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RecordPaymentRequest records one fee instalment.
type RecordPaymentRequest struct {
	StudentID      string  `json:"student_id" validate:"required"`
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	Amount         float64 `json:"amount" validate:"gt=0"`
	Reference      string  `json:"reference"`
	PaidAt         string  `json:"paid_at,omitempty"`
	ActorID        string  `json:"-"`
}

// RecoveryService builds the fee recovery report and records payments.
type RecoveryService struct {
	repo      recoveryRepository
	students  recoveryStudentResolver
	audit     recoveryAuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRecoveryService instantiates RecoveryService.
func NewRecoveryService(repo recoveryRepository, students recoveryStudentResolver, audit recoveryAuditRecorder, validate *validator.Validate, logger *zap.Logger) *RecoveryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryService{repo: repo, students: students, audit: audit, validator: validate, logger: logger}
}

// Report returns the per-student fee positions plus a summary.
func (s *RecoveryService) Report(ctx context.Context, filter models.RecoveryFilter) ([]models.RecoveryRow, *models.RecoverySummary, error) {
	if filter.AcademicYearID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "academic year id is required")
	}
	rows, err := s.repo.Report(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build recovery report")
	}

	summary := &models.RecoverySummary{Students: len(rows)}
	for _, row := range rows {
		summary.Expected += row.Expected
		summary.Paid += row.Paid
		summary.Balance += row.Balance
		if row.Balance > 0 {
			summary.Debtors++
		}
	}
	return rows, summary, nil
}

// RecordPayment stores one instalment after checking the student exists.
func (s *RecoveryService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*models.FeePayment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	var paidAt time.Time
	if req.PaidAt != "" {
		parsed, err := time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid payment date, expected YYYY-MM-DD")
		}
		paidAt = parsed
	}

	var recordedBy *string
	if req.ActorID != "" {
		actor := req.ActorID
		recordedBy = &actor
	}
	payment := &models.FeePayment{
		StudentID:      req.StudentID,
		AcademicYearID: req.AcademicYearID,
		Amount:         req.Amount,
		PaidAt:         paidAt,
		Reference:      req.Reference,
		RecordedBy:     recordedBy,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if s.audit != nil {
		detail, _ := json.Marshal(map[string]interface{}{"amount": payment.Amount, "student_id": payment.StudentID})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     recordedBy,
			Action:     models.AuditActionPaymentRecord,
			Resource:   "fee_payment",
			ResourceID: &payment.ID,
			Detail:     detail,
		}); err != nil {
			s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionPaymentRecord), zap.Error(err))
		}
	}
	return payment, nil
}

// Payments lists the instalments of one student for a year.
func (s *RecoveryService) Payments(ctx context.Context, studentID, yearID string) ([]models.FeePayment, error) {
	if studentID == "" || yearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and academic year id are required")
	}
	payments, err := s.repo.ListPayments(ctx, studentID, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}
