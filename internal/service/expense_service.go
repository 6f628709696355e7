package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type expenseRepository interface {
	List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error)
	FindByID(ctx context.Context, id string) (*models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id string) error
	MonthlyTotals(ctx context.Context, yearID string) ([]models.ExpenseMonthlyTotal, error)
}

type expenseAuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ExpensePayload is the create/update payload for an expense.
type ExpensePayload struct {
	Label          string  `json:"label" validate:"required"`
	Category       string  `json:"category" validate:"required"`
	Amount         float64 `json:"amount" validate:"gt=0"`
	SpentAt        string  `json:"spent_at" validate:"required"`
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	ActorID        string  `json:"-"`
}

// ExpenseService manages the expense ledger.
type ExpenseService struct {
	repo      expenseRepository
	audit     expenseAuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExpenseService instantiates ExpenseService.
func NewExpenseService(repo expenseRepository, audit expenseAuditRecorder, validate *validator.Validate, logger *zap.Logger) *ExpenseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns expenses with pagination metadata.
func (s *ExpenseService) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	expenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expenses")
	}
	return expenses, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one expense.
func (s *ExpenseService) Get(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}
	return expense, nil
}

// Create records a new expense.
func (s *ExpenseService) Create(ctx context.Context, req ExpensePayload) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}
	spentAt, err := time.Parse("2006-01-02", req.SpentAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid spent date, expected YYYY-MM-DD")
	}

	var recordedBy *string
	if req.ActorID != "" {
		actor := req.ActorID
		recordedBy = &actor
	}
	expense := &models.Expense{
		Label:          req.Label,
		Category:       req.Category,
		Amount:         req.Amount,
		SpentAt:        spentAt,
		AcademicYearID: req.AcademicYearID,
		RecordedBy:     recordedBy,
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create expense")
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     recordedBy,
			Action:     models.AuditActionExpenseCreate,
			Resource:   "expense",
			ResourceID: &expense.ID,
		}); err != nil {
			s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionExpenseCreate), zap.Error(err))
		}
	}
	return expense, nil
}

// Update modifies an expense.
func (s *ExpenseService) Update(ctx context.Context, id string, req ExpensePayload) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}
	spentAt, err := time.Parse("2006-01-02", req.SpentAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid spent date, expected YYYY-MM-DD")
	}
	expense, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expense.Label = req.Label
	expense.Category = req.Category
	expense.Amount = req.Amount
	expense.SpentAt = spentAt
	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update expense")
	}
	return expense, nil
}

// Delete removes an expense.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete expense")
	}
	return nil
}

// MonthlyTotals aggregates spending per month for one year.
func (s *ExpenseService) MonthlyTotals(ctx context.Context, yearID string) ([]models.ExpenseMonthlyTotal, error) {
	if yearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year id is required")
	}
	totals, err := s.repo.MonthlyTotals(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate expenses")
	}
	return totals, nil
}
