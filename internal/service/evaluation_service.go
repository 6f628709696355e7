package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type evaluationRepository interface {
	List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error)
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	Update(ctx context.Context, evaluation *models.Evaluation) error
	Delete(ctx context.Context, id string) error
	ClassAverages(ctx context.Context, classID, yearID, period string) ([]models.StudentAverage, error)
}

// EvaluationPayload is the create/update payload for an evaluation.
type EvaluationPayload struct {
	StudentID      string  `json:"student_id" validate:"required"`
	SubjectID      string  `json:"subject_id" validate:"required"`
	ClassID        string  `json:"class_id" validate:"required"`
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	Period         string  `json:"period" validate:"required,oneof=TRIMESTER_1 TRIMESTER_2 TRIMESTER_3"`
	Score          float64 `json:"score" validate:"gte=0,lte=20"`
	Coefficient    float64 `json:"coefficient" validate:"gt=0"`
}

// EvaluationService manages grading records and class averages.
type EvaluationService struct {
	repo      evaluationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEvaluationService instantiates EvaluationService.
func NewEvaluationService(repo evaluationRepository, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{repo: repo, validator: validate, logger: logger}
}

// List returns evaluations with pagination metadata.
func (s *EvaluationService) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, *models.Pagination, error) {
	evaluations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	return evaluations, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one evaluation.
func (s *EvaluationService) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	evaluation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	return evaluation, nil
}

// Create records a new score.
func (s *EvaluationService) Create(ctx context.Context, req EvaluationPayload) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	evaluation := &models.Evaluation{
		StudentID:      req.StudentID,
		SubjectID:      req.SubjectID,
		ClassID:        req.ClassID,
		AcademicYearID: req.AcademicYearID,
		Period:         models.EvaluationPeriod(strings.ToUpper(req.Period)),
		Score:          req.Score,
		Coefficient:    req.Coefficient,
	}
	if err := s.repo.Create(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}
	return evaluation, nil
}

// Update rewrites a score.
func (s *EvaluationService) Update(ctx context.Context, id string, req EvaluationPayload) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	evaluation, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	evaluation.StudentID = req.StudentID
	evaluation.SubjectID = req.SubjectID
	evaluation.ClassID = req.ClassID
	evaluation.AcademicYearID = req.AcademicYearID
	evaluation.Period = models.EvaluationPeriod(strings.ToUpper(req.Period))
	evaluation.Score = req.Score
	evaluation.Coefficient = req.Coefficient
	if err := s.repo.Update(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update evaluation")
	}
	return evaluation, nil
}

// Delete removes an evaluation.
func (s *EvaluationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evaluation")
	}
	return nil
}

// ClassAverages returns per-student weighted averages for a class and period.
func (s *EvaluationService) ClassAverages(ctx context.Context, classID, yearID, period string) ([]models.StudentAverage, error) {
	if classID == "" || yearID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id, academic year id and period are required")
	}
	averages, err := s.repo.ClassAverages(ctx, classID, yearID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute class averages")
	}
	return averages, nil
}
