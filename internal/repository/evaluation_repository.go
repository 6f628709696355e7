package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

const evaluationColumns = "id, student_id, subject_id, class_id, academic_year_id, period, score, coefficient, created_at, updated_at"

// EvaluationRepository handles persistence for evaluations.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository instantiates an evaluation repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// List returns evaluations matching provided filters.
func (r *EvaluationRepository) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error) {
	base := "FROM evaluations WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Period != "" {
		conditions = append(conditions, fmt.Sprintf("period = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.Period))
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"score": true, "period": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", evaluationColumns, base, sortBy, order, size, offset)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list evaluations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count evaluations: %w", err)
	}

	return evaluations, total, nil
}

// FindByID loads an evaluation by id.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	query := fmt.Sprintf("SELECT %s FROM evaluations WHERE id = $1", evaluationColumns)
	var evaluation models.Evaluation
	if err := r.db.GetContext(ctx, &evaluation, query, id); err != nil {
		return nil, err
	}
	return &evaluation, nil
}

// Create stores a new evaluation.
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	evaluation.CreatedAt = now
	evaluation.UpdatedAt = now

	const query = `INSERT INTO evaluations (id, student_id, subject_id, class_id, academic_year_id, period, score, coefficient, created_at, updated_at) VALUES (:id, :student_id, :subject_id, :class_id, :academic_year_id, :period, :score, :coefficient, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// Update modifies an evaluation record.
func (r *EvaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	evaluation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE evaluations SET student_id = :student_id, subject_id = :subject_id, class_id = :class_id, academic_year_id = :academic_year_id, period = :period, score = :score, coefficient = :coefficient, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	return nil
}

// Delete removes an evaluation by id.
func (r *EvaluationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM evaluations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	return nil
}

// ClassAverages computes the coefficient-weighted average per student for a
// class, year and grading period.
func (r *EvaluationRepository) ClassAverages(ctx context.Context, classID, yearID, period string) ([]models.StudentAverage, error) {
	const query = `SELECT e.student_id,
       s.full_name AS student_name,
       ROUND(SUM(e.score * e.coefficient) / NULLIF(SUM(e.coefficient), 0), 2) AS average,
       COUNT(*) AS evaluated
  FROM evaluations e
  JOIN students s ON s.id = e.student_id
 WHERE e.class_id = $1 AND e.academic_year_id = $2 AND e.period = $3
 GROUP BY e.student_id, s.full_name
 ORDER BY average DESC`

	var averages []models.StudentAverage
	if err := r.db.SelectContext(ctx, &averages, query, classID, yearID, strings.ToUpper(period)); err != nil {
		return nil, fmt.Errorf("class averages: %w", err)
	}
	return averages, nil
}
