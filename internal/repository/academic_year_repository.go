package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

const academicYearColumns = "id, label, start_date, end_date, is_active, created_at, updated_at"

// AcademicYearRepository handles persistence for academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns academic years, most recent first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years ORDER BY start_date DESC", academicYearColumns)
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID loads an academic year by id.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years WHERE id = $1", academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindActive returns the single active academic year.
func (r *AcademicYearRepository) FindActive(ctx context.Context) (*models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years WHERE is_active = TRUE LIMIT 1", academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query); err != nil {
		return nil, err
	}
	return &year, nil
}

// Create stores a new academic year.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, label, start_date, end_date, is_active, created_at, updated_at) VALUES (:id, :label, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Activate marks one year active and every other year inactive in a single
// transaction, preserving the "exactly one active year" invariant.
func (r *AcademicYearRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate academic year: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE`, now); err != nil {
		return fmt.Errorf("deactivate academic years: %w", err)
	}

	var res sql.Result
	if res, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_active = TRUE, updated_at = $1 WHERE id = $2`, now, id); err != nil {
		return fmt.Errorf("activate academic year: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = fmt.Errorf("activate academic year: no such year %s", id)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activate academic year: %w", err)
	}
	return nil
}
