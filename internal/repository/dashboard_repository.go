package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

// DashboardRepository aggregates entity counts for the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates a dashboard repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Counts returns headline totals scoped to one academic year. Teachers,
// classes and subjects are year-independent catalogues.
func (r *DashboardRepository) Counts(ctx context.Context, yearID string) (*models.DashboardCounts, error) {
	const query = `SELECT
       (SELECT COUNT(*) FROM students WHERE academic_year_id = $1) AS students,
       (SELECT COUNT(*) FROM teachers WHERE active = TRUE) AS teachers,
       (SELECT COUNT(*) FROM classes) AS classes,
       (SELECT COUNT(*) FROM subjects) AS subjects,
       (SELECT COUNT(*) FROM schedule_entries WHERE academic_year_id = $1) AS schedule_entries`

	var counts models.DashboardCounts
	if err := r.db.GetContext(ctx, &counts, query, yearID); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	return &counts, nil
}
