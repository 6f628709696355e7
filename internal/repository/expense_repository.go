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

const expenseColumns = "id, label, category, amount, spent_at, academic_year_id, recorded_by, created_at, updated_at"

// ExpenseRepository handles persistence for expenses.
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository instantiates an expense repository.
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// List returns expenses matching provided filters.
func (r *ExpenseRepository) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	base := "FROM expenses WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("spent_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("spent_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"spent_at": true, "amount": true, "category": true}
	if !allowedSorts[sortBy] {
		sortBy = "spent_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", expenseColumns, base, sortBy, order, size, offset)
	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	return expenses, total, nil
}

// FindByID loads an expense by id.
func (r *ExpenseRepository) FindByID(ctx context.Context, id string) (*models.Expense, error) {
	query := fmt.Sprintf("SELECT %s FROM expenses WHERE id = $1", expenseColumns)
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, query, id); err != nil {
		return nil, err
	}
	return &expense, nil
}

// Create stores a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	expense.CreatedAt = now
	expense.UpdatedAt = now

	const query = `INSERT INTO expenses (id, label, category, amount, spent_at, academic_year_id, recorded_by, created_at, updated_at) VALUES (:id, :label, :category, :amount, :spent_at, :academic_year_id, :recorded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// Update modifies an expense record.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().UTC()
	const query = `UPDATE expenses SET label = :label, category = :category, amount = :amount, spent_at = :spent_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// Delete removes an expense by id.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// MonthlyTotals aggregates spending per calendar month for a year.
func (r *ExpenseRepository) MonthlyTotals(ctx context.Context, yearID string) ([]models.ExpenseMonthlyTotal, error) {
	const query = `SELECT TO_CHAR(spent_at, 'YYYY-MM') AS month,
       SUM(amount) AS total,
       COUNT(*) AS count
  FROM expenses
 WHERE academic_year_id = $1
 GROUP BY TO_CHAR(spent_at, 'YYYY-MM')
 ORDER BY month ASC`

	var totals []models.ExpenseMonthlyTotal
	if err := r.db.SelectContext(ctx, &totals, query, yearID); err != nil {
		return nil, fmt.Errorf("expense monthly totals: %w", err)
	}
	return totals, nil
}
