package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

// RecoveryRepository computes fee recovery positions and records payments.
type RecoveryRepository struct {
	db *sqlx.DB
}

// NewRecoveryRepository instantiates a recovery repository.
func NewRecoveryRepository(db *sqlx.DB) *RecoveryRepository {
	return &RecoveryRepository{db: db}
}

// Report returns the per-student fee position for a year, expected amount
// coming from the class fee and paid amount from the payments ledger.
func (r *RecoveryRepository) Report(ctx context.Context, filter models.RecoveryFilter) ([]models.RecoveryRow, error) {
	query := `SELECT s.id AS student_id,
       s.matricule,
       s.full_name AS student_name,
       c.name AS class_name,
       c.fee_amount AS expected,
       COALESCE(p.paid, 0) AS paid,
       c.fee_amount - COALESCE(p.paid, 0) AS balance
  FROM students s
  JOIN classes c ON c.id = s.class_id
  LEFT JOIN (
       SELECT student_id, SUM(amount) AS paid
         FROM fee_payments
        WHERE academic_year_id = $1
        GROUP BY student_id
  ) p ON p.student_id = s.id
 WHERE s.academic_year_id = $1`
	args := []interface{}{filter.AcademicYearID}

	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND s.class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.OnlyDebtors {
		query += " AND c.fee_amount - COALESCE(p.paid, 0) > 0"
	}
	query += " ORDER BY balance DESC, s.full_name ASC"

	var rows []models.RecoveryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("recovery report: %w", err)
	}
	return rows, nil
}

// CreatePayment records a fee instalment.
func (r *RecoveryRepository) CreatePayment(ctx context.Context, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	payment.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO fee_payments (id, student_id, academic_year_id, amount, paid_at, reference, recorded_by, created_at) VALUES (:id, :student_id, :academic_year_id, :amount, :paid_at, :reference, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create fee payment: %w", err)
	}
	return nil
}

// ListPayments returns every instalment paid by one student for a year.
func (r *RecoveryRepository) ListPayments(ctx context.Context, studentID, yearID string) ([]models.FeePayment, error) {
	const query = `SELECT id, student_id, academic_year_id, amount, paid_at, reference, recorded_by, created_at
  FROM fee_payments
 WHERE student_id = $1 AND academic_year_id = $2
 ORDER BY paid_at DESC`

	var payments []models.FeePayment
	if err := r.db.SelectContext(ctx, &payments, query, studentID, yearID); err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	return payments, nil
}
