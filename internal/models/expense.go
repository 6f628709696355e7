package models

import "time"

// Expense records an outgoing payment within an academic year.
type Expense struct {
	ID             string    `db:"id" json:"id"`
	Label          string    `db:"label" json:"label"`
	Category       string    `db:"category" json:"category"`
	Amount         float64   `db:"amount" json:"amount"`
	SpentAt        time.Time `db:"spent_at" json:"spent_at"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	RecordedBy     *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ExpenseFilter captures list filters for expenses.
type ExpenseFilter struct {
	AcademicYearID string
	Category       string
	From           *time.Time
	To             *time.Time
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// ExpenseMonthlyTotal aggregates spending per calendar month.
type ExpenseMonthlyTotal struct {
	Month string  `db:"month" json:"month"`
	Total float64 `db:"total" json:"total"`
	Count int     `db:"count" json:"count"`
}
