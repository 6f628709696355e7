package models

import "time"

// FeePayment records one fee instalment paid by a student.
type FeePayment struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Amount         float64   `db:"amount" json:"amount"`
	PaidAt         time.Time `db:"paid_at" json:"paid_at"`
	Reference      string    `db:"reference" json:"reference"`
	RecordedBy     *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// RecoveryRow summarises the fee position of one student.
type RecoveryRow struct {
	StudentID   string  `db:"student_id" json:"student_id"`
	Matricule   string  `db:"matricule" json:"matricule"`
	StudentName string  `db:"student_name" json:"student_name"`
	ClassName   string  `db:"class_name" json:"class_name"`
	Expected    float64 `db:"expected" json:"expected"`
	Paid        float64 `db:"paid" json:"paid"`
	Balance     float64 `db:"balance" json:"balance"`
}

// RecoveryFilter scopes the fee recovery report.
type RecoveryFilter struct {
	AcademicYearID string
	ClassID        string
	OnlyDebtors    bool
}

// RecoverySummary totals the recovery report.
type RecoverySummary struct {
	Expected float64 `json:"expected"`
	Paid     float64 `json:"paid"`
	Balance  float64 `json:"balance"`
	Students int     `json:"students"`
	Debtors  int     `json:"debtors"`
}
