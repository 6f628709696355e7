package models

import "time"

// EvaluationPeriod identifies the grading period an evaluation belongs to.
type EvaluationPeriod string

const (
	PeriodTrimester1 EvaluationPeriod = "TRIMESTER_1"
	PeriodTrimester2 EvaluationPeriod = "TRIMESTER_2"
	PeriodTrimester3 EvaluationPeriod = "TRIMESTER_3"
)

// Evaluation records a score for a student in a subject for a grading period.
type Evaluation struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	SubjectID      string           `db:"subject_id" json:"subject_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	Period         EvaluationPeriod `db:"period" json:"period"`
	Score          float64          `db:"score" json:"score"`
	Coefficient    float64          `db:"coefficient" json:"coefficient"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EvaluationFilter captures list filters for evaluations.
type EvaluationFilter struct {
	StudentID      string
	SubjectID      string
	ClassID        string
	AcademicYearID string
	Period         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// StudentAverage aggregates the weighted average of a student for a period.
type StudentAverage struct {
	StudentID   string  `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	Average     float64 `db:"average" json:"average"`
	Evaluated   int     `db:"evaluated" json:"evaluated"`
}
