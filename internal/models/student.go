package models

import "time"

// Student represents an enrolled pupil attached to a class for a year.
type Student struct {
	ID             string    `db:"id" json:"id"`
	Matricule      string    `db:"matricule" json:"matricule"`
	FullName       string    `db:"full_name" json:"full_name"`
	ClassID        string    `db:"class_id" json:"class_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Guardian       *string   `db:"guardian" json:"guardian,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures list filters for students.
type StudentFilter struct {
	ClassID        string
	AcademicYearID string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
