package models

import "time"

// Subject represents a taught discipline with its grading coefficient.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Level       string    `db:"level" json:"level"`
	Coefficient float64   `db:"coefficient" json:"coefficient"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures list filters for subjects.
type SubjectFilter struct {
	Level     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
