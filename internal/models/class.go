package models

import "time"

// Class represents a class group (e.g. "6eme A") within a level.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	Capacity  int       `db:"capacity" json:"capacity"`
	FeeAmount float64   `db:"fee_amount" json:"fee_amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter captures list filters for classes.
type ClassFilter struct {
	Level     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
