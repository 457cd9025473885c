package models

import "time"

// Student represents a capstone candidate registered in the institution.
type Student struct {
	ID            string    `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	Email         string    `db:"email" json:"email"`
	Program       string    `db:"program" json:"program"`
	HasProject    bool      `db:"has_project" json:"has_project"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Program    string
	HasProject *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
