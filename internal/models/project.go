package models

import (
	"time"

	"github.com/lib/pq"
)

// ProjectStatus represents the lifecycle of a capstone project.
type ProjectStatus string

// Possible project statuses. ARCHIVED is terminal and never reverts.
const (
	ProjectStatusOpen     ProjectStatus = "OPEN"
	ProjectStatusFull     ProjectStatus = "FULL"
	ProjectStatusArchived ProjectStatus = "ARCHIVED"
)

// Project is a capstone project topic offered to students.
type Project struct {
	ID               string         `db:"id" json:"id"`
	Title            string         `db:"title" json:"title"`
	Description      string         `db:"description" json:"description"`
	RequiredStudents int            `db:"required_students" json:"required_students"`
	EligiblePrograms pq.StringArray `db:"eligible_programs" json:"eligible_programs"`
	Status           ProjectStatus  `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// IsProgramEligible reports whether a student program may join the project.
// An empty restriction set means any program is allowed.
func (p *Project) IsProgramEligible(program string) bool {
	if len(p.EligiblePrograms) == 0 {
		return true
	}
	for _, allowed := range p.EligiblePrograms {
		if allowed == program {
			return true
		}
	}
	return false
}

// ProjectFilter encapsulates allowed search parameters for listing projects.
type ProjectFilter struct {
	Search    string
	Status    ProjectStatus
	Program   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
