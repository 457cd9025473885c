package models

import "time"

// Allocation binds exactly one supervisor and zero-or-more students to a
// project. StudentIDs is ordered by assignment position and contains no
// duplicates; its length never exceeds the project's required student count.
type Allocation struct {
	ID           string    `db:"id" json:"id"`
	ProjectID    string    `db:"project_id" json:"project_id"`
	SupervisorID string    `db:"supervisor_id" json:"supervisor_id"`
	StudentIDs   []string  `db:"-" json:"student_ids"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AllocationDetail enriches Allocation with display context.
type AllocationDetail struct {
	Allocation
	ProjectTitle   string `db:"project_title" json:"project_title"`
	SupervisorName string `db:"supervisor_name" json:"supervisor_name"`
}

// BestEffortAllocationReport summarises one greedy matcher pass.
type BestEffortAllocationReport struct {
	SupervisorsBound int `json:"supervisors_bound"`
	StudentsAssigned int `json:"students_assigned"`
	ProjectsSkipped  int `json:"projects_skipped"`
}
