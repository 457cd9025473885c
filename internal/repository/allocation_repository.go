package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velocity-vultures/pms-api/internal/models"
)

// AllocationRepository handles persistence of project allocations and their
// ordered student membership.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts an allocation with an empty student set.
func (r *AllocationRepository) Create(ctx context.Context, exec sqlx.ExtContext, allocation *models.Allocation) error {
	if allocation.ID == "" {
		allocation.ID = uuid.NewString()
	}
	allocation.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO allocations (id, project_id, supervisor_id, created_at)
VALUES (:id, :project_id, :supervisor_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, allocation); err != nil {
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

// FindByProjectID returns the allocation for a project with its student ids
// loaded in assignment order.
func (r *AllocationRepository) FindByProjectID(ctx context.Context, projectID string) (*models.Allocation, error) {
	return r.findByProject(ctx, r.db, projectID, false)
}

// FindByProjectIDForUpdate loads the allocation with a row lock inside a
// transaction so membership and capacity can be re-validated under the lock.
func (r *AllocationRepository) FindByProjectIDForUpdate(ctx context.Context, exec sqlx.ExtContext, projectID string) (*models.Allocation, error) {
	return r.findByProject(ctx, r.exec(exec), projectID, true)
}

func (r *AllocationRepository) findByProject(ctx context.Context, q sqlx.ExtContext, projectID string, lock bool) (*models.Allocation, error) {
	query := `SELECT id, project_id, supervisor_id, created_at FROM allocations WHERE project_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var allocation models.Allocation
	if err := sqlx.GetContext(ctx, q, &allocation, query, projectID); err != nil {
		return nil, err
	}
	ids, err := r.studentIDs(ctx, q, allocation.ID)
	if err != nil {
		return nil, err
	}
	allocation.StudentIDs = ids
	return &allocation, nil
}

func (r *AllocationRepository) studentIDs(ctx context.Context, q sqlx.ExtContext, allocationID string) ([]string, error) {
	const query = `SELECT student_id FROM allocation_students WHERE allocation_id = $1 ORDER BY position ASC`
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, query, allocationID); err != nil {
		return nil, fmt.Errorf("list allocation students: %w", err)
	}
	return ids, nil
}

// ListAll enumerates allocations in stable ascending order, students loaded.
func (r *AllocationRepository) ListAll(ctx context.Context) ([]models.Allocation, error) {
	const query = `SELECT id, project_id, supervisor_id, created_at FROM allocations ORDER BY created_at ASC, id ASC`
	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	for i := range allocations {
		ids, err := r.studentIDs(ctx, r.db, allocations[i].ID)
		if err != nil {
			return nil, err
		}
		allocations[i].StudentIDs = ids
	}
	return allocations, nil
}

// ListDetails enumerates allocations joined with project and supervisor names.
func (r *AllocationRepository) ListDetails(ctx context.Context) ([]models.AllocationDetail, error) {
	const query = `SELECT a.id, a.project_id, a.supervisor_id, a.created_at,
p.title AS project_title, s.full_name AS supervisor_name
FROM allocations a
JOIN projects p ON p.id = a.project_id
JOIN supervisors s ON s.id = a.supervisor_id
ORDER BY a.created_at ASC, a.id ASC`
	var details []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &details, query); err != nil {
		return nil, fmt.Errorf("list allocation details: %w", err)
	}
	for i := range details {
		ids, err := r.studentIDs(ctx, r.db, details[i].ID)
		if err != nil {
			return nil, err
		}
		details[i].StudentIDs = ids
	}
	return details, nil
}

// AddStudent appends a student at the next position.
func (r *AllocationRepository) AddStudent(ctx context.Context, exec sqlx.ExtContext, allocationID, studentID string, position int) error {
	const query = `INSERT INTO allocation_students (allocation_id, student_id, position) VALUES ($1, $2, $3)`
	if _, err := r.exec(exec).ExecContext(ctx, query, allocationID, studentID, position); err != nil {
		return fmt.Errorf("add allocation student: %w", err)
	}
	return nil
}

// RemoveStudent detaches a student from the allocation.
func (r *AllocationRepository) RemoveStudent(ctx context.Context, exec sqlx.ExtContext, allocationID, studentID string) error {
	const query = `DELETE FROM allocation_students WHERE allocation_id = $1 AND student_id = $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, allocationID, studentID); err != nil {
		return fmt.Errorf("remove allocation student: %w", err)
	}
	return nil
}

// Delete removes the allocation; membership rows cascade.
func (r *AllocationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM allocations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	return nil
}
