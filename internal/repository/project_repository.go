package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velocity-vultures/pms-api/internal/models"
)

const projectColumns = `id, title, description, required_students, eligible_programs, status, created_at, updated_at`

// ProjectRepository handles persistence of capstone projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a project, minting its id.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.Status == "" {
		project.Status = models.ProjectStatusOpen
	}
	const query = `INSERT INTO projects (id, title, description, required_students, eligible_programs, status, created_at, updated_at)
VALUES (:id, :title, :description, :required_students, :eligible_programs, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// FindByID returns a project by its ID.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDForUpdate loads a project with a row lock inside a transaction.
func (r *ProjectRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 FOR UPDATE`, projectColumns)
	var project models.Project
	if err := sqlx.GetContext(ctx, r.exec(exec), &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns projects filtered by the provided criteria.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	base := `FROM projects`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Program != "" {
		conditions = append(conditions, fmt.Sprintf("(eligible_programs = '{}' OR $%d = ANY(eligible_programs))", len(args)+1))
		args = append(args, filter.Program)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":      "title",
		"status":     "status",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d`,
		projectColumns, base+clause, orderBy, order, size, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}
	return projects, total, nil
}

// ListAll enumerates every project in stable ascending order. Both best-effort
// matchers depend on this order being identical across one pass.
func (r *ProjectRepository) ListAll(ctx context.Context) ([]models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects ORDER BY created_at ASC, id ASC`, projectColumns)
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("list all projects: %w", err)
	}
	return projects, nil
}

// Update rewrites the mutable project fields.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE projects SET title = :title, description = :description,
required_students = :required_students, eligible_programs = :eligible_programs, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// UpdateStatus stores the derived lifecycle status.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ProjectStatus) error {
	const query = `UPDATE projects SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	return nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}
