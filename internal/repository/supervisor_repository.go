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

const supervisorColumns = `id, full_name, email, department, created_at, updated_at`

// SupervisorRepository handles persistence of supervisors.
type SupervisorRepository struct {
	db *sqlx.DB
}

// NewSupervisorRepository constructs the repository.
func NewSupervisorRepository(db *sqlx.DB) *SupervisorRepository {
	return &SupervisorRepository{db: db}
}

// Create inserts a supervisor, minting its id.
func (r *SupervisorRepository) Create(ctx context.Context, supervisor *models.Supervisor) error {
	if supervisor.ID == "" {
		supervisor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	supervisor.CreatedAt = now
	supervisor.UpdatedAt = now
	const query = `INSERT INTO supervisors (id, full_name, email, department, created_at, updated_at)
VALUES (:id, :full_name, :email, :department, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, supervisor); err != nil {
		return fmt.Errorf("create supervisor: %w", err)
	}
	return nil
}

// FindByID returns a supervisor by its ID.
func (r *SupervisorRepository) FindByID(ctx context.Context, id string) (*models.Supervisor, error) {
	query := fmt.Sprintf(`SELECT %s FROM supervisors WHERE id = $1`, supervisorColumns)
	var supervisor models.Supervisor
	if err := r.db.GetContext(ctx, &supervisor, query, id); err != nil {
		return nil, err
	}
	return &supervisor, nil
}

// List returns supervisors filtered by the provided criteria.
func (r *SupervisorRepository) List(ctx context.Context, filter models.SupervisorFilter) ([]models.Supervisor, int, error) {
	base := `FROM supervisors`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"department": "department",
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
		supervisorColumns, base+clause, orderBy, order, size, offset)

	var supervisors []models.Supervisor
	if err := r.db.SelectContext(ctx, &supervisors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list supervisors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count supervisors: %w", err)
	}
	return supervisors, total, nil
}

// ListAll enumerates every supervisor in stable ascending order.
func (r *SupervisorRepository) ListAll(ctx context.Context) ([]models.Supervisor, error) {
	query := fmt.Sprintf(`SELECT %s FROM supervisors ORDER BY created_at ASC, id ASC`, supervisorColumns)
	var supervisors []models.Supervisor
	if err := r.db.SelectContext(ctx, &supervisors, query); err != nil {
		return nil, fmt.Errorf("list all supervisors: %w", err)
	}
	return supervisors, nil
}

// Update rewrites the mutable supervisor fields.
func (r *SupervisorRepository) Update(ctx context.Context, supervisor *models.Supervisor) error {
	supervisor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE supervisors SET full_name = :full_name, email = :email,
department = :department, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, supervisor); err != nil {
		return fmt.Errorf("update supervisor: %w", err)
	}
	return nil
}

// Delete removes a supervisor.
func (r *SupervisorRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM supervisors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete supervisor: %w", err)
	}
	return nil
}
