package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/velocity-vultures/pms-api/internal/models"
)

// OwnerRepository resolves availability owners to their backing tables.
type OwnerRepository struct {
	db *sqlx.DB
}

// NewOwnerRepository constructs the repository.
func NewOwnerRepository(db *sqlx.DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

// Exists reports whether the owner row exists for the given kind.
func (r *OwnerRepository) Exists(ctx context.Context, ownerID string, kind models.OwnerKind) (bool, error) {
	var table string
	switch kind {
	case models.OwnerKindRoom:
		table = "rooms"
	case models.OwnerKindSupervisor:
		table = "supervisors"
	case models.OwnerKindStudent:
		table = "students"
	default:
		return false, fmt.Errorf("unknown owner kind %q", kind)
	}
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := r.db.GetContext(ctx, &exists, query, ownerID); err != nil {
		return false, fmt.Errorf("check owner: %w", err)
	}
	return exists, nil
}
