package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/velocity-vultures/pms-api/internal/models"
)

// AvailabilityRepository handles persistence of availability grids.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Find returns the stored grid for an owner. Callers treat sql.ErrNoRows as
// "no grid stored" and apply the closed-world busy default.
func (r *AvailabilityRepository) Find(ctx context.Context, ownerID string, kind models.OwnerKind) (*models.Availability, error) {
	const query = `SELECT owner_id, owner_kind, slots, updated_at FROM availability WHERE owner_id = $1 AND owner_kind = $2`
	var availability models.Availability
	if err := r.db.GetContext(ctx, &availability, query, ownerID, kind); err != nil {
		return nil, err
	}
	return &availability, nil
}

// Upsert replaces the stored grid for an owner.
func (r *AvailabilityRepository) Upsert(ctx context.Context, availability *models.Availability) error {
	availability.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO availability (owner_id, owner_kind, slots, updated_at)
VALUES (:owner_id, :owner_kind, :slots, :updated_at)
ON CONFLICT (owner_id, owner_kind) DO UPDATE
SET slots = EXCLUDED.slots, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, availability); err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

// Delete removes an owner's stored grid.
func (r *AvailabilityRepository) Delete(ctx context.Context, ownerID string, kind models.OwnerKind) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability WHERE owner_id = $1 AND owner_kind = $2`, ownerID, kind); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}
