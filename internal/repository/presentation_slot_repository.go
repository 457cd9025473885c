package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velocity-vultures/pms-api/internal/models"
)

const slotColumns = `id, project_id, room_id, day_index, start_bin, duration_bins, created_at, updated_at`

// PresentationSlotRepository handles persistence of presentation bookings.
type PresentationSlotRepository struct {
	db *sqlx.DB
}

// NewPresentationSlotRepository constructs the repository.
func NewPresentationSlotRepository(db *sqlx.DB) *PresentationSlotRepository {
	return &PresentationSlotRepository{db: db}
}

func (r *PresentationSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByProjectID returns the slot booked for a project, if any.
func (r *PresentationSlotRepository) FindByProjectID(ctx context.Context, projectID string) (*models.PresentationSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM presentation_slots WHERE project_id = $1`, slotColumns)
	var slot models.PresentationSlot
	if err := r.db.GetContext(ctx, &slot, query, projectID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListByRoom returns every slot booked in a room.
func (r *PresentationSlotRepository) ListByRoom(ctx context.Context, roomID string) ([]models.PresentationSlot, error) {
	return r.listByRoom(ctx, r.db, roomID, false)
}

// ListByRoomForUpdate locks a room's slots inside a transaction so a booking
// can re-check for overlaps against current state before committing.
func (r *PresentationSlotRepository) ListByRoomForUpdate(ctx context.Context, exec sqlx.ExtContext, roomID string) ([]models.PresentationSlot, error) {
	return r.listByRoom(ctx, r.exec(exec), roomID, true)
}

func (r *PresentationSlotRepository) listByRoom(ctx context.Context, q sqlx.ExtContext, roomID string, lock bool) ([]models.PresentationSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM presentation_slots WHERE room_id = $1 ORDER BY day_index ASC, start_bin ASC`, slotColumns)
	if lock {
		query += ` FOR UPDATE`
	}
	var slots []models.PresentationSlot
	if err := sqlx.SelectContext(ctx, q, &slots, query, roomID); err != nil {
		return nil, fmt.Errorf("list room slots: %w", err)
	}
	return slots, nil
}

// Upsert creates or moves the slot for a project.
func (r *PresentationSlotRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, slot *models.PresentationSlot) error {
	now := time.Now().UTC()
	if slot.ID == "" {
		slot.ID = uuid.NewString()
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now
	const query = `INSERT INTO presentation_slots (id, project_id, room_id, day_index, start_bin, duration_bins, created_at, updated_at)
VALUES (:id, :project_id, :room_id, :day_index, :start_bin, :duration_bins, :created_at, :updated_at)
ON CONFLICT (project_id) DO UPDATE
SET room_id = EXCLUDED.room_id,
    day_index = EXCLUDED.day_index,
    start_bin = EXCLUDED.start_bin,
    duration_bins = EXCLUDED.duration_bins,
    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot); err != nil {
		return fmt.Errorf("upsert presentation slot: %w", err)
	}
	return nil
}

// DeleteByProjectID removes a project's slot. Reports whether a row existed.
func (r *PresentationSlotRepository) DeleteByProjectID(ctx context.Context, exec sqlx.ExtContext, projectID string) (bool, error) {
	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM presentation_slots WHERE project_id = $1`, projectID)
	if err != nil {
		return false, fmt.Errorf("delete presentation slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete presentation slot: %w", err)
	}
	return affected > 0, nil
}

// ListTimetable returns every committed slot joined with display context,
// ordered by day and start time.
func (r *PresentationSlotRepository) ListTimetable(ctx context.Context) ([]models.TimetableEntry, error) {
	const query = `SELECT ps.id, ps.project_id, ps.room_id, ps.day_index, ps.start_bin, ps.duration_bins, ps.created_at, ps.updated_at,
p.title AS project_title, r.name AS room_name, s.full_name AS supervisor_name
FROM presentation_slots ps
JOIN projects p ON p.id = ps.project_id
JOIN rooms r ON r.id = ps.room_id
LEFT JOIN allocations a ON a.project_id = ps.project_id
LEFT JOIN supervisors s ON s.id = a.supervisor_id
ORDER BY ps.day_index ASC, ps.start_bin ASC, r.name ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	return entries, nil
}
