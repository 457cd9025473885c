package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/velocity-vultures/pms-api/internal/models"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
)

type presentationSlotRepository interface {
	FindByProjectID(ctx context.Context, projectID string) (*models.PresentationSlot, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.PresentationSlot, error)
	ListByRoomForUpdate(ctx context.Context, exec sqlx.ExtContext, roomID string) ([]models.PresentationSlot, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, slot *models.PresentationSlot) error
	DeleteByProjectID(ctx context.Context, exec sqlx.ExtContext, projectID string) (bool, error)
	ListTimetable(ctx context.Context) ([]models.TimetableEntry, error)
}

type presentationAllocationReader interface {
	FindByProjectID(ctx context.Context, projectID string) (*models.Allocation, error)
	ListAll(ctx context.Context) ([]models.Allocation, error)
}

type presentationProjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

type presentationRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error)
	ListAll(ctx context.Context) ([]models.Room, error)
}

type gridProvider interface {
	Grid(ctx context.Context, ownerID string, kind models.OwnerKind) (models.AvailabilityGrid, error)
}

// AssignPresentationRequest books a presentation window for a project.
type AssignPresentationRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	RoomID    string `json:"room_id" validate:"required"`
	DayIndex  int    `json:"day_index"`
	StartBin  int    `json:"start_bin"`
}

// PresentationService is the scheduling engine. The slot finder intersects
// the availability grids of a room, the project's supervisor and its
// students, masks out windows already booked in the room, and offers the
// remaining ones. The scheduler books a window under a room-level lock so
// slots in the same room never overlap.
type PresentationService struct {
	slots       presentationSlotRepository
	allocations presentationAllocationReader
	projects    presentationProjectReader
	rooms       presentationRoomReader
	grids       gridProvider
	tx          txProvider
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
}

const timetableCacheKey = "pms:timetable"

// NewPresentationService wires the scheduling engine.
func NewPresentationService(
	slots presentationSlotRepository,
	allocations presentationAllocationReader,
	projects presentationProjectReader,
	rooms presentationRoomReader,
	grids gridProvider,
	tx txProvider,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
) *PresentationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresentationService{
		slots:       slots,
		allocations: allocations,
		projects:    projects,
		rooms:       rooms,
		grids:       grids,
		tx:          tx,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
	}
}

// AvailableSlots offers every window in which the room, the project's
// supervisor and all of its students are free and the room is not booked by
// another project. A project with no allocation, no students or a missing
// room simply has no candidates. The project's own booking is ignored so a
// committed slot can be re-offered when moving it.
func (s *PresentationService) AvailableSlots(ctx context.Context, projectID, roomID string) ([]models.SlotOption, error) {
	options := []models.SlotOption{}

	allocation, err := s.allocations.FindByProjectID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return options, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	if len(allocation.StudentIDs) == 0 {
		return options, nil
	}
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return options, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	grids := make([]models.AvailabilityGrid, 0, len(allocation.StudentIDs)+2)
	roomGrid, err := s.grids.Grid(ctx, roomID, models.OwnerKindRoom)
	if err != nil {
		return nil, err
	}
	grids = append(grids, roomGrid)
	supervisorGrid, err := s.grids.Grid(ctx, allocation.SupervisorID, models.OwnerKindSupervisor)
	if err != nil {
		return nil, err
	}
	grids = append(grids, supervisorGrid)
	for _, studentID := range allocation.StudentIDs {
		studentGrid, err := s.grids.Grid(ctx, studentID, models.OwnerKindStudent)
		if err != nil {
			return nil, err
		}
		grids = append(grids, studentGrid)
	}
	free := models.Intersect(grids...)

	booked, err := s.slots.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room bookings")
	}
	for _, slot := range booked {
		if slot.ProjectID == projectID {
			continue
		}
		for b := slot.StartBin; b < slot.StartBin+slot.DurationBins && b < models.GridBins; b++ {
			free[slot.DayIndex][b] = false
		}
	}

	for day := 0; day < models.GridDays; day++ {
		for start := 0; start <= models.GridBins-models.SlotDurationBins; start++ {
			fits := true
			for b := start; b < start+models.SlotDurationBins; b++ {
				if !free[day][b] {
					fits = false
					break
				}
			}
			if fits {
				options = append(options, models.SlotOption{
					DayIndex: day,
					StartBin: start,
					Label:    models.SlotLabel(day, start, models.SlotDurationBins),
				})
			}
		}
	}
	return options, nil
}

// AssignPresentation books a window for the project, replacing any previous
// booking it had. The room row is locked while checking for overlap, so two
// projects cannot land on the same window concurrently even when the room has
// no committed slots yet.
func (s *PresentationService) AssignPresentation(ctx context.Context, req AssignPresentationRequest) (*models.PresentationSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.DayIndex < 0 || req.DayIndex >= models.GridDays {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("day index must be between 0 and %d", models.GridDays-1))
	}
	if req.StartBin < 0 || req.StartBin > models.GridBins-models.SlotDurationBins {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("start bin must be between 0 and %d", models.GridBins-models.SlotDurationBins))
	}
	if _, err := s.projects.FindByID(ctx, req.ProjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	slot := &models.PresentationSlot{
		ProjectID:    req.ProjectID,
		RoomID:       req.RoomID,
		DayIndex:     req.DayIndex,
		StartBin:     req.StartBin,
		DurationBins: models.SlotDurationBins,
	}
	err := runInTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		// Locking the slot rows is not enough: FOR UPDATE cannot block a
		// concurrent insert into an empty window. The room row serializes
		// racing bookings the way the project row serializes allocations.
		if _, err := s.rooms.FindByIDForUpdate(ctx, exec, req.RoomID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "room not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
		}
		booked, err := s.slots.ListByRoomForUpdate(ctx, exec, req.RoomID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room bookings")
		}
		for _, other := range booked {
			if other.ProjectID == req.ProjectID || other.DayIndex != req.DayIndex {
				continue
			}
			if req.StartBin < other.StartBin+other.DurationBins && other.StartBin < req.StartBin+slot.DurationBins {
				return appErrors.Clone(appErrors.ErrConflict, "room is already booked for that window")
			}
		}
		if err := s.slots.Upsert(ctx, exec, slot); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book presentation slot")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordSlotBooked()
	}
	if err := s.cache.Invalidate(ctx, timetableCacheKey); err != nil {
		s.logger.Debug("timetable cache invalidation failed", zap.Error(err))
	}
	s.logger.Info("presentation booked",
		zap.String("project_id", req.ProjectID),
		zap.String("room_id", req.RoomID),
		zap.Int("day_index", req.DayIndex),
		zap.Int("start_bin", req.StartBin))
	return slot, nil
}

// UnassignPresentation releases a project's booking. Releasing a project that
// holds no booking is a no-op.
func (s *PresentationService) UnassignPresentation(ctx context.Context, projectID string) error {
	err := runInTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		if _, err := s.slots.DeleteByProjectID(ctx, exec, projectID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release presentation slot")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, timetableCacheKey); err != nil {
		s.logger.Debug("timetable cache invalidation failed", zap.Error(err))
	}
	s.logger.Info("presentation released", zap.String("project_id", projectID))
	return nil
}

// FindByProject returns the committed slot for a project.
func (s *PresentationService) FindByProject(ctx context.Context, projectID string) (*models.PresentationSlot, error) {
	slot, err := s.slots.FindByProjectID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "presentation slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load presentation slot")
	}
	return slot, nil
}

// Timetable returns every committed slot joined with display context.
func (s *PresentationService) Timetable(ctx context.Context) ([]models.TimetableEntry, error) {
	var cached []models.TimetableEntry
	if hit, err := s.cache.Get(ctx, timetableCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	entries, err := s.slots.ListTimetable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if err := s.cache.Set(ctx, timetableCacheKey, entries, 0); err != nil {
		s.logger.Debug("timetable cache write failed", zap.Error(err))
	}
	return entries, nil
}

// RunBestEffort is the greedy batch scheduler. For every allocated project
// without a booking it walks the rooms in stable order and commits the first
// offered window. Failures on one project never abort the pass.
func (s *PresentationService) RunBestEffort(ctx context.Context) (*models.BestEffortScheduleReport, error) {
	report := &models.BestEffortScheduleReport{}

	allocations, err := s.allocations.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}

	for _, allocation := range allocations {
		if _, err := s.slots.FindByProjectID(ctx, allocation.ProjectID); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing booking")
		}

		committed := false
		for _, room := range rooms {
			options, err := s.AvailableSlots(ctx, allocation.ProjectID, room.ID)
			if err != nil || len(options) == 0 {
				continue
			}
			req := AssignPresentationRequest{
				ProjectID: allocation.ProjectID,
				RoomID:    room.ID,
				DayIndex:  options[0].DayIndex,
				StartBin:  options[0].StartBin,
			}
			if _, err := s.AssignPresentation(ctx, req); err != nil {
				s.logger.Debug("best-effort booking skipped",
					zap.String("project_id", allocation.ProjectID),
					zap.String("room_id", room.ID), zap.Error(err))
				continue
			}
			committed = true
			break
		}
		if committed {
			report.SlotsCommitted++
		} else {
			report.ProjectsSkipped++
		}
	}

	s.logger.Info("best-effort scheduling pass finished",
		zap.Int("slots_committed", report.SlotsCommitted),
		zap.Int("projects_skipped", report.ProjectsSkipped))
	return report, nil
}
