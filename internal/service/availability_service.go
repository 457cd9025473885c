package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/velocity-vultures/pms-api/internal/models"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
)

type availabilityRepository interface {
	Find(ctx context.Context, ownerID string, kind models.OwnerKind) (*models.Availability, error)
	Upsert(ctx context.Context, availability *models.Availability) error
	Delete(ctx context.Context, ownerID string, kind models.OwnerKind) error
}

type ownerChecker interface {
	Exists(ctx context.Context, ownerID string, kind models.OwnerKind) (bool, error)
}

// AvailabilityService stores and serves free/busy grids. An owner without a
// stored grid is busy everywhere (closed-world), so freshly created
// supervisors and students never leak phantom free time.
type AvailabilityService struct {
	availability availabilityRepository
	owners       ownerChecker
	logger       *zap.Logger
}

// NewAvailabilityService wires the availability store.
func NewAvailabilityService(availability availabilityRepository, owners ownerChecker, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{availability: availability, owners: owners, logger: logger}
}

// Get returns the owner's stored grid, or the all-busy default when none is
// stored. The owner itself must exist.
func (s *AvailabilityService) Get(ctx context.Context, ownerID string, kind models.OwnerKind) (*models.Availability, error) {
	if !models.ValidOwnerKind(kind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown availability owner kind")
	}
	if err := s.checkOwner(ctx, ownerID, kind); err != nil {
		return nil, err
	}
	availability, err := s.availability.Find(ctx, ownerID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Availability{OwnerID: ownerID, OwnerKind: kind, Slots: models.NewGrid(false)}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	availability.Slots = availability.Slots.Normalize()
	return availability, nil
}

// Grid is the scheduling-facing accessor: just the normalized cells, with the
// all-busy default applied.
func (s *AvailabilityService) Grid(ctx context.Context, ownerID string, kind models.OwnerKind) (models.AvailabilityGrid, error) {
	availability, err := s.availability.Find(ctx, ownerID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewGrid(false), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	return availability.Slots.Normalize(), nil
}

// Update replaces the owner's grid. Oversized input is rejected; undersized
// input is padded with busy cells.
func (s *AvailabilityService) Update(ctx context.Context, ownerID string, kind models.OwnerKind, grid models.AvailabilityGrid) (*models.Availability, error) {
	if !models.ValidOwnerKind(kind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown availability owner kind")
	}
	if len(grid) > models.GridDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability grid has too many days")
	}
	for _, day := range grid {
		if len(day) > models.GridBins {
			return nil, appErrors.Clone(appErrors.ErrValidation, "availability grid has too many bins per day")
		}
	}
	if err := s.checkOwner(ctx, ownerID, kind); err != nil {
		return nil, err
	}
	availability := &models.Availability{OwnerID: ownerID, OwnerKind: kind, Slots: grid.Normalize()}
	if err := s.availability.Upsert(ctx, availability); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store availability")
	}
	s.logger.Info("availability updated",
		zap.String("owner_id", ownerID),
		zap.String("owner_kind", string(kind)))
	return availability, nil
}

// SeedAllFree stores an all-free grid for a new owner. Rooms get this on
// creation so an empty venue is bookable out of the box.
func (s *AvailabilityService) SeedAllFree(ctx context.Context, ownerID string, kind models.OwnerKind) error {
	availability := &models.Availability{OwnerID: ownerID, OwnerKind: kind, Slots: models.NewGrid(true)}
	if err := s.availability.Upsert(ctx, availability); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed availability")
	}
	return nil
}

// Remove drops an owner's grid, reverting it to the all-busy default.
func (s *AvailabilityService) Remove(ctx context.Context, ownerID string, kind models.OwnerKind) error {
	if err := s.availability.Delete(ctx, ownerID, kind); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability")
	}
	return nil
}

func (s *AvailabilityService) checkOwner(ctx context.Context, ownerID string, kind models.OwnerKind) error {
	if s.owners == nil {
		return nil
	}
	exists, err := s.owners.Exists(ctx, ownerID, kind)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability owner")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "availability owner not found")
	}
	return nil
}
