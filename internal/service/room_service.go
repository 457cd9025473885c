package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/velocity-vultures/pms-api/internal/models"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
)

type roomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByName(ctx context.Context, name string) (*models.Room, error)
	ListAll(ctx context.Context) ([]models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
}

type roomSlotReader interface {
	ListByRoom(ctx context.Context, roomID string) ([]models.PresentationSlot, error)
}

type availabilitySeeder interface {
	SeedAllFree(ctx context.Context, ownerID string, kind models.OwnerKind) error
	Remove(ctx context.Context, ownerID string, kind models.OwnerKind) error
}

// CreateRoomRequest captures fields for creating rooms.
type CreateRoomRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpdateRoomRequest modifies room fields.
type UpdateRoomRequest struct {
	Name string `json:"name" validate:"required"`
}

// RoomService handles presentation venue workflows.
type RoomService struct {
	repo         roomRepository
	slots        roomSlotReader
	availability availabilitySeeder
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewRoomService creates a new room service.
func NewRoomService(repo roomRepository, slots roomSlotReader, availability availabilitySeeder, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, slots: slots, availability: availability, validator: validate, logger: logger}
}

// List returns all rooms.
func (s *RoomService) List(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// Get returns a room by identifier.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// Create registers a new room with a unique name and seeds an all-free
// availability grid so the venue is bookable immediately.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	name := strings.TrimSpace(req.Name)
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room name already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room name")
	}
	room := &models.Room{Name: name}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	if s.availability != nil {
		if err := s.availability.SeedAllFree(ctx, room.ID, models.OwnerKindRoom); err != nil {
			s.logger.Warn("failed to seed room availability", zap.String("room_id", room.ID), zap.Error(err))
		}
	}
	return room, nil
}

// Update renames a room.
func (s *RoomService) Update(ctx context.Context, id string, req UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if existing, err := s.repo.FindByName(ctx, name); err == nil && existing.ID != id {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room name already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room name")
	}
	room.Name = name
	if err := s.repo.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	return room, nil
}

// Delete removes a room that has no booked presentations.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	booked, err := s.slots.ListByRoom(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room bookings")
	}
	if len(booked) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "room still has booked presentations")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	if s.availability != nil {
		if err := s.availability.Remove(ctx, id, models.OwnerKindRoom); err != nil {
			s.logger.Warn("failed to drop room availability", zap.String("room_id", id), zap.Error(err))
		}
	}
	s.logger.Info("room deleted", zap.String("room_id", id))
	return nil
}
