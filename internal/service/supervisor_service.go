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

type supervisorRepository interface {
	Create(ctx context.Context, supervisor *models.Supervisor) error
	FindByID(ctx context.Context, id string) (*models.Supervisor, error)
	List(ctx context.Context, filter models.SupervisorFilter) ([]models.Supervisor, int, error)
	Update(ctx context.Context, supervisor *models.Supervisor) error
	Delete(ctx context.Context, id string) error
}

type supervisorAllocationReader interface {
	ListAll(ctx context.Context) ([]models.Allocation, error)
}

// CreateSupervisorRequest captures fields for creating supervisors.
type CreateSupervisorRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department"`
}

// UpdateSupervisorRequest modifies supervisor fields.
type UpdateSupervisorRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department"`
}

// SupervisorService handles supervisor domain workflows.
type SupervisorService struct {
	repo         supervisorRepository
	allocations  supervisorAllocationReader
	availability availabilityRemover
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewSupervisorService creates a new supervisor service.
func NewSupervisorService(repo supervisorRepository, allocations supervisorAllocationReader, availability availabilityRemover, validate *validator.Validate, logger *zap.Logger) *SupervisorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupervisorService{repo: repo, allocations: allocations, availability: availability, validator: validate, logger: logger}
}

// List returns paginated supervisors.
func (s *SupervisorService) List(ctx context.Context, filter models.SupervisorFilter) ([]models.Supervisor, *models.Pagination, error) {
	supervisors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supervisors")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return supervisors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a supervisor by identifier.
func (s *SupervisorService) Get(ctx context.Context, id string) (*models.Supervisor, error) {
	supervisor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "supervisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}
	return supervisor, nil
}

// Create registers a new supervisor.
func (s *SupervisorService) Create(ctx context.Context, req CreateSupervisorRequest) (*models.Supervisor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid supervisor payload")
	}
	supervisor := &models.Supervisor{
		FullName:   req.FullName,
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Department: req.Department,
	}
	if err := s.repo.Create(ctx, supervisor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create supervisor")
	}
	return supervisor, nil
}

// Update modifies an existing supervisor.
func (s *SupervisorService) Update(ctx context.Context, id string, req UpdateSupervisorRequest) (*models.Supervisor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid supervisor payload")
	}
	supervisor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	supervisor.FullName = req.FullName
	supervisor.Email = strings.ToLower(strings.TrimSpace(req.Email))
	supervisor.Department = req.Department
	if err := s.repo.Update(ctx, supervisor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update supervisor")
	}
	return supervisor, nil
}

// Delete removes a supervisor with no active allocations.
func (s *SupervisorService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	allocations, err := s.allocations.ListAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	for _, allocation := range allocations {
		if allocation.SupervisorID == id {
			return appErrors.Clone(appErrors.ErrConflict, "supervisor still supervises allocated projects")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete supervisor")
	}
	if s.availability != nil {
		if err := s.availability.Remove(ctx, id, models.OwnerKindSupervisor); err != nil {
			s.logger.Warn("failed to drop supervisor availability", zap.String("supervisor_id", id), zap.Error(err))
		}
	}
	s.logger.Info("supervisor deleted", zap.String("supervisor_id", id))
	return nil
}
