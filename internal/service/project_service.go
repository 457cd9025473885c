package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/velocity-vultures/pms-api/internal/models"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
)

type projectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
	Update(ctx context.Context, project *models.Project) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ProjectStatus) error
	Delete(ctx context.Context, id string) error
}

type projectAllocationReader interface {
	FindByProjectID(ctx context.Context, projectID string) (*models.Allocation, error)
}

// CreateProjectRequest captures fields for creating projects.
type CreateProjectRequest struct {
	Title            string   `json:"title" validate:"required"`
	Description      string   `json:"description"`
	RequiredStudents int      `json:"required_students" validate:"required,min=1"`
	EligiblePrograms []string `json:"eligible_programs"`
}

// UpdateProjectRequest modifies project fields.
type UpdateProjectRequest struct {
	Title            string   `json:"title" validate:"required"`
	Description      string   `json:"description"`
	RequiredStudents int      `json:"required_students" validate:"required,min=1"`
	EligiblePrograms []string `json:"eligible_programs"`
}

// ProjectService handles project domain workflows.
type ProjectService struct {
	repo        projectRepository
	allocations projectAllocationReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(repo projectRepository, allocations projectAllocationReader, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{repo: repo, allocations: allocations, validator: validate, logger: logger}
}

// List returns paginated projects.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, *models.Pagination, error) {
	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return projects, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a project by identifier.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

// Create adds a new project in the OPEN state.
func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	project := &models.Project{
		Title:            req.Title,
		Description:      req.Description,
		RequiredStudents: req.RequiredStudents,
		EligiblePrograms: pq.StringArray(req.EligiblePrograms),
		Status:           models.ProjectStatusOpen,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	return project, nil
}

// Update modifies an existing project. The capacity can never drop below the
// number of students already assigned.
func (s *ProjectService) Update(ctx context.Context, id string, req UpdateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	assigned := 0
	allocation, err := s.allocations.FindByProjectID(ctx, id)
	if err == nil {
		assigned = len(allocation.StudentIDs)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	if req.RequiredStudents < assigned {
		return nil, appErrors.Clone(appErrors.ErrConflict, "required students cannot drop below current assignments")
	}

	project.Title = req.Title
	project.Description = req.Description
	project.RequiredStudents = req.RequiredStudents
	project.EligiblePrograms = pq.StringArray(req.EligiblePrograms)
	if err := s.repo.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}

	// Capacity changes can flip the derived status.
	if project.Status != models.ProjectStatusArchived {
		status := models.ProjectStatusOpen
		if allocation != nil && assigned == req.RequiredStudents {
			status = models.ProjectStatusFull
		}
		if status != project.Status {
			if err := s.repo.UpdateStatus(ctx, nil, id, status); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project status")
			}
			project.Status = status
		}
	}
	return project, nil
}

// Archive marks a project as ARCHIVED. Archived projects keep their
// allocation but never revert to OPEN or FULL.
func (s *ProjectService) Archive(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectStatusArchived {
		return project, nil
	}
	if err := s.repo.UpdateStatus(ctx, nil, id, models.ProjectStatusArchived); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive project")
	}
	project.Status = models.ProjectStatusArchived
	s.logger.Info("project archived", zap.String("project_id", id))
	return project, nil
}

// Delete removes a project that has no allocation.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if _, err := s.allocations.FindByProjectID(ctx, id); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "project still has an allocation")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}
	s.logger.Info("project deleted", zap.String("project_id", id))
	return nil
}
