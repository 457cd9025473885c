package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/velocity-vultures/pms-api/internal/models"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
)

type allocationRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, allocation *models.Allocation) error
	FindByProjectID(ctx context.Context, projectID string) (*models.Allocation, error)
	FindByProjectIDForUpdate(ctx context.Context, exec sqlx.ExtContext, projectID string) (*models.Allocation, error)
	ListAll(ctx context.Context) ([]models.Allocation, error)
	ListDetails(ctx context.Context) ([]models.AllocationDetail, error)
	AddStudent(ctx context.Context, exec sqlx.ExtContext, allocationID, studentID string, position int) error
	RemoveStudent(ctx context.Context, exec sqlx.ExtContext, allocationID, studentID string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type allocationProjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Project, error)
	ListAll(ctx context.Context) ([]models.Project, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ProjectStatus) error
}

type allocationStudentRepository interface {
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
	ListUnassigned(ctx context.Context) ([]models.Student, error)
	SetHasProject(ctx context.Context, exec sqlx.ExtContext, id string, hasProject bool) error
}

type allocationSupervisorReader interface {
	FindByID(ctx context.Context, id string) (*models.Supervisor, error)
	ListAll(ctx context.Context) ([]models.Supervisor, error)
}

type allocationSlotRemover interface {
	DeleteByProjectID(ctx context.Context, exec sqlx.ExtContext, projectID string) (bool, error)
}

// BindSupervisorRequest binds a supervisor to a project.
type BindSupervisorRequest struct {
	ProjectID    string `json:"project_id" validate:"required"`
	SupervisorID string `json:"supervisor_id" validate:"required"`
}

// AssignStudentRequest assigns a student to an allocated project.
type AssignStudentRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// AllocationService is the allocation store and invariant guard: it owns the
// project-supervisor-student assignment graph and enforces capacity,
// eligibility and one-project-per-student on every mutation. Each mutating
// call is a single transaction that locks the touched rows and re-validates
// its preconditions before writing, so the invariants survive concurrent
// callers racing on the same project.
type AllocationService struct {
	allocations allocationRepository
	projects    allocationProjectRepository
	students    allocationStudentRepository
	supervisors allocationSupervisorReader
	slots       allocationSlotRemover
	tx          txProvider
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
}

// NewAllocationService wires the allocation engine.
func NewAllocationService(
	allocations allocationRepository,
	projects allocationProjectRepository,
	students allocationStudentRepository,
	supervisors allocationSupervisorReader,
	slots allocationSlotRemover,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		allocations: allocations,
		projects:    projects,
		students:    students,
		supervisors: supervisors,
		slots:       slots,
		tx:          tx,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
	}
}

// Find returns the allocation for a project.
func (s *AllocationService) Find(ctx context.Context, projectID string) (*models.Allocation, error) {
	allocation, err := s.allocations.FindByProjectID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	return allocation, nil
}

// List returns every allocation enriched with project and supervisor names.
func (s *AllocationService) List(ctx context.Context) ([]models.AllocationDetail, error) {
	details, err := s.allocations.ListDetails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	return details, nil
}

// BindSupervisor creates the allocation for a project with an empty student
// set. A project holds at most one allocation.
func (s *AllocationService) BindSupervisor(ctx context.Context, req BindSupervisorRequest) (*models.Allocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bind payload")
	}
	if _, err := s.supervisors.FindByID(ctx, req.SupervisorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "supervisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}

	allocation := &models.Allocation{ProjectID: req.ProjectID, SupervisorID: req.SupervisorID, StudentIDs: []string{}}
	err := runInTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		// Locking the project row serialises every allocation mutation
		// for this project.
		if _, err := s.projects.FindByIDForUpdate(ctx, exec, req.ProjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "project not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
		}
		if _, err := s.allocations.FindByProjectIDForUpdate(ctx, exec, req.ProjectID); err == nil {
			return appErrors.Clone(appErrors.ErrConflict, "project is already allocated to a supervisor")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing allocation")
		}
		if err := s.allocations.Create(ctx, exec, allocation); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create allocation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("supervisor bound",
		zap.String("project_id", req.ProjectID),
		zap.String("supervisor_id", req.SupervisorID))
	return allocation, nil
}

// UnbindSupervisor removes a project's allocation. Removal cascades: every
// assigned student's flag is cleared, the membership rows and any
// presentation slot are deleted, and the project reverts to OPEN unless
// archived. Blocking removal while students remain would strand projects
// whose supervisor leaves mid-term.
func (s *AllocationService) UnbindSupervisor(ctx context.Context, projectID string) error {
	err := runInTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		project, err := s.projects.FindByIDForUpdate(ctx, exec, projectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "project not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
		}
		allocation, err := s.allocations.FindByProjectIDForUpdate(ctx, exec, projectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
		}
		for _, studentID := range allocation.StudentIDs {
			if err := s.students.SetHasProject(ctx, exec, studentID, false); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release student")
			}
		}
		if _, err := s.slots.DeleteByProjectID(ctx, exec, projectID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove presentation slot")
		}
		if err := s.allocations.Delete(ctx, exec, allocation.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete allocation")
		}
		if project.Status != models.ProjectStatusArchived {
			if err := s.projects.UpdateStatus(ctx, exec, projectID, models.ProjectStatusOpen); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project status")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("supervisor unbound", zap.String("project_id", projectID))
	return nil
}

// AssignStudent appends a student to a project's allocation. Capacity,
// program eligibility and the one-project-per-student invariant are
// re-checked under row locks inside the transaction.
func (s *AllocationService) AssignStudent(ctx context.Context, req AssignStudentRequest) (*models.Allocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assign payload")
	}
	var allocation *models.Allocation
	err := runInTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		project, err := s.projects.FindByIDForUpdate(ctx, exec, req.ProjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "project not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
		}
		allocation, err = s.allocations.FindByProjectIDForUpdate(ctx, exec, req.ProjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "project is not yet allocated to a supervisor")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
		}
		student, err := s.students.FindByIDForUpdate(ctx, exec, req.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}

		for _, id := range allocation.StudentIDs {
			if id == student.ID {
				return appErrors.Clone(appErrors.ErrConflict, "student is already assigned to this project")
			}
		}
		if student.HasProject {
			return appErrors.Clone(appErrors.ErrConflict, "student already has an assigned project")
		}
		if len(allocation.StudentIDs) >= project.RequiredStudents {
			return appErrors.Clone(appErrors.ErrConflict, "project is already full")
		}
		if !project.IsProgramEligible(student.Program) {
			return appErrors.Clone(appErrors.ErrConflict, "student's program does not match project restrictions")
		}

		if err := s.allocations.AddStudent(ctx, exec, allocation.ID, student.ID, len(allocation.StudentIDs)); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign student")
		}
		if err := s.students.SetHasProject(ctx, exec, student.ID, true); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag student")
		}
		allocation.StudentIDs = append(allocation.StudentIDs, student.ID)
		if project.Status != models.ProjectStatusArchived {
			status := models.ProjectStatusOpen
			if len(allocation.StudentIDs) == project.RequiredStudents {
				status = models.ProjectStatusFull
			}
			if err := s.projects.UpdateStatus(ctx, exec, project.ID, status); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project status")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordStudentAssigned()
	}
	s.logger.Info("student assigned",
		zap.String("project_id", req.ProjectID),
		zap.String("student_id", req.StudentID))
	return allocation, nil
}

// UnassignStudent removes a student from a project's allocation and clears
// the student's assignment flag.
func (s *AllocationService) UnassignStudent(ctx context.Context, projectID, studentID string) (*models.Allocation, error) {
	var allocation *models.Allocation
	err := runInTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		project, err := s.projects.FindByIDForUpdate(ctx, exec, projectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "project not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
		}
		allocation, err = s.allocations.FindByProjectIDForUpdate(ctx, exec, projectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
		}
		member := false
		remaining := make([]string, 0, len(allocation.StudentIDs))
		for _, id := range allocation.StudentIDs {
			if id == studentID {
				member = true
				continue
			}
			remaining = append(remaining, id)
		}
		if !member {
			return appErrors.Clone(appErrors.ErrNotFound, "student is not assigned to this project")
		}
		if err := s.allocations.RemoveStudent(ctx, exec, allocation.ID, studentID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign student")
		}
		if err := s.students.SetHasProject(ctx, exec, studentID, false); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unflag student")
		}
		allocation.StudentIDs = remaining
		if project.Status != models.ProjectStatusArchived {
			status := models.ProjectStatusOpen
			if len(remaining) == project.RequiredStudents {
				status = models.ProjectStatusFull
			}
			if err := s.projects.UpdateStatus(ctx, exec, project.ID, status); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project status")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student unassigned",
		zap.String("project_id", projectID),
		zap.String("student_id", studentID))
	return allocation, nil
}

// RunBestEffort is the greedy batch matcher. It first binds the first
// enumerated supervisor to every project lacking an allocation, then walks
// allocations in order filling seats from the unassigned student pool.
// Per-candidate failures are swallowed; each sub-assignment stays atomic on
// its own, so the pass can stop in any valid intermediate state. The outcome
// depends on the repositories' stable enumeration order.
func (s *AllocationService) RunBestEffort(ctx context.Context) (*models.BestEffortAllocationReport, error) {
	report := &models.BestEffortAllocationReport{}

	projects, err := s.projects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	supervisors, err := s.supervisors.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supervisors")
	}
	allocations, err := s.allocations.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}

	allocated := make(map[string]struct{}, len(allocations))
	for _, a := range allocations {
		allocated[a.ProjectID] = struct{}{}
	}
	if len(supervisors) > 0 {
		for _, project := range projects {
			if _, ok := allocated[project.ID]; ok {
				continue
			}
			req := BindSupervisorRequest{ProjectID: project.ID, SupervisorID: supervisors[0].ID}
			if _, err := s.BindSupervisor(ctx, req); err != nil {
				report.ProjectsSkipped++
				s.logger.Debug("best-effort bind skipped",
					zap.String("project_id", project.ID), zap.Error(err))
				continue
			}
			report.SupervisorsBound++
		}
	}

	// Re-enumerate: phase one may have created allocations.
	allocations, err = s.allocations.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	candidates, err := s.students.ListUnassigned(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unassigned students")
	}

	taken := make(map[string]struct{}, len(candidates))
	for _, allocation := range allocations {
		project, err := s.projects.FindByID(ctx, allocation.ProjectID)
		if err != nil {
			continue
		}
		seats := project.RequiredStudents - len(allocation.StudentIDs)
		for _, student := range candidates {
			if seats <= 0 {
				break
			}
			if _, ok := taken[student.ID]; ok {
				continue
			}
			req := AssignStudentRequest{ProjectID: allocation.ProjectID, StudentID: student.ID}
			if _, err := s.AssignStudent(ctx, req); err != nil {
				s.logger.Debug("best-effort assign skipped",
					zap.String("project_id", allocation.ProjectID),
					zap.String("student_id", student.ID), zap.Error(err))
				continue
			}
			taken[student.ID] = struct{}{}
			seats--
			report.StudentsAssigned++
		}
	}

	s.logger.Info("best-effort allocation pass finished",
		zap.Int("supervisors_bound", report.SupervisorsBound),
		zap.Int("students_assigned", report.StudentsAssigned),
		zap.Int("projects_skipped", report.ProjectsSkipped))
	return report, nil
}
