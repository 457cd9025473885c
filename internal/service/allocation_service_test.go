package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velocity-vultures/pms-api/internal/models"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
)

type mockAllocationRepo struct {
	byProject map[string]*models.Allocation
	order     []string
	nextID    int
}

func (m *mockAllocationRepo) Create(ctx context.Context, exec sqlx.ExtContext, allocation *models.Allocation) error {
	if m.byProject == nil {
		m.byProject = make(map[string]*models.Allocation)
	}
	m.nextID++
	allocation.ID = fmt.Sprintf("alloc-%d", m.nextID)
	cp := *allocation
	cp.StudentIDs = append([]string{}, allocation.StudentIDs...)
	m.byProject[allocation.ProjectID] = &cp
	m.order = append(m.order, allocation.ProjectID)
	return nil
}

func (m *mockAllocationRepo) FindByProjectID(ctx context.Context, projectID string) (*models.Allocation, error) {
	allocation, ok := m.byProject[projectID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *allocation
	cp.StudentIDs = append([]string{}, allocation.StudentIDs...)
	return &cp, nil
}

func (m *mockAllocationRepo) FindByProjectIDForUpdate(ctx context.Context, exec sqlx.ExtContext, projectID string) (*models.Allocation, error) {
	return m.FindByProjectID(ctx, projectID)
}

func (m *mockAllocationRepo) ListAll(ctx context.Context) ([]models.Allocation, error) {
	out := make([]models.Allocation, 0, len(m.order))
	for _, projectID := range m.order {
		if allocation, ok := m.byProject[projectID]; ok {
			cp := *allocation
			cp.StudentIDs = append([]string{}, allocation.StudentIDs...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockAllocationRepo) ListDetails(ctx context.Context) ([]models.AllocationDetail, error) {
	allocations, _ := m.ListAll(ctx)
	out := make([]models.AllocationDetail, 0, len(allocations))
	for _, allocation := range allocations {
		out = append(out, models.AllocationDetail{Allocation: allocation})
	}
	return out, nil
}

func (m *mockAllocationRepo) AddStudent(ctx context.Context, exec sqlx.ExtContext, allocationID, studentID string, position int) error {
	for _, allocation := range m.byProject {
		if allocation.ID == allocationID {
			allocation.StudentIDs = append(allocation.StudentIDs, studentID)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAllocationRepo) RemoveStudent(ctx context.Context, exec sqlx.ExtContext, allocationID, studentID string) error {
	for _, allocation := range m.byProject {
		if allocation.ID != allocationID {
			continue
		}
		kept := allocation.StudentIDs[:0]
		for _, id := range allocation.StudentIDs {
			if id != studentID {
				kept = append(kept, id)
			}
		}
		allocation.StudentIDs = kept
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockAllocationRepo) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for projectID, allocation := range m.byProject {
		if allocation.ID == id {
			delete(m.byProject, projectID)
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockProjectRepo struct {
	items    map[string]*models.Project
	order    []string
	statuses map[string]models.ProjectStatus
}

func (m *mockProjectRepo) add(project *models.Project) {
	if m.items == nil {
		m.items = make(map[string]*models.Project)
	}
	m.items[project.ID] = project
	m.order = append(m.order, project.ID)
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*models.Project, error) {
	project, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *project
	return &cp, nil
}

func (m *mockProjectRepo) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Project, error) {
	return m.FindByID(ctx, id)
}

func (m *mockProjectRepo) ListAll(ctx context.Context) ([]models.Project, error) {
	out := make([]models.Project, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.items[id])
	}
	return out, nil
}

func (m *mockProjectRepo) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ProjectStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.ProjectStatus)
	}
	m.statuses[id] = status
	if project, ok := m.items[id]; ok {
		project.Status = status
	}
	return nil
}

type mockStudentRepo struct {
	items map[string]*models.Student
	order []string
}

func (m *mockStudentRepo) add(student *models.Student) {
	if m.items == nil {
		m.items = make(map[string]*models.Student)
	}
	m.items[student.ID] = student
	m.order = append(m.order, student.ID)
}

func (m *mockStudentRepo) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	student, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *student
	return &cp, nil
}

func (m *mockStudentRepo) ListUnassigned(ctx context.Context) ([]models.Student, error) {
	out := []models.Student{}
	for _, id := range m.order {
		if student := m.items[id]; !student.HasProject {
			out = append(out, *student)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) SetHasProject(ctx context.Context, exec sqlx.ExtContext, id string, hasProject bool) error {
	student, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.HasProject = hasProject
	return nil
}

type mockSupervisorRepo struct {
	items map[string]*models.Supervisor
	order []string
}

func (m *mockSupervisorRepo) add(supervisor *models.Supervisor) {
	if m.items == nil {
		m.items = make(map[string]*models.Supervisor)
	}
	m.items[supervisor.ID] = supervisor
	m.order = append(m.order, supervisor.ID)
}

func (m *mockSupervisorRepo) FindByID(ctx context.Context, id string) (*models.Supervisor, error) {
	supervisor, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *supervisor
	return &cp, nil
}

func (m *mockSupervisorRepo) ListAll(ctx context.Context) ([]models.Supervisor, error) {
	out := make([]models.Supervisor, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.items[id])
	}
	return out, nil
}

type mockSlotRemover struct {
	removed []string
}

func (m *mockSlotRemover) DeleteByProjectID(ctx context.Context, exec sqlx.ExtContext, projectID string) (bool, error) {
	m.removed = append(m.removed, projectID)
	return true, nil
}

func newAllocationFixture() (*AllocationService, *mockAllocationRepo, *mockProjectRepo, *mockStudentRepo, *mockSupervisorRepo, *mockSlotRemover) {
	allocations := &mockAllocationRepo{}
	projects := &mockProjectRepo{}
	students := &mockStudentRepo{}
	supervisors := &mockSupervisorRepo{}
	slots := &mockSlotRemover{}
	svc := NewAllocationService(allocations, projects, students, supervisors, slots, nil, validator.New(), zap.NewNop(), nil)
	return svc, allocations, projects, students, supervisors, slots
}

func TestAllocationServiceBindSupervisor(t *testing.T) {
	svc, allocations, projects, _, supervisors, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 2, Status: models.ProjectStatusOpen})
	supervisors.add(&models.Supervisor{ID: "s1", FullName: "Dr. Grey"})

	allocation, err := svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p1", SupervisorID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", allocation.ProjectID)
	assert.Equal(t, "s1", allocation.SupervisorID)
	assert.Empty(t, allocation.StudentIDs)
	assert.Len(t, allocations.byProject, 1)
}

func TestAllocationServiceBindSupervisorTwiceConflicts(t *testing.T) {
	svc, _, projects, _, supervisors, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 1, Status: models.ProjectStatusOpen})
	supervisors.add(&models.Supervisor{ID: "s1"})
	supervisors.add(&models.Supervisor{ID: "s2"})

	_, err := svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p1", SupervisorID: "s1"})
	require.NoError(t, err)

	_, err = svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p1", SupervisorID: "s2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceBindSupervisorMissingTargets(t *testing.T) {
	svc, _, projects, _, supervisors, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 1})
	supervisors.add(&models.Supervisor{ID: "s1"})

	_, err := svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "missing", SupervisorID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p1", SupervisorID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceAssignStudent(t *testing.T) {
	svc, _, projects, students, supervisors, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 2, Status: models.ProjectStatusOpen})
	supervisors.add(&models.Supervisor{ID: "s1"})
	students.add(&models.Student{ID: "st1", Program: "CS"})
	students.add(&models.Student{ID: "st2", Program: "CS"})

	_, err := svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p1", SupervisorID: "s1"})
	require.NoError(t, err)

	allocation, err := svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"st1"}, allocation.StudentIDs)
	assert.True(t, students.items["st1"].HasProject)
	assert.Equal(t, models.ProjectStatusOpen, projects.items["p1"].Status)

	allocation, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"st1", "st2"}, allocation.StudentIDs)
	assert.Equal(t, models.ProjectStatusFull, projects.items["p1"].Status)
}

func TestAllocationServiceAssignStudentGuards(t *testing.T) {
	svc, _, projects, students, supervisors, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 1, EligiblePrograms: pq.StringArray{"CS"}, Status: models.ProjectStatusOpen})
	projects.add(&models.Project{ID: "p2", RequiredStudents: 2, Status: models.ProjectStatusOpen})
	supervisors.add(&models.Supervisor{ID: "s1"})
	students.add(&models.Student{ID: "st1", Program: "CS"})
	students.add(&models.Student{ID: "st2", Program: "EE"})
	students.add(&models.Student{ID: "st3", Program: "CS"})

	_, err := svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p1", SupervisorID: "s1"})
	require.NoError(t, err)
	_, err = svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p2", SupervisorID: "s1"})
	require.NoError(t, err)

	// Program restriction.
	_, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st1"})
	require.NoError(t, err)

	// Same student twice.
	_, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// One project per student.
	_, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p2", StudentID: "st1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// Capacity.
	_, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st3"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.False(t, students.items["st3"].HasProject)
}

func TestAllocationServiceAssignStudentWithoutAllocation(t *testing.T) {
	svc, _, projects, students, _, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 1})
	students.add(&models.Student{ID: "st1", Program: "CS"})

	_, err := svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceUnassignStudent(t *testing.T) {
	svc, _, projects, students, supervisors, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 1, Status: models.ProjectStatusOpen})
	supervisors.add(&models.Supervisor{ID: "s1"})
	students.add(&models.Student{ID: "st1", Program: "CS"})

	_, err := svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p1", SupervisorID: "s1"})
	require.NoError(t, err)
	_, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st1"})
	require.NoError(t, err)
	require.Equal(t, models.ProjectStatusFull, projects.items["p1"].Status)

	allocation, err := svc.UnassignStudent(context.Background(), "p1", "st1")
	require.NoError(t, err)
	assert.Empty(t, allocation.StudentIDs)
	assert.False(t, students.items["st1"].HasProject)
	assert.Equal(t, models.ProjectStatusOpen, projects.items["p1"].Status)

	_, err = svc.UnassignStudent(context.Background(), "p1", "st1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceUnbindSupervisorCascades(t *testing.T) {
	svc, allocations, projects, students, supervisors, slots := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 2, Status: models.ProjectStatusOpen})
	supervisors.add(&models.Supervisor{ID: "s1"})
	students.add(&models.Student{ID: "st1", Program: "CS"})
	students.add(&models.Student{ID: "st2", Program: "CS"})

	_, err := svc.BindSupervisor(context.Background(), BindSupervisorRequest{ProjectID: "p1", SupervisorID: "s1"})
	require.NoError(t, err)
	_, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st1"})
	require.NoError(t, err)
	_, err = svc.AssignStudent(context.Background(), AssignStudentRequest{ProjectID: "p1", StudentID: "st2"})
	require.NoError(t, err)

	require.NoError(t, svc.UnbindSupervisor(context.Background(), "p1"))
	assert.Empty(t, allocations.byProject)
	assert.False(t, students.items["st1"].HasProject)
	assert.False(t, students.items["st2"].HasProject)
	assert.Equal(t, []string{"p1"}, slots.removed)
	assert.Equal(t, models.ProjectStatusOpen, projects.items["p1"].Status)

	err = svc.UnbindSupervisor(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceRunBestEffort(t *testing.T) {
	svc, allocations, projects, students, supervisors, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 1, Status: models.ProjectStatusOpen})
	projects.add(&models.Project{ID: "p2", RequiredStudents: 2, EligiblePrograms: pq.StringArray{"CS"}, Status: models.ProjectStatusOpen})
	supervisors.add(&models.Supervisor{ID: "s1"})
	students.add(&models.Student{ID: "st1", Program: "EE"})
	students.add(&models.Student{ID: "st2", Program: "CS"})
	students.add(&models.Student{ID: "st3", Program: "CS"})

	report, err := svc.RunBestEffort(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.SupervisorsBound)
	assert.Equal(t, 3, report.StudentsAssigned)

	first, err := allocations.FindByProjectID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"st1"}, first.StudentIDs)

	second, err := allocations.FindByProjectID(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"st2", "st3"}, second.StudentIDs)

	// Re-running changes nothing: everyone is placed.
	report, err = svc.RunBestEffort(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.SupervisorsBound)
	assert.Zero(t, report.StudentsAssigned)
}

func TestAllocationServiceRunBestEffortWithoutSupervisors(t *testing.T) {
	svc, allocations, projects, students, _, _ := newAllocationFixture()
	projects.add(&models.Project{ID: "p1", RequiredStudents: 1, Status: models.ProjectStatusOpen})
	students.add(&models.Student{ID: "st1", Program: "CS"})

	report, err := svc.RunBestEffort(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.SupervisorsBound)
	assert.Zero(t, report.StudentsAssigned)
	assert.Empty(t, allocations.byProject)
}
