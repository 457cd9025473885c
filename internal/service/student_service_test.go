package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velocity-vultures/pms-api/internal/models"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
)

type mockStudentStore struct {
	items  map[string]*models.Student
	nextID int
}

func (m *mockStudentStore) Create(ctx context.Context, student *models.Student) error {
	if m.items == nil {
		m.items = make(map[string]*models.Student)
	}
	m.nextID++
	student.ID = fmt.Sprintf("st%d", m.nextID)
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *mockStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *student
	return &cp, nil
}

func (m *mockStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(m.items))
	for _, student := range m.items {
		out = append(out, *student)
	}
	return out, len(out), nil
}

func (m *mockStudentStore) Update(ctx context.Context, student *models.Student) error {
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *mockStudentStore) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockAvailabilityCleanup struct {
	removed []string
}

func (m *mockAvailabilityCleanup) Remove(ctx context.Context, ownerID string, kind models.OwnerKind) error {
	m.removed = append(m.removed, string(kind)+":"+ownerID)
	return nil
}

func newStudentFixture() (*StudentService, *mockStudentStore, *mockAvailabilityCleanup) {
	repo := &mockStudentStore{items: map[string]*models.Student{}}
	cleanup := &mockAvailabilityCleanup{}
	return NewStudentService(repo, cleanup, validator.New(), zap.NewNop()), repo, cleanup
}

func TestStudentServiceCreateNormalizesEmail(t *testing.T) {
	svc, _, _ := newStudentFixture()

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName:      "Ada Lovelace",
		StudentNumber: " 2023001 ",
		Email:         " Ada.Lovelace@Uni.Test ",
		Program:       "CS",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace@uni.test", student.Email)
	assert.Equal(t, "2023001", student.StudentNumber)
	assert.False(t, student.HasProject)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc, _, _ := newStudentFixture()

	_, err := svc.Create(context.Background(), CreateStudentRequest{FullName: "No Email", StudentNumber: "1", Program: "CS"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateKeepsStudentNumber(t *testing.T) {
	svc, repo, _ := newStudentFixture()
	repo.items["st1"] = &models.Student{ID: "st1", FullName: "Ada", StudentNumber: "2023001", Email: "ada@uni.test", Program: "CS"}

	student, err := svc.Update(context.Background(), "st1", UpdateStudentRequest{
		FullName: "Ada L.",
		Email:    "ada.l@uni.test",
		Program:  "SE",
	})
	require.NoError(t, err)
	assert.Equal(t, "2023001", student.StudentNumber)
	assert.Equal(t, "SE", student.Program)

	_, err = svc.Update(context.Background(), "missing", UpdateStudentRequest{FullName: "X", Email: "x@uni.test", Program: "CS"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDelete(t *testing.T) {
	svc, repo, cleanup := newStudentFixture()
	repo.items["st1"] = &models.Student{ID: "st1", FullName: "Ada", HasProject: true}
	repo.items["st2"] = &models.Student{ID: "st2", FullName: "Grace"}

	err := svc.Delete(context.Background(), "st1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "st2"))
	assert.NotContains(t, repo.items, "st2")
	assert.Equal(t, []string{"STUDENT:st2"}, cleanup.removed)
}
