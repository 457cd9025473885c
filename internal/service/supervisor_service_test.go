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

type mockSupervisorStore struct {
	items  map[string]*models.Supervisor
	nextID int
}

func (m *mockSupervisorStore) Create(ctx context.Context, supervisor *models.Supervisor) error {
	if m.items == nil {
		m.items = make(map[string]*models.Supervisor)
	}
	m.nextID++
	supervisor.ID = fmt.Sprintf("s%d", m.nextID)
	cp := *supervisor
	m.items[supervisor.ID] = &cp
	return nil
}

func (m *mockSupervisorStore) FindByID(ctx context.Context, id string) (*models.Supervisor, error) {
	supervisor, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *supervisor
	return &cp, nil
}

func (m *mockSupervisorStore) List(ctx context.Context, filter models.SupervisorFilter) ([]models.Supervisor, int, error) {
	out := make([]models.Supervisor, 0, len(m.items))
	for _, supervisor := range m.items {
		out = append(out, *supervisor)
	}
	return out, len(out), nil
}

func (m *mockSupervisorStore) Update(ctx context.Context, supervisor *models.Supervisor) error {
	cp := *supervisor
	m.items[supervisor.ID] = &cp
	return nil
}

func (m *mockSupervisorStore) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type stubAllocationLister struct {
	allocations []models.Allocation
}

func (s *stubAllocationLister) ListAll(ctx context.Context) ([]models.Allocation, error) {
	return s.allocations, nil
}

func newSupervisorFixture() (*SupervisorService, *mockSupervisorStore, *stubAllocationLister, *mockAvailabilityCleanup) {
	repo := &mockSupervisorStore{items: map[string]*models.Supervisor{}}
	allocations := &stubAllocationLister{}
	cleanup := &mockAvailabilityCleanup{}
	return NewSupervisorService(repo, allocations, cleanup, validator.New(), zap.NewNop()), repo, allocations, cleanup
}

func TestSupervisorServiceCreate(t *testing.T) {
	svc, _, _, _ := newSupervisorFixture()

	supervisor, err := svc.Create(context.Background(), CreateSupervisorRequest{
		FullName:   "Dr. Turing",
		Email:      " Turing@Uni.Test ",
		Department: "Computer Science",
	})
	require.NoError(t, err)
	assert.Equal(t, "turing@uni.test", supervisor.Email)

	_, err = svc.Create(context.Background(), CreateSupervisorRequest{FullName: "No Email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSupervisorServiceDelete(t *testing.T) {
	svc, repo, allocations, cleanup := newSupervisorFixture()
	repo.items["s1"] = &models.Supervisor{ID: "s1", FullName: "Dr. Busy"}
	repo.items["s2"] = &models.Supervisor{ID: "s2", FullName: "Dr. Free"}
	allocations.allocations = []models.Allocation{{ID: "a1", ProjectID: "p1", SupervisorID: "s1"}}

	err := svc.Delete(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "s2"))
	assert.NotContains(t, repo.items, "s2")
	assert.Equal(t, []string{"SUPERVISOR:s2"}, cleanup.removed)

	err = svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
