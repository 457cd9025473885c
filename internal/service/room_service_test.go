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

type mockRoomStore struct {
	items  map[string]*models.Room
	nextID int
}

func (m *mockRoomStore) Create(ctx context.Context, room *models.Room) error {
	if m.items == nil {
		m.items = make(map[string]*models.Room)
	}
	m.nextID++
	room.ID = fmt.Sprintf("r%d", m.nextID)
	cp := *room
	m.items[room.ID] = &cp
	return nil
}

func (m *mockRoomStore) FindByID(ctx context.Context, id string) (*models.Room, error) {
	room, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *room
	return &cp, nil
}

func (m *mockRoomStore) FindByName(ctx context.Context, name string) (*models.Room, error) {
	for _, room := range m.items {
		if room.Name == name {
			cp := *room
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoomStore) ListAll(ctx context.Context) ([]models.Room, error) {
	out := make([]models.Room, 0, len(m.items))
	for _, room := range m.items {
		out = append(out, *room)
	}
	return out, nil
}

func (m *mockRoomStore) Update(ctx context.Context, room *models.Room) error {
	cp := *room
	m.items[room.ID] = &cp
	return nil
}

func (m *mockRoomStore) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type stubRoomSlots struct {
	byRoom map[string][]models.PresentationSlot
}

func (s *stubRoomSlots) ListByRoom(ctx context.Context, roomID string) ([]models.PresentationSlot, error) {
	return s.byRoom[roomID], nil
}

type mockAvailabilitySeeder struct {
	seeded  []string
	removed []string
}

func (m *mockAvailabilitySeeder) SeedAllFree(ctx context.Context, ownerID string, kind models.OwnerKind) error {
	m.seeded = append(m.seeded, string(kind)+":"+ownerID)
	return nil
}

func (m *mockAvailabilitySeeder) Remove(ctx context.Context, ownerID string, kind models.OwnerKind) error {
	m.removed = append(m.removed, string(kind)+":"+ownerID)
	return nil
}

func newRoomFixture() (*RoomService, *mockRoomStore, *stubRoomSlots, *mockAvailabilitySeeder) {
	repo := &mockRoomStore{items: map[string]*models.Room{}}
	slots := &stubRoomSlots{byRoom: map[string][]models.PresentationSlot{}}
	seeder := &mockAvailabilitySeeder{}
	return NewRoomService(repo, slots, seeder, validator.New(), zap.NewNop()), repo, slots, seeder
}

func TestRoomServiceCreateSeedsAvailability(t *testing.T) {
	svc, _, _, seeder := newRoomFixture()

	room, err := svc.Create(context.Background(), CreateRoomRequest{Name: "  Aula 1  "})
	require.NoError(t, err)
	assert.Equal(t, "Aula 1", room.Name)
	assert.Equal(t, []string{"ROOM:" + room.ID}, seeder.seeded)

	_, err = svc.Create(context.Background(), CreateRoomRequest{Name: "Aula 1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRoomServiceUpdateRename(t *testing.T) {
	svc, repo, _, _ := newRoomFixture()
	repo.items["r1"] = &models.Room{ID: "r1", Name: "Aula 1"}
	repo.items["r2"] = &models.Room{ID: "r2", Name: "Aula 2"}

	_, err := svc.Update(context.Background(), "r1", UpdateRoomRequest{Name: "Aula 2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// Re-saving a room under its own name is fine.
	room, err := svc.Update(context.Background(), "r1", UpdateRoomRequest{Name: "Aula 1"})
	require.NoError(t, err)
	assert.Equal(t, "Aula 1", room.Name)

	room, err = svc.Update(context.Background(), "r1", UpdateRoomRequest{Name: "Main Hall"})
	require.NoError(t, err)
	assert.Equal(t, "Main Hall", room.Name)
}

func TestRoomServiceDelete(t *testing.T) {
	svc, repo, slots, seeder := newRoomFixture()
	repo.items["r1"] = &models.Room{ID: "r1", Name: "Aula 1"}
	repo.items["r2"] = &models.Room{ID: "r2", Name: "Aula 2"}
	slots.byRoom["r1"] = []models.PresentationSlot{{ID: "sl1", ProjectID: "p1", RoomID: "r1"}}

	err := svc.Delete(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "r2"))
	assert.NotContains(t, repo.items, "r2")
	assert.Equal(t, []string{"ROOM:r2"}, seeder.removed)
}
