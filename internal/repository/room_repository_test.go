package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velocity-vultures/pms-api/internal/models"
)

func newRoomMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRoomRepositoryFindByIDForUpdateLocks(t *testing.T) {
	db, mock, cleanup := newRoomMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at, updated_at FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow("r1", "Aula 1", time.Now(), time.Now()))

	room, err := repo.FindByIDForUpdate(context.Background(), nil, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Aula 1", room.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRoomMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec("INSERT INTO rooms").
		WithArgs(sqlmock.AnyArg(), "Aula 2", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	room := &models.Room{Name: "Aula 2"}
	require.NoError(t, repo.Create(context.Background(), room))
	assert.NotEmpty(t, room.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRoomMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at, updated_at FROM rooms ORDER BY created_at ASC, id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow("r1", "Aula 1", time.Now(), time.Now()).
			AddRow("r2", "Aula 2", time.Now(), time.Now()))

	rooms, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "r2", rooms[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
