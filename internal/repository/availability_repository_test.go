package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velocity-vultures/pms-api/internal/models"
)

func newAvailabilityMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryFind(t *testing.T) {
	db, mock, cleanup := newAvailabilityMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id, owner_kind, slots, updated_at FROM availability WHERE owner_id = $1 AND owner_kind = $2")).
		WithArgs("st1", models.OwnerKindStudent).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "owner_kind", "slots", "updated_at"}).
			AddRow("st1", "STUDENT", `[[true,false]]`, time.Now()))

	availability, err := repo.Find(context.Background(), "st1", models.OwnerKindStudent)
	require.NoError(t, err)
	assert.True(t, availability.Slots.At(0, 0))
	assert.False(t, availability.Slots.At(0, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryFindMissingRow(t *testing.T) {
	db, mock, cleanup := newAvailabilityMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id, owner_kind, slots, updated_at FROM availability WHERE owner_id = $1 AND owner_kind = $2")).
		WithArgs("ghost", models.OwnerKindRoom).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "ghost", models.OwnerKindRoom)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newAvailabilityMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("INSERT INTO availability").
		WithArgs("r1", models.OwnerKindRoom, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	availability := &models.Availability{
		OwnerID:   "r1",
		OwnerKind: models.OwnerKindRoom,
		Slots:     models.NewGrid(true),
	}
	require.NoError(t, repo.Upsert(context.Background(), availability))
	assert.False(t, availability.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAvailabilityMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability WHERE owner_id = $1 AND owner_kind = $2")).
		WithArgs("st1", models.OwnerKindStudent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "st1", models.OwnerKindStudent))
	assert.NoError(t, mock.ExpectationsWereMet())
}
