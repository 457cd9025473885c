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

func newAllocationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAllocationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAllocationMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec("INSERT INTO allocations").
		WithArgs(sqlmock.AnyArg(), "p1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	allocation := &models.Allocation{ProjectID: "p1", SupervisorID: "s1"}
	require.NoError(t, repo.Create(context.Background(), nil, allocation))
	assert.NotEmpty(t, allocation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryFindByProjectID(t *testing.T) {
	db, mock, cleanup := newAllocationMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, project_id, supervisor_id, created_at FROM allocations WHERE project_id = $1")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "supervisor_id", "created_at"}).
			AddRow("a1", "p1", "s1", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM allocation_students WHERE allocation_id = $1 ORDER BY position ASC")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("st1").AddRow("st2"))

	allocation, err := repo.FindByProjectID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "s1", allocation.SupervisorID)
	assert.Equal(t, []string{"st1", "st2"}, allocation.StudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryFindByProjectIDForUpdateLocks(t *testing.T) {
	db, mock, cleanup := newAllocationMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, project_id, supervisor_id, created_at FROM allocations WHERE project_id = $1 FOR UPDATE")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "supervisor_id", "created_at"}).
			AddRow("a1", "p1", "s1", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM allocation_students WHERE allocation_id = $1 ORDER BY position ASC")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}))

	allocation, err := repo.FindByProjectIDForUpdate(context.Background(), nil, "p1")
	require.NoError(t, err)
	assert.Empty(t, allocation.StudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryStudentMembership(t *testing.T) {
	db, mock, cleanup := newAllocationMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocation_students (allocation_id, student_id, position) VALUES ($1, $2, $3)")).
		WithArgs("a1", "st1", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM allocation_students WHERE allocation_id = $1 AND student_id = $2")).
		WithArgs("a1", "st1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddStudent(context.Background(), nil, "a1", "st1", 0))
	require.NoError(t, repo.RemoveStudent(context.Background(), nil, "a1", "st1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newAllocationMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, project_id, supervisor_id, created_at FROM allocations ORDER BY created_at ASC, id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "supervisor_id", "created_at"}).
			AddRow("a1", "p1", "s1", time.Now()).
			AddRow("a2", "p2", "s1", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM allocation_students WHERE allocation_id = $1 ORDER BY position ASC")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("st1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM allocation_students WHERE allocation_id = $1 ORDER BY position ASC")).
		WithArgs("a2").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}))

	allocations, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, []string{"st1"}, allocations[0].StudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
