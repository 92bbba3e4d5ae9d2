package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melo-app/melo-api/internal/models"
)

func applicationRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "work_id", "applicant_id", "applicant_name", "employer_id", "status", "applied_at", "updated_at"}).
		AddRow("a1", "w1", "cand-1", "Bob", "emp-1", string(models.ApplicationPending), now, now)
}

func TestCreateApplication(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("INSERT INTO applications").WillReturnResult(sqlmock.NewResult(1, 1))

	app := &models.Application{WorkID: "w1", ApplicantID: "cand-1", ApplicantName: "Bob", EmployerID: "emp-1", Status: models.ApplicationPending}
	err := repo.Create(context.Background(), app)
	require.NoError(t, err)
	assert.NotEmpty(t, app.ID)
	assert.False(t, app.AppliedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateApplicationUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("INSERT INTO applications").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Application{WorkID: "w1", ApplicantID: "cand-1"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApplicationsByWork(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + applicationColumns + " FROM applications WHERE work_id = $1 ORDER BY applied_at DESC")).
		WithArgs("w1").
		WillReturnRows(applicationRows(time.Now()))

	apps, err := repo.ListByWork(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "cand-1", apps[0].ApplicantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveApplicationNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("SELECT .* FROM applications WHERE work_id").
		WithArgs("w1", "cand-1", string(models.ApplicationWithdrawn)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActiveByWorkAndApplicant(context.Background(), "w1", "cand-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasAccepted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM applications WHERE work_id = $1 AND applicant_id = $2 AND status = $3)")).
		WithArgs("w1", "cand-1", string(models.ApplicationAccepted)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	accepted, err := repo.HasAccepted(context.Background(), "w1", "cand-1")
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteApplicationsByWork(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM applications WHERE work_id = $1")).
		WithArgs("w1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.DeleteByWork(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
