package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melo-app/melo-api/internal/models"
)

func TestUpsertCompletionCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompletionCodeRepository(db)

	mock.ExpectExec("INSERT INTO completion_codes").WillReturnResult(sqlmock.NewResult(0, 1))

	code := &models.CompletionCode{WorkID: "w1", Code: "123456"}
	err := repo.Upsert(context.Background(), code)
	require.NoError(t, err)
	assert.False(t, code.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCompletionCodeByWork(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompletionCodeRepository(db)

	rows := sqlmock.NewRows([]string{"work_id", "code", "created_at"}).
		AddRow("w1", "123456", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT work_id, code, created_at FROM completion_codes WHERE work_id = $1 LIMIT 1")).
		WithArgs("w1").
		WillReturnRows(rows)

	code, err := repo.FindByWork(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, "123456", code.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCompletionCodeMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompletionCodeRepository(db)

	mock.ExpectQuery("SELECT work_id, code, created_at FROM completion_codes").
		WithArgs("w1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByWork(context.Background(), "w1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCompletionCodeByWork(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompletionCodeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM completion_codes WHERE work_id = $1")).
		WithArgs("w1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteByWork(context.Background(), "w1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
