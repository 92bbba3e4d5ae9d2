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

func reviewRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "reviewer_id", "reviewer_name", "reviewed_user_id", "work_id", "rating", "comment", "is_reliable", "is_paid", "type", "created_at"}).
		AddRow("r1", "emp-1", "Alice", "cand-1", "w1", 5, "great work", true, true, string(models.ReviewTypeEmployee), now)
}

func TestListReviewsByUserAndType(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+reviewColumns+" FROM reviews WHERE 1=1 AND reviewed_user_id = $1 AND type = $2 ORDER BY created_at DESC")).
		WithArgs("cand-1", string(models.ReviewTypeEmployee)).
		WillReturnRows(reviewRows(time.Now()))

	reviews, err := repo.List(context.Background(), models.ReviewFilter{ReviewedUserID: "cand-1", Type: string(models.ReviewTypeEmployee)})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingSummary(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	rows := sqlmock.NewRows([]string{"average_rating", "review_count"}).AddRow(4.3, 7)
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("cand-1").
		WillReturnRows(rows)

	summary, err := repo.RatingSummary(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "cand-1", summary.UserID)
	assert.Equal(t, 4.3, summary.AverageRating)
	assert.Equal(t, 7, summary.ReviewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingSummaryEmptyUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	rows := sqlmock.NewRows([]string{"average_rating", "review_count"}).AddRow(0.0, 0)
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("ghost").
		WillReturnRows(rows)

	summary, err := repo.RatingSummary(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Zero(t, summary.AverageRating)
	assert.Zero(t, summary.ReviewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReviewMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reviews WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserAverage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET average_rating = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("cand-1", 4.3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateUserAverage(context.Background(), "cand-1", 4.3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
