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

	"github.com/melo-app/melo-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindUserByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "average_rating", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "user@example.com", "hash", "User", string(models.RoleUser), 4.5, true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, average_rating, active, last_login, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, 4.5, user.AverageRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)")).
		WithArgs("u1").
		WillReturnRows(rows)

	exists, err := repo.Exists(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1")).
		WithArgs("1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RevokeRefreshToken(context.Background(), "1", now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
