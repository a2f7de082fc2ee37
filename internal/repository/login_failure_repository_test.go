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

	"github.com/noah-isme/campus-records/internal/models"
)

func TestLoginFailuresGetMissingIsNil(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLoginFailureRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count, first_at, locked_until FROM login_failures WHERE username = ?")).
		WithArgs("admin").
		WillReturnError(sql.ErrNoRows)

	f, err := repo.Get(context.Background(), "admin")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginFailuresGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLoginFailureRepository(db)

	first := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	locked := first.Add(5 * time.Minute)
	mock.ExpectQuery("FROM login_failures").
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"count", "first_at", "locked_until"}).AddRow(5, first, locked))

	f, err := repo.Get(context.Background(), "admin")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 5, f.Count)
	assert.Equal(t, first, f.FirstAt)
	require.NotNil(t, f.LockedUntil)
	assert.Equal(t, locked, *f.LockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginFailuresPutUpserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLoginFailureRepository(db)

	first := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO login_failures (username,count,first_at,locked_until) VALUES (?,?,?,?) ON CONFLICT(username) DO UPDATE")).
		WithArgs("xy", 2, first, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Put(context.Background(), "xy", &models.LoginFailures{Count: 2, FirstAt: first}, time.Minute)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginFailuresDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLoginFailureRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM login_failures WHERE username = ?")).
		WithArgs("xy").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "xy"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
