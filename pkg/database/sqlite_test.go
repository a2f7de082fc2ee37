package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records/pkg/config"
)

func openTemp(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func columnsOf(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()
	var names []string
	require.NoError(t, db.Select(&names, `SELECT name FROM pragma_table_info(?)`, table))
	return names
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	for _, table := range []string{"users", "students", "teachers", "courses", "grades", "action_logs", "login_failures"} {
		assert.NotEmpty(t, columnsOf(t, db, table), table)
	}
	assert.Contains(t, columnsOf(t, db, "students"), "archive_path")
	assert.Contains(t, columnsOf(t, db, "teachers"), "gender")
}

func TestMigrateAddsMissingColumns(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	_, err := db.Exec(`CREATE TABLE students (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, name_pinyin TEXT, gender TEXT, class_name TEXT, contact_info TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO students (name, gender) VALUES ('张三', 'M')`)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, db))

	cols := columnsOf(t, db, "students")
	for _, want := range []string{"enrollment_year", "department", "major", "id_card", "archive_path"} {
		assert.Contains(t, cols, want)
	}

	var name string
	require.NoError(t, db.Get(&name, `SELECT name FROM students WHERE id = 1`))
	assert.Equal(t, "张三", name)
}

func TestConstraintClassification(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, Migrate(context.Background(), db))

	_, err := db.Exec(`INSERT INTO users (username, password_hash, role) VALUES ('admin', 'x', 'admin')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO users (username, password_hash, role) VALUES ('admin', 'y', 'admin')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolation(err, "users.username"))
	assert.False(t, IsUniqueViolation(err, "users.student_id"))
	assert.False(t, IsForeignKeyViolation(err))

	_, err = db.Exec(`INSERT INTO users (username, password_hash, role, student_id) VALUES ('42', 'z', 'student', 42)`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))
}

func TestIsBusy(t *testing.T) {
	assert.True(t, IsBusy(fmt.Errorf("up: %w", sqlite3.Error{Code: sqlite3.ErrBusy})))
	assert.True(t, IsBusy(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, IsBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, IsBusy(errors.New("database is locked")))
}
