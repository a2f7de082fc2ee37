package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/noah-isme/campus-records/pkg/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// additiveColumns lists columns added after the first schema release. Stores
// created before they existed get them on the next start.
var additiveColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{"students", "enrollment_year", "INTEGER"},
	{"students", "department", "TEXT"},
	{"students", "major", "TEXT"},
	{"students", "id_card", "TEXT"},
	{"students", "archive_path", "TEXT"},
	{"teachers", "gender", "TEXT"},
	{"teachers", "id_card", "TEXT"},
}

// NewSQLite opens the local store file and verifies the connection.
func NewSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", fmt.Sprintf("%d", busy.Milliseconds()))
	dsn := fmt.Sprintf("file:%s?%s", cfg.Path, params.Encode())

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// One writer; a single connection also keeps per-connection pragmas stable.
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate brings the schema up to date. It is safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	// Another process may be migrating the same file; wait for its lock.
	backoff := retry.WithMaxRetries(migrateRetries, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
			if IsBusy(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return ensureColumns(ctx, db)
}

const migrateRetries = 5

func ensureColumns(ctx context.Context, db *sqlx.DB) error {
	existing := make(map[string]map[string]bool)
	for _, col := range additiveColumns {
		cols, ok := existing[col.table]
		if !ok {
			var names []string
			if err := db.SelectContext(ctx, &names, `SELECT name FROM pragma_table_info(?)`, col.table); err != nil {
				return fmt.Errorf("inspect %s columns: %w", col.table, err)
			}
			cols = make(map[string]bool, len(names))
			for _, n := range names {
				cols[n] = true
			}
			existing[col.table] = cols
		}
		if cols[col.column] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.column, col.ddl)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", col.table, col.column, err)
		}
		cols[col.column] = true
	}
	return nil
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
// When columns are given the failure must name one of them, e.g. "users.username".
func IsUniqueViolation(err error, columns ...string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique && sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return false
	}
	if len(columns) == 0 {
		return true
	}
	msg := sqliteErr.Error()
	for _, column := range columns {
		if strings.Contains(msg, column) {
			return true
		}
	}
	return false
}

// IsBusy reports whether err means the store file is locked by another writer.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// IsForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
