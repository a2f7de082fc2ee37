package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/campus-records/internal/models"
)

// LoginFailureRepository keeps failed-login windows in the local store so a
// lockout survives between processes.
type LoginFailureRepository struct {
	db DBTX
}

// NewLoginFailureRepository constructs the repository.
func NewLoginFailureRepository(db DBTX) *LoginFailureRepository {
	return &LoginFailureRepository{db: db}
}

// Get returns the window for username, or nil when there is none.
func (r *LoginFailureRepository) Get(ctx context.Context, username string) (*models.LoginFailures, error) {
	query, args, err := builder.
		Select("count", "first_at", "locked_until").
		From("login_failures").
		Where("username = ?", username).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build login failure lookup: %w", err)
	}
	var f models.LoginFailures
	if err := r.db.GetContext(ctx, &f, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get login failures: %w", err)
	}
	return &f, nil
}

// Put stores the window for username. Rows carry no expiry; an expired window
// is replaced by the next failure.
func (r *LoginFailureRepository) Put(ctx context.Context, username string, f *models.LoginFailures, _ time.Duration) error {
	query, args, err := builder.
		Insert("login_failures").
		Columns("username", "count", "first_at", "locked_until").
		Values(username, f.Count, f.FirstAt, f.LockedUntil).
		Suffix("ON CONFLICT(username) DO UPDATE SET count = excluded.count, first_at = excluded.first_at, locked_until = excluded.locked_until").
		ToSql()
	if err != nil {
		return fmt.Errorf("build login failure upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put login failures: %w", err)
	}
	return nil
}

// Delete forgets the window for username.
func (r *LoginFailureRepository) Delete(ctx context.Context, username string) error {
	query, args, err := builder.Delete("login_failures").Where("username = ?", username).ToSql()
	if err != nil {
		return fmt.Errorf("build login failure delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete login failures: %w", err)
	}
	return nil
}
