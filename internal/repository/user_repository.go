package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/noah-isme/campus-records/internal/models"
)

const userColumns = `id, username, password_hash, role, student_id, is_frozen, created_at, last_login_at`

// UserRepository provides database access for login accounts.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns an account by its username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = ? LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// FindByID returns an account by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByStudentID returns the account linked to a student profile.
func (r *UserRepository) FindByStudentID(ctx context.Context, studentID int64) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE student_id = ? LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by student: %w", err)
	}
	return &user, nil
}

// ExistsByUsername reports whether the username is taken by any role.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// CountByRole returns how many accounts hold role.
func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = ?`
	var total int
	if err := r.db.GetContext(ctx, &total, query, role); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return total, nil
}

// Create inserts a new account and sets its ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO users (username, password_hash, role, student_id, is_frozen, created_at) VALUES (:username, :password_hash, :role, :student_id, :is_frozen, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read user id: %w", err)
	}
	user.ID = id
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const query = `UPDATE users SET password_hash = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(res, "update password")
}

// UpdateLastLogin records a successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	const query = `UPDATE users SET last_login_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, ts, id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// SetFrozen freezes or unfreezes an account.
func (r *UserRepository) SetFrozen(ctx context.Context, id int64, frozen bool) error {
	const query = `UPDATE users SET is_frozen = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, frozen, id)
	if err != nil {
		return fmt.Errorf("set frozen: %w", err)
	}
	return expectAffected(res, "set frozen")
}

// Delete removes an account. A teacher profile goes with it via ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res, "delete user")
}

// DeleteByStudentID removes the account linked to a student, if any.
func (r *UserRepository) DeleteByStudentID(ctx context.Context, studentID int64) error {
	const query = `DELETE FROM users WHERE student_id = ?`
	if _, err := r.db.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("delete student user: %w", err)
	}
	return nil
}

// List returns accounts with the name of their linked profile, optionally for one role.
func (r *UserRepository) List(ctx context.Context, role *models.UserRole) ([]models.UserSummary, error) {
	q := builder.
		Select("u.id", "u.username", "u.role", "u.is_frozen", "u.last_login_at",
			"COALESCE(s.name, t.name, '') AS display_name").
		From("users u").
		LeftJoin("students s ON s.id = u.student_id").
		LeftJoin("teachers t ON t.user_id = u.id").
		OrderBy("u.id")
	if role != nil {
		q = q.Where(sq.Eq{"u.role": *role})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user list: %w", err)
	}

	var users []models.UserSummary
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
