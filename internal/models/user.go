package models

import "time"

// UserRole represents the roles an account can log in as.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User represents an account stored in the users table.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	StudentID    *int64     `db:"student_id" json:"student_id,omitempty"`
	IsFrozen     bool       `db:"is_frozen" json:"is_frozen"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// UserSummary is an account row joined with the profile it belongs to.
type UserSummary struct {
	ID          int64      `db:"id" json:"id"`
	Username    string     `db:"username" json:"username"`
	Role        UserRole   `db:"role" json:"role"`
	IsFrozen    bool       `db:"is_frozen" json:"is_frozen"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	DisplayName string     `db:"display_name" json:"display_name"`
}
