package models

import "time"

// AuthState is the login gate's position in its challenge/credential cycle.
type AuthState string

const (
	StateAwaitingChallenge AuthState = "awaiting_challenge"
	StateAuthenticating    AuthState = "authenticating"
	StateAuthenticated     AuthState = "authenticated"
	StateRejected          AuthState = "rejected"
)

// LoginRequest carries everything the gate needs to admit a user.
type LoginRequest struct {
	Username          string   `validate:"required"`
	Password          string   `validate:"required"`
	Role              UserRole `validate:"required,oneof=admin teacher student"`
	ChallengeResponse string   `validate:"required"`
}

// Challenge is a one-time visual puzzle. The expected answer stays with the gate.
type Challenge struct {
	ID    string `json:"id"`
	Image []byte `json:"-"`
}

// LoginFailures is the failed-login window of one username. LockedUntil is
// set once the window reaches the attempt limit.
type LoginFailures struct {
	Count       int        `db:"count" json:"count"`
	FirstAt     time.Time  `db:"first_at" json:"first_at"`
	LockedUntil *time.Time `db:"locked_until" json:"locked_until,omitempty"`
}

// Session is the authenticated principal threaded through every record operation.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	StudentID *int64    `json:"student_id,omitempty"`
	TeacherID *int64    `json:"teacher_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}

// HasRole reports whether the session holds any of roles.
func (s *Session) HasRole(roles ...UserRole) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
