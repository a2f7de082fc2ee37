package models

// Teacher is a staff profile, one-to-one with a teacher account.
type Teacher struct {
	ID          int64   `db:"id" json:"id"`
	UserID      int64   `db:"user_id" json:"user_id"`
	Name        string  `db:"name" json:"name"`
	Gender      string  `db:"gender" json:"gender"`
	Title       string  `db:"title" json:"title"`
	Department  string  `db:"department" json:"department"`
	ContactInfo string  `db:"contact_info" json:"contact_info"`
	IDCard      *string `db:"id_card" json:"id_card,omitempty"`
}

// TeacherDetail adds the login account fields.
type TeacherDetail struct {
	Teacher
	Username string `db:"username" json:"username"`
	IsFrozen bool   `db:"is_frozen" json:"is_frozen"`
}
