package models

// Student is a learner profile. Optional columns are pointers.
type Student struct {
	ID             int64   `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	NamePinyin     string  `db:"name_pinyin" json:"name_pinyin"`
	Gender         string  `db:"gender" json:"gender"`
	EnrollmentYear *int    `db:"enrollment_year" json:"enrollment_year,omitempty"`
	Department     string  `db:"department" json:"department"`
	Major          string  `db:"major" json:"major"`
	ClassName      string  `db:"class_name" json:"class_name"`
	ContactInfo    string  `db:"contact_info" json:"contact_info"`
	IDCard         *string `db:"id_card" json:"id_card,omitempty"`
	ArchivePath    *string `db:"archive_path" json:"archive_path,omitempty"`
}

// StudentDetail adds the linked login account.
type StudentDetail struct {
	Student
	UserID   *int64  `db:"user_id" json:"user_id,omitempty"`
	Username *string `db:"username" json:"username,omitempty"`
	IsFrozen *bool   `db:"is_frozen" json:"is_frozen,omitempty"`
}

// StudentFilter narrows student listings. Zero values match everything.
type StudentFilter struct {
	ClassName      string
	Department     string
	EnrollmentYear *int
	// Search matches a name substring or an initials prefix.
	Search string
}
