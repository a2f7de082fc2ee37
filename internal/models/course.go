package models

// Course is taught by at most one teacher.
type Course struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Credits     float64 `db:"credits" json:"credits"`
	TeacherID   *int64  `db:"teacher_id" json:"teacher_id,omitempty"`
	Semester    string  `db:"semester" json:"semester"`
	Description string  `db:"description" json:"description"`
}

// CourseDetail includes the teacher's name when one is assigned.
type CourseDetail struct {
	Course
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
