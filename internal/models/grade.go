package models

import "time"

// Grade is the single score a student holds for a course.
type Grade struct {
	ID         int64     `db:"id" json:"id"`
	StudentID  int64     `db:"student_id" json:"student_id"`
	CourseID   int64     `db:"course_id" json:"course_id"`
	Score      float64   `db:"score" json:"score"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	RecorderID *int64    `db:"recorder_id" json:"recorder_id,omitempty"`
}

// GradeRecord is a student's view of one graded course.
type GradeRecord struct {
	CourseID   int64     `db:"course_id" json:"course_id"`
	CourseName string    `db:"course_name" json:"course_name"`
	Credits    float64   `db:"credits" json:"credits"`
	Semester   string    `db:"semester" json:"semester"`
	Score      float64   `db:"score" json:"score"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// RosterEntry is one student of a course roster with their score, if any.
type RosterEntry struct {
	StudentID   int64    `db:"student_id" json:"student_id"`
	StudentName string   `db:"student_name" json:"student_name"`
	ClassName   string   `db:"class_name" json:"class_name"`
	Score       *float64 `db:"score" json:"score,omitempty"`
}

// GradeQuery filters grade listings; nil fields match everything.
type GradeQuery struct {
	StudentID *int64
	CourseID  *int64
	ClassName string
}

// GradeQueryRow is one grade joined with student and course names.
type GradeQueryRow struct {
	StudentID   int64   `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	ClassName   string  `db:"class_name" json:"class_name"`
	CourseID    int64   `db:"course_id" json:"course_id"`
	CourseName  string  `db:"course_name" json:"course_name"`
	Score       float64 `db:"score" json:"score"`
}

// ClassCourseStats summarises one class's scores in one course.
type ClassCourseStats struct {
	ClassName string  `json:"class_name"`
	CourseID  int64   `json:"course_id"`
	Count     int     `json:"count"`
	Average   float64 `json:"average"`
	StdDev    float64 `json:"std_dev"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	PassRate  float64 `json:"pass_rate"`
}
