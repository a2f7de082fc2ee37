package models

import "time"

// ActionType tags an audit entry.
type ActionType string

const (
	ActionLogin               ActionType = "LOGIN"
	ActionAddStudent          ActionType = "ADD_STUDENT"
	ActionUpdateStudent       ActionType = "UPDATE_STUDENT"
	ActionDeleteStudent       ActionType = "DELETE_STUDENT"
	ActionAddTeacher          ActionType = "ADD_TEACHER"
	ActionUpdateTeacher       ActionType = "UPDATE_TEACHER"
	ActionDeleteTeacher       ActionType = "DELETE_TEACHER"
	ActionAddCourse           ActionType = "ADD_COURSE"
	ActionUpdateCourse        ActionType = "UPDATE_COURSE"
	ActionDeleteCourse        ActionType = "DELETE_COURSE"
	ActionAddGrade            ActionType = "ADD_GRADE"
	ActionUpdateGrade         ActionType = "UPDATE_GRADE"
	ActionDeleteGrade         ActionType = "DELETE_GRADE"
	ActionResetPassword       ActionType = "RESET_PASSWORD"
	ActionChangePassword      ActionType = "CHANGE_PASSWORD"
	ActionFreezeAccount       ActionType = "FREEZE_ACCOUNT"
	ActionUnfreezeAccount     ActionType = "UNFREEZE_ACCOUNT"
	ActionBootstrapAdmin      ActionType = "BOOTSTRAP_ADMIN"
	ActionBatchImportStudents ActionType = "BATCH_IMPORT_STUDENTS"
	ActionBatchImportTeachers ActionType = "BATCH_IMPORT_TEACHERS"
)

// ActionLog is an append-only audit entry. Username is filled by listings.
type ActionLog struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	Username    *string    `db:"username" json:"username,omitempty"`
	ActionType  ActionType `db:"action_type" json:"action_type"`
	Description string     `db:"description" json:"description"`
	Timestamp   time.Time  `db:"timestamp" json:"timestamp"`
}

// ActionLogFilter narrows audit listings.
type ActionLogFilter struct {
	UserID     *int64
	ActionType ActionType
	Since      *time.Time
	Limit      int
}
