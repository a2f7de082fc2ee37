package service

import (
	"github.com/noah-isme/campus-records/internal/models"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

// Authorize checks that session is present and holds one of roles.
func Authorize(session *models.Session, roles ...models.UserRole) error {
	if session == nil || session.UserID == 0 {
		return appErrors.ErrUnauthorized
	}
	if len(roles) == 0 || session.HasRole(roles...) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "role "+string(session.Role)+" may not perform this action")
}

// authorizeStudentSelf lets admins and teachers through and students only for their own profile.
func authorizeStudentSelf(session *models.Session, studentID int64) error {
	if err := Authorize(session); err != nil {
		return err
	}
	if session.HasRole(models.RoleAdmin, models.RoleTeacher) {
		return nil
	}
	if session.StudentID != nil && *session.StudentID == studentID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "students may only view their own records")
}
