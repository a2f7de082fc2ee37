package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/campus-records/pkg/database"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

// storeError maps a repository failure onto the typed error callers render.
// Errors that are already typed pass through unchanged.
func storeError(err error, notFound, message string) error {
	if err == nil {
		return nil
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case database.IsUniqueViolation(err, "users.username"):
		return appErrors.Wrap(err, appErrors.ErrDuplicateUsername.Code, appErrors.ErrDuplicateUsername.Message)
	case database.IsUniqueViolation(err), database.IsForeignKeyViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, message)
	}
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, message)
}
