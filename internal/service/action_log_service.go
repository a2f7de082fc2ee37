package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/repository"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

type actionLogReader interface {
	List(ctx context.Context, filter models.ActionLogFilter) ([]models.ActionLog, error)
}

// ActionLogService exposes the audit trail to administrators.
type ActionLogService struct {
	repo   actionLogReader
	logger *zap.Logger
}

// NewActionLogService constructs the service.
func NewActionLogService(repo actionLogReader, logger *zap.Logger) *ActionLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionLogService{repo: repo, logger: logger}
}

// List returns audit entries newest first. Reading never writes to the log.
func (s *ActionLogService) List(ctx context.Context, session *models.Session, filter models.ActionLogFilter) ([]models.ActionLog, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list action logs")
	}
	return entries, nil
}

// recordAction appends one audit entry inside the caller's transaction.
func recordAction(ctx context.Context, tx *repository.Store, actorID int64, action models.ActionType, format string, args ...interface{}) error {
	entry := &models.ActionLog{
		UserID:      actorID,
		ActionType:  action,
		Description: fmt.Sprintf(format, args...),
	}
	if err := tx.ActionLogs.Create(ctx, entry); err != nil {
		return err
	}
	return nil
}
