package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/noah-isme/campus-records/internal/models"
)

// ActionLogRepository appends to and reads the audit trail. Entries are never updated.
type ActionLogRepository struct {
	db DBTX
}

// NewActionLogRepository constructs the repository.
func NewActionLogRepository(db DBTX) *ActionLogRepository {
	return &ActionLogRepository{db: db}
}

// Create appends an entry.
func (r *ActionLogRepository) Create(ctx context.Context, entry *models.ActionLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	// Timestamps are stored as UTC text so range filters compare as strings.
	entry.Timestamp = entry.Timestamp.UTC()
	const query = `INSERT INTO action_logs (user_id, action_type, description, timestamp) VALUES (:user_id, :action_type, :description, :timestamp)`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("create action log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read action log id: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns entries newest first with the actor's current username.
func (r *ActionLogRepository) List(ctx context.Context, filter models.ActionLogFilter) ([]models.ActionLog, error) {
	q := builder.
		Select("l.id", "l.user_id", "u.username", "l.action_type", "COALESCE(l.description, '') AS description", "l.timestamp").
		From("action_logs l").
		LeftJoin("users u ON u.id = l.user_id")
	if filter.UserID != nil {
		q = q.Where(sq.Eq{"l.user_id": *filter.UserID})
	}
	if filter.ActionType != "" {
		q = q.Where(sq.Eq{"l.action_type": string(filter.ActionType)})
	}
	if filter.Since != nil {
		q = q.Where(sq.GtOrEq{"l.timestamp": filter.Since.UTC()})
	}
	q = q.OrderBy("l.timestamp DESC", "l.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build action log list: %w", err)
	}

	var entries []models.ActionLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list action logs: %w", err)
	}
	return entries, nil
}
