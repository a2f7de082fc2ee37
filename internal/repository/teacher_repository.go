package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/campus-records/internal/models"
)

const teacherDetailSelect = `SELECT t.id, t.user_id, t.name, COALESCE(t.gender, '') AS gender, COALESCE(t.title, '') AS title,
COALESCE(t.department, '') AS department, COALESCE(t.contact_info, '') AS contact_info, t.id_card,
u.username, u.is_frozen
FROM teachers t JOIN users u ON u.id = t.user_id`

// TeacherRepository provides database access for teacher profiles.
type TeacherRepository struct {
	db DBTX
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db DBTX) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// Create inserts a teacher profile and sets its ID. The linked user must exist.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	const query = `INSERT INTO teachers (user_id, name, gender, title, department, contact_info, id_card)
VALUES (:user_id, :name, :gender, :title, :department, :contact_info, :id_card)`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read teacher id: %w", err)
	}
	teacher.ID = id
	return nil
}

// Update replaces the mutable profile columns.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	const query = `UPDATE teachers SET name = :name, gender = :gender, title = :title, department = :department,
contact_info = :contact_info, id_card = :id_card WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return expectAffected(res, "update teacher")
}

// FindByID returns a teacher with account details.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.TeacherDetail, error) {
	const query = teacherDetailSelect + ` WHERE t.id = ? LIMIT 1`
	var teacher models.TeacherDetail
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by id: %w", err)
	}
	return &teacher, nil
}

// FindByUserID returns the teacher profile of an account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID int64) (*models.TeacherDetail, error) {
	const query = teacherDetailSelect + ` WHERE t.user_id = ? LIMIT 1`
	var teacher models.TeacherDetail
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by user: %w", err)
	}
	return &teacher, nil
}

// List returns all teachers ordered by department then name.
func (r *TeacherRepository) List(ctx context.Context) ([]models.TeacherDetail, error) {
	const query = teacherDetailSelect + ` ORDER BY t.department, t.name, t.id`
	var teachers []models.TeacherDetail
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}
