package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/campus-records/internal/models"
)

const courseDetailSelect = `SELECT c.id, c.name, c.credits, c.teacher_id, COALESCE(c.semester, '') AS semester,
COALESCE(c.description, '') AS description, t.name AS teacher_name
FROM courses c LEFT JOIN teachers t ON t.id = c.teacher_id`

// CourseRepository provides database access for courses.
type CourseRepository struct {
	db DBTX
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db DBTX) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a course and sets its ID.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	const query = `INSERT INTO courses (name, credits, teacher_id, semester, description) VALUES (:name, :credits, :teacher_id, :semester, :description)`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read course id: %w", err)
	}
	course.ID = id
	return nil
}

// Update replaces the mutable course columns.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET name = :name, credits = :credits, teacher_id = :teacher_id, semester = :semester, description = :description WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return expectAffected(res, "update course")
}

// FindByID returns a course with its teacher's name.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.CourseDetail, error) {
	const query = courseDetailSelect + ` WHERE c.id = ? LIMIT 1`
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// List returns every course.
func (r *CourseRepository) List(ctx context.Context) ([]models.CourseDetail, error) {
	const query = courseDetailSelect + ` ORDER BY c.semester, c.name, c.id`
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByTeacher returns the courses a teacher is assigned to.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseDetail, error) {
	const query = courseDetailSelect + ` WHERE c.teacher_id = ? ORDER BY c.semester, c.name, c.id`
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list courses by teacher: %w", err)
	}
	return courses, nil
}

// Delete removes the course row. Callers clear its grades first.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM courses WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return expectAffected(res, "delete course")
}
