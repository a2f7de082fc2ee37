package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/noah-isme/campus-records/internal/models"
)

// GradeRepository provides database access for grades.
type GradeRepository struct {
	db DBTX
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db DBTX) *GradeRepository {
	return &GradeRepository{db: db}
}

// Find returns the grade for a (student, course) pair.
func (r *GradeRepository) Find(ctx context.Context, studentID, courseID int64) (*models.Grade, error) {
	const query = `SELECT id, student_id, course_id, score, recorded_at, recorder_id FROM grades WHERE student_id = ? AND course_id = ? LIMIT 1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find grade: %w", err)
	}
	return &grade, nil
}

// Insert stores a new grade and sets its ID.
func (r *GradeRepository) Insert(ctx context.Context, grade *models.Grade) error {
	if grade.RecordedAt.IsZero() {
		grade.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grades (student_id, course_id, score, recorded_at, recorder_id) VALUES (:student_id, :course_id, :score, :recorded_at, :recorder_id)`
	res, err := r.db.NamedExecContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("insert grade: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read grade id: %w", err)
	}
	grade.ID = id
	return nil
}

// UpdateScore overwrites score, timestamp and recorder of an existing grade.
func (r *GradeRepository) UpdateScore(ctx context.Context, id int64, score float64, recorderID *int64, ts time.Time) error {
	const query = `UPDATE grades SET score = ?, recorded_at = ?, recorder_id = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, score, ts, recorderID, id)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return expectAffected(res, "update grade")
}

// Delete removes one grade.
func (r *GradeRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM grades WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return expectAffected(res, "delete grade")
}

// DeleteByStudent removes all grades of a student.
func (r *GradeRepository) DeleteByStudent(ctx context.Context, studentID int64) (int64, error) {
	const query = `DELETE FROM grades WHERE student_id = ?`
	res, err := r.db.ExecContext(ctx, query, studentID)
	if err != nil {
		return 0, fmt.Errorf("delete student grades: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByCourse removes all grades of a course.
func (r *GradeRepository) DeleteByCourse(ctx context.Context, courseID int64) (int64, error) {
	const query = `DELETE FROM grades WHERE course_id = ?`
	res, err := r.db.ExecContext(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("delete course grades: %w", err)
	}
	return res.RowsAffected()
}

// ListByStudent returns a student's grades with course information.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.GradeRecord, error) {
	const query = `SELECT g.course_id, c.name AS course_name, c.credits, COALESCE(c.semester, '') AS semester, g.score, g.recorded_at
FROM grades g JOIN courses c ON c.id = g.course_id
WHERE g.student_id = ? ORDER BY c.semester, c.name`
	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return records, nil
}

// Roster returns every student with their score in the course, if graded.
func (r *GradeRepository) Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id, s.name AS student_name, COALESCE(s.class_name, '') AS class_name, g.score
FROM students s LEFT JOIN grades g ON g.student_id = s.id AND g.course_id = ?
ORDER BY s.class_name, s.id`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return roster, nil
}

// Query lists grades joined with student and course names.
func (r *GradeRepository) Query(ctx context.Context, filter models.GradeQuery) ([]models.GradeQueryRow, error) {
	q := builder.
		Select("g.student_id", "s.name AS student_name", "COALESCE(s.class_name, '') AS class_name",
			"g.course_id", "c.name AS course_name", "g.score").
		From("grades g").
		Join("students s ON s.id = g.student_id").
		Join("courses c ON c.id = g.course_id")
	if filter.StudentID != nil {
		q = q.Where(sq.Eq{"g.student_id": *filter.StudentID})
	}
	if filter.CourseID != nil {
		q = q.Where(sq.Eq{"g.course_id": *filter.CourseID})
	}
	if filter.ClassName != "" {
		q = q.Where(sq.Eq{"s.class_name": filter.ClassName})
	}
	query, args, err := q.OrderBy("s.class_name", "g.student_id", "c.name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build grade query: %w", err)
	}

	var rows []models.GradeQueryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query grades: %w", err)
	}
	return rows, nil
}

// ScoresForClass returns the scores of one class in one course.
func (r *GradeRepository) ScoresForClass(ctx context.Context, className string, courseID int64) ([]float64, error) {
	const query = `SELECT g.score FROM grades g JOIN students s ON s.id = g.student_id WHERE s.class_name = ? AND g.course_id = ?`
	var scores []float64
	if err := r.db.SelectContext(ctx, &scores, query, className, courseID); err != nil {
		return nil, fmt.Errorf("list class scores: %w", err)
	}
	return scores, nil
}
