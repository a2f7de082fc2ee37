package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/noah-isme/campus-records/internal/models"
)

var studentColumns = []string{
	"s.id", "s.name", "COALESCE(s.name_pinyin, '') AS name_pinyin", "COALESCE(s.gender, '') AS gender",
	"s.enrollment_year", "COALESCE(s.department, '') AS department", "COALESCE(s.major, '') AS major",
	"COALESCE(s.class_name, '') AS class_name", "COALESCE(s.contact_info, '') AS contact_info",
	"s.id_card", "s.archive_path",
}

// StudentRepository provides database access for student profiles.
type StudentRepository struct {
	db DBTX
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a student and sets its ID.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (name, name_pinyin, gender, enrollment_year, department, major, class_name, contact_info, id_card, archive_path)
VALUES (:name, :name_pinyin, :gender, :enrollment_year, :department, :major, :class_name, :contact_info, :id_card, :archive_path)`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read student id: %w", err)
	}
	student.ID = id
	return nil
}

// Update replaces every mutable column of the student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET name = :name, name_pinyin = :name_pinyin, gender = :gender, enrollment_year = :enrollment_year,
department = :department, major = :major, class_name = :class_name, contact_info = :contact_info, id_card = :id_card, archive_path = :archive_path
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res, "update student")
}

// FindByID returns a student with its linked account.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	query, args, err := r.selectDetail().Where(sq.Eq{"s.id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build student lookup: %w", err)
	}
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// List returns students matching the filter ordered by class then id.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	q := r.selectDetail()
	if filter.ClassName != "" {
		q = q.Where(sq.Eq{"s.class_name": filter.ClassName})
	}
	if filter.Department != "" {
		q = q.Where(sq.Eq{"s.department": filter.Department})
	}
	if filter.EnrollmentYear != nil {
		q = q.Where(sq.Eq{"s.enrollment_year": *filter.EnrollmentYear})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q = q.Where(sq.Or{
			likeEscaped("s.name", "%"+escapeLike(search)+"%"),
			likeEscaped("s.name_pinyin", escapeLike(strings.ToLower(search))+"%"),
		})
	}
	query, args, err := q.OrderBy("s.class_name", "s.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build student list: %w", err)
	}

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// SearchByInitials returns students whose initials start with prefix.
func (r *StudentRepository) SearchByInitials(ctx context.Context, prefix string) ([]models.Student, error) {
	query, args, err := builder.Select(studentColumns...).
		From("students s").
		Where(likeEscaped("s.name_pinyin", escapeLike(strings.ToLower(prefix))+"%")).
		OrderBy("s.name_pinyin", "s.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build initials search: %w", err)
	}
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("search students by initials: %w", err)
	}
	return students, nil
}

// ClassNames returns the distinct non-empty class names.
func (r *StudentRepository) ClassNames(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT class_name FROM students WHERE class_name IS NOT NULL AND class_name <> '' ORDER BY class_name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("list class names: %w", err)
	}
	return names, nil
}

// Delete removes the student row. Callers clear grades and the account first.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM students WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res, "delete student")
}

func (r *StudentRepository) selectDetail() sq.SelectBuilder {
	cols := append(append([]string{}, studentColumns...), "u.id AS user_id", "u.username", "u.is_frozen")
	return builder.Select(cols...).
		From("students s").
		LeftJoin("users u ON u.student_id = s.id")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func likeEscaped(column, pattern string) sq.Sqlizer {
	return sq.Expr(column+` LIKE ? ESCAPE '\'`, pattern)
}
