package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// builder renders squirrel queries with SQLite placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store bundles the repositories over one handle.
type Store struct {
	db *sqlx.DB
	tx *sqlx.Tx

	Users         *UserRepository
	Students      *StudentRepository
	Teachers      *TeacherRepository
	Courses       *CourseRepository
	Grades        *GradeRepository
	ActionLogs    *ActionLogRepository
	LoginFailures *LoginFailureRepository
}

// NewStore creates a Store backed by db.
func NewStore(db *sqlx.DB) *Store {
	return newStore(db, nil, db)
}

func newStore(db *sqlx.DB, tx *sqlx.Tx, h DBTX) *Store {
	return &Store{
		db:            db,
		tx:            tx,
		Users:         NewUserRepository(h),
		Students:      NewStudentRepository(h),
		Teachers:      NewTeacherRepository(h),
		Courses:       NewCourseRepository(h),
		Grades:        NewGradeRepository(h),
		ActionLogs:    NewActionLogRepository(h),
		LoginFailures: NewLoginFailureRepository(h),
	}
}

// DB returns the handle the store was opened with.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// InTx runs fn with a Store bound to one transaction. The transaction commits
// when fn returns nil and rolls back otherwise. Nested calls join the outer
// transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newStore(s.db, tx, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", what, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
