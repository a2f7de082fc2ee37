package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/repository"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

// CourseRequest holds the editable fields of a course.
type CourseRequest struct {
	Name        string  `json:"name" validate:"required"`
	Credits     float64 `json:"credits" validate:"gte=0,lte=100"`
	TeacherID   *int64  `json:"teacher_id"`
	Semester    string  `json:"semester"`
	Description string  `json:"description"`
}

// CourseService manages the course catalogue.
type CourseService struct {
	store     *repository.Store
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewCourseService constructs the course service.
func NewCourseService(store *repository.Store, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{store: store, validator: validate, logger: logger, metrics: metrics}
}

// Add creates a course.
func (s *CourseService) Add(ctx context.Context, session *models.Session, req CourseRequest) (*models.CourseDetail, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	course, err := s.build(req)
	if err != nil {
		return nil, err
	}
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureTeacher(ctx, tx, course.TeacherID); err != nil {
			return err
		}
		if err := tx.Courses.Create(ctx, course); err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, models.ActionAddCourse, "added course %d %s", course.ID, course.Name)
	})
	if err != nil {
		return nil, storeError(err, "course not found", "failed to add course")
	}
	s.metrics.ObserveMutation(models.ActionAddCourse)
	return s.load(ctx, course.ID)
}

// Update replaces a course's fields.
func (s *CourseService) Update(ctx context.Context, session *models.Session, id int64, req CourseRequest) (*models.CourseDetail, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	course, err := s.build(req)
	if err != nil {
		return nil, err
	}
	course.ID = id
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureTeacher(ctx, tx, course.TeacherID); err != nil {
			return err
		}
		if err := tx.Courses.Update(ctx, course); err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, models.ActionUpdateCourse, "updated course %d %s", id, course.Name)
	})
	if err != nil {
		return nil, storeError(err, "course not found", "failed to update course")
	}
	s.metrics.ObserveMutation(models.ActionUpdateCourse)
	return s.load(ctx, id)
}

// Delete removes the course's grades and then the course.
func (s *CourseService) Delete(ctx context.Context, session *models.Session, id int64) error {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		current, err := tx.Courses.FindByID(ctx, id)
		if err != nil {
			return err
		}
		removed, err := tx.Grades.DeleteByCourse(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Courses.Delete(ctx, id); err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, models.ActionDeleteCourse, "deleted course %d %s and %d grades", id, current.Name, removed)
	})
	if err != nil {
		return storeError(err, "course not found", "failed to delete course")
	}
	s.metrics.ObserveMutation(models.ActionDeleteCourse)
	s.logger.Info("course deleted", zap.Int64("course_id", id), zap.Int64("by", session.UserID))
	return nil
}

// List returns every course with its teacher's name.
func (s *CourseService) List(ctx context.Context, session *models.Session) ([]models.CourseDetail, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	courses, err := s.store.Courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list courses")
	}
	return courses, nil
}

// ListByTeacher returns the courses a teacher teaches. Teachers may only list their own.
func (s *CourseService) ListByTeacher(ctx context.Context, session *models.Session, teacherID int64) ([]models.CourseDetail, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	if session.Role == models.RoleTeacher && (session.TeacherID == nil || *session.TeacherID != teacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only list their own courses")
	}
	courses, err := s.store.Courses.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list courses")
	}
	return courses, nil
}

func (s *CourseService) build(req CourseRequest) (*models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	return &models.Course{
		Name:        req.Name,
		Credits:     req.Credits,
		TeacherID:   req.TeacherID,
		Semester:    strings.TrimSpace(req.Semester),
		Description: strings.TrimSpace(req.Description),
	}, nil
}

func (s *CourseService) load(ctx context.Context, id int64) (*models.CourseDetail, error) {
	course, err := s.store.Courses.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "course not found", "failed to load course")
	}
	return course, nil
}

func ensureTeacher(ctx context.Context, tx *repository.Store, teacherID *int64) error {
	if teacherID == nil {
		return nil
	}
	if _, err := tx.Teachers.FindByID(ctx, *teacherID); err != nil {
		return storeError(err, "teacher not found", "failed to load teacher")
	}
	return nil
}
