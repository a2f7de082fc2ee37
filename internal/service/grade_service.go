package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/repository"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

// GradeConfig bounds accepted scores and sets the statistics pass mark.
type GradeConfig struct {
	MinScore float64
	MaxScore float64
	PassMark float64
}

// GradeService records and reports scores.
type GradeService struct {
	store   *repository.Store
	config  GradeConfig
	logger  *zap.Logger
	metrics *MetricsService
	now     func() time.Time
}

// NewGradeService constructs the grade service. An empty range defaults to 0..150
// and a non-positive pass mark to 60.
func NewGradeService(store *repository.Store, cfg GradeConfig, logger *zap.Logger, metrics *MetricsService) *GradeService {
	if cfg.MaxScore <= cfg.MinScore {
		cfg.MinScore, cfg.MaxScore = 0, 150
	}
	if cfg.PassMark <= 0 {
		cfg.PassMark = 60
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{store: store, config: cfg, logger: logger, metrics: metrics, now: time.Now}
}

// ParseScore turns user input into a score. Blank input means "no grade".
func (s *GradeService) ParseScore(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, validationError(err, fmt.Sprintf("score %q is not a number", raw))
	}
	if err := s.checkRange(score); err != nil {
		return nil, err
	}
	return &score, nil
}

func (s *GradeService) checkRange(score float64) error {
	if math.IsNaN(score) || score < s.config.MinScore || score > s.config.MaxScore {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between %g and %g", s.config.MinScore, s.config.MaxScore))
	}
	return nil
}

// Assign sets, replaces or clears the score of a student in a course. A nil
// score deletes an existing grade; clearing an absent grade does nothing.
// It returns the action taken, or "" when nothing changed.
func (s *GradeService) Assign(ctx context.Context, session *models.Session, studentID, courseID int64, score *float64) (models.ActionType, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return "", err
	}
	if score != nil {
		if err := s.checkRange(*score); err != nil {
			return "", err
		}
	}

	var action models.ActionType
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		course, err := tx.Courses.FindByID(ctx, courseID)
		if err != nil {
			return storeError(err, "course not found", "failed to load course")
		}
		if err := authorizeCourseTeacher(session, &course.Course); err != nil {
			return err
		}
		student, err := tx.Students.FindByID(ctx, studentID)
		if err != nil {
			return storeError(err, "student not found", "failed to load student")
		}

		existing, err := tx.Grades.Find(ctx, studentID, courseID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		recorder := session.UserID
		now := s.now().UTC()

		switch {
		case existing == nil && score == nil:
			return nil
		case existing == nil:
			action = models.ActionAddGrade
			if err := tx.Grades.Insert(ctx, &models.Grade{
				StudentID:  studentID,
				CourseID:   courseID,
				Score:      *score,
				RecordedAt: now,
				RecorderID: &recorder,
			}); err != nil {
				return err
			}
			return recordAction(ctx, tx, session.UserID, action, "graded %s in %s: %g", student.Name, course.Name, *score)
		case score == nil:
			action = models.ActionDeleteGrade
			if err := tx.Grades.Delete(ctx, existing.ID); err != nil {
				return err
			}
			return recordAction(ctx, tx, session.UserID, action, "removed grade of %s in %s (was %g)", student.Name, course.Name, existing.Score)
		default:
			action = models.ActionUpdateGrade
			if err := tx.Grades.UpdateScore(ctx, existing.ID, *score, &recorder, now); err != nil {
				return err
			}
			return recordAction(ctx, tx, session.UserID, action, "changed grade of %s in %s: %g -> %g", student.Name, course.Name, existing.Score, *score)
		}
	})
	if err != nil {
		return "", storeError(err, "grade not found", "failed to record grade")
	}
	if action != "" {
		s.metrics.ObserveMutation(action)
	}
	return action, nil
}

// ForStudent returns a student's grades. Students may only read their own.
func (s *GradeService) ForStudent(ctx context.Context, session *models.Session, studentID int64) ([]models.GradeRecord, error) {
	if err := authorizeStudentSelf(session, studentID); err != nil {
		return nil, err
	}
	records, err := s.store.Grades.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list grades")
	}
	return records, nil
}

// Roster lists every student with their score in the course, if any.
func (s *GradeService) Roster(ctx context.Context, session *models.Session, courseID int64) ([]models.RosterEntry, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	course, err := s.store.Courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, storeError(err, "course not found", "failed to load course")
	}
	if err := authorizeCourseTeacher(session, &course.Course); err != nil {
		return nil, err
	}
	roster, err := s.store.Grades.Roster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load roster")
	}
	return roster, nil
}

// Query lists grades by student, course or class. Students only ever see their own.
func (s *GradeService) Query(ctx context.Context, session *models.Session, filter models.GradeQuery) ([]models.GradeQueryRow, error) {
	if err := Authorize(session); err != nil {
		return nil, err
	}
	if session.Role == models.RoleStudent {
		if session.StudentID == nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "account has no student profile")
		}
		filter.StudentID = session.StudentID
	}
	rows, err := s.store.Grades.Query(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to query grades")
	}
	return rows, nil
}

// ClassCourseStats summarises one class's scores in one course. Figures are
// rounded to two decimals; the standard deviation is the population one and
// the pass rate is a percentage.
func (s *GradeService) ClassCourseStats(ctx context.Context, session *models.Session, className string, courseID int64) (*models.ClassCourseStats, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	className = strings.TrimSpace(className)
	if className == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name is required")
	}
	if _, err := s.store.Courses.FindByID(ctx, courseID); err != nil {
		return nil, storeError(err, "course not found", "failed to load course")
	}
	scores, err := s.store.Grades.ScoresForClass(ctx, className, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load scores")
	}
	return summarize(className, courseID, scores, s.config.PassMark), nil
}

func summarize(className string, courseID int64, scores []float64, passMark float64) *models.ClassCourseStats {
	stats := &models.ClassCourseStats{ClassName: className, CourseID: courseID, Count: len(scores)}
	if len(scores) == 0 {
		return stats
	}
	minScore, maxScore := scores[0], scores[0]
	var sum float64
	passed := 0
	for _, v := range scores {
		sum += v
		minScore = math.Min(minScore, v)
		maxScore = math.Max(maxScore, v)
		if v >= passMark {
			passed++
		}
	}
	n := float64(len(scores))
	mean := sum / n
	var sq float64
	for _, v := range scores {
		sq += (v - mean) * (v - mean)
	}
	stats.Average = round2(mean)
	stats.StdDev = round2(math.Sqrt(sq / n))
	stats.Min = round2(minScore)
	stats.Max = round2(maxScore)
	stats.PassRate = round2(float64(passed) / n * 100)
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// authorizeCourseTeacher lets admins through and teachers only for courses they teach.
func authorizeCourseTeacher(session *models.Session, course *models.Course) error {
	if session.Role == models.RoleAdmin {
		return nil
	}
	if session.Role == models.RoleTeacher && session.TeacherID != nil && course.TeacherID != nil && *course.TeacherID == *session.TeacherID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the course teacher may manage its grades")
}
