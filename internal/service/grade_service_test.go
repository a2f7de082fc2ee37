package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records/internal/models"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

func TestGradeServiceAssignIsUpsert(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	student := fx.addStudent(t, "张三", "C1")
	course := fx.addCourse(t, "Algebra", nil)

	action, err := fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, ptr(90.0))
	require.NoError(t, err)
	assert.Equal(t, models.ActionAddGrade, action)
	action, err = fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, ptr(90.0))
	require.NoError(t, err)
	assert.Equal(t, models.ActionUpdateGrade, action)

	assert.Equal(t, 1, fx.countRows(t, `SELECT COUNT(*) FROM grades WHERE student_id = ? AND course_id = ?`, student.ID, course.ID))
	records, err := fx.grades.ForStudent(ctx, fx.admin, student.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 90.0, records[0].Score)
}

func TestGradeServiceAssignNilDeletesThenNoops(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	student := fx.addStudent(t, "张三", "C1")
	course := fx.addCourse(t, "Algebra", nil)
	_, err := fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, ptr(70.0))
	require.NoError(t, err)

	action, err := fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ActionDeleteGrade, action)
	assert.Equal(t, 0, fx.countRows(t, `SELECT COUNT(*) FROM grades`))
	before := len(fx.actions(t))

	action, err = fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, action)
	assert.Len(t, fx.actions(t), before, "no-op writes no audit entry")
}

func TestGradeServiceRejectsOutOfRangeScores(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	student := fx.addStudent(t, "张三", "C1")
	course := fx.addCourse(t, "Algebra", nil)

	for _, score := range []float64{-1, 150.5} {
		_, err := fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, ptr(score))
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err), "score %v", score)
	}
	_, err := fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, ptr(150.0))
	require.NoError(t, err)
	assert.Equal(t, 1, fx.countRows(t, `SELECT COUNT(*) FROM grades`))
}

func TestGradeServiceMissingReferences(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	student := fx.addStudent(t, "张三", "C1")
	course := fx.addCourse(t, "Algebra", nil)

	_, err := fx.grades.Assign(ctx, fx.admin, student.ID, 999, ptr(60.0))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))
	_, err = fx.grades.Assign(ctx, fx.admin, 999, course.ID, ptr(60.0))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))
}

func TestGradeServiceTeachersGradeOwnCoursesOnly(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	student := fx.addStudent(t, "张三", "C1")
	xu := fx.addTeacher(t, "Xu Yang")
	li := fx.addTeacher(t, "Li Na")
	physics := fx.addCourse(t, "Physics", &xu.ID)
	chemistry := fx.addCourse(t, "Chemistry", &li.ID)
	session := fx.sessionFor(t, xu.Username)

	_, err := fx.grades.Assign(ctx, session, student.ID, physics.ID, ptr(81.5))
	require.NoError(t, err)
	_, err = fx.grades.Assign(ctx, session, student.ID, chemistry.ID, ptr(81.5))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))

	var recorder int64
	require.NoError(t, fx.store.DB().Get(&recorder, `SELECT recorder_id FROM grades WHERE course_id = ?`, physics.ID))
	assert.Equal(t, session.UserID, recorder)

	roster, err := fx.grades.Roster(ctx, session, physics.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.NotNil(t, roster[0].Score)
	assert.Equal(t, 81.5, *roster[0].Score)

	_, err = fx.grades.Roster(ctx, session, chemistry.ID)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))

	pupil := fx.sessionFor(t, *student.Username)
	_, err = fx.grades.Assign(ctx, pupil, student.ID, physics.ID, ptr(100.0))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))
}

func TestGradeServiceStudentsSeeOwnGrades(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	me := fx.addStudent(t, "张三", "C1")
	other := fx.addStudent(t, "李四", "C1")
	course := fx.addCourse(t, "Algebra", nil)
	for _, id := range []int64{me.ID, other.ID} {
		_, err := fx.grades.Assign(ctx, fx.admin, id, course.ID, ptr(66.0))
		require.NoError(t, err)
	}
	session := fx.sessionFor(t, *me.Username)

	rows, err := fx.grades.Query(ctx, session, models.GradeQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, me.ID, rows[0].StudentID)

	_, err = fx.grades.ForStudent(ctx, session, other.ID)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))

	all, err := fx.grades.Query(ctx, fx.admin, models.GradeQuery{CourseID: &course.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGradeServiceClassCourseStats(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	course := fx.addCourse(t, "Algebra", nil)
	for i, score := range []float64{50, 60, 70, 95} {
		student := fx.addStudent(t, "学生"+string(rune('A'+i)), "C1")
		_, err := fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, ptr(score))
		require.NoError(t, err)
	}
	outsider := fx.addStudent(t, "王五", "C2")
	_, err := fx.grades.Assign(ctx, fx.admin, outsider.ID, course.ID, ptr(10.0))
	require.NoError(t, err)

	stats, err := fx.grades.ClassCourseStats(ctx, fx.admin, "C1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 68.75, stats.Average)
	assert.Equal(t, 16.72, stats.StdDev)
	assert.Equal(t, 50.0, stats.Min)
	assert.Equal(t, 95.0, stats.Max)
	assert.Equal(t, 75.0, stats.PassRate)

	empty, err := fx.grades.ClassCourseStats(ctx, fx.admin, "C9", course.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.PassRate)
}

func TestGradeServiceParseScore(t *testing.T) {
	svc := NewGradeService(nil, GradeConfig{}, nil, nil)

	score, err := svc.ParseScore("  ")
	require.NoError(t, err)
	assert.Nil(t, score)

	score, err = svc.ParseScore(" 87.5 ")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 87.5, *score)

	for _, raw := range []string{"abc", "151", "-0.5", "NaN"} {
		_, err := svc.ParseScore(raw)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err), raw)
	}
}
