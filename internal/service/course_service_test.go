package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records/internal/models"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

func TestCourseServiceAddAndUpdate(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	teacher := fx.addTeacher(t, "Xu Yang")

	course := fx.addCourse(t, "Algebra", nil)
	assert.Nil(t, course.TeacherID)

	updated, err := fx.courses.Update(ctx, fx.admin, course.ID, CourseRequest{Name: "Linear Algebra", Credits: 4.5, TeacherID: &teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", updated.Name)
	assert.Equal(t, 4.5, updated.Credits)
	require.NotNil(t, updated.TeacherID)
	assert.Equal(t, teacher.ID, *updated.TeacherID)

	_, err = fx.courses.Update(ctx, fx.admin, course.ID, CourseRequest{Name: "Algebra", Credits: 3, TeacherID: ptr(int64(999))})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))

	_, err = fx.courses.Add(ctx, fx.admin, CourseRequest{Name: "", Credits: 3})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err))

	_, err = fx.courses.Update(ctx, fx.admin, 999, CourseRequest{Name: "Ghost", Credits: 1})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))
}

func TestCourseServiceDeleteRemovesGrades(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	student := fx.addStudent(t, "张三", "C1")
	course := fx.addCourse(t, "Algebra", nil)
	other := fx.addCourse(t, "Biology", nil)
	_, err := fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, ptr(75.0))
	require.NoError(t, err)
	_, err = fx.grades.Assign(ctx, fx.admin, student.ID, other.ID, ptr(80.0))
	require.NoError(t, err)

	require.NoError(t, fx.courses.Delete(ctx, fx.admin, course.ID))

	assert.Equal(t, 0, fx.countRows(t, `SELECT COUNT(*) FROM grades WHERE course_id = ?`, course.ID))
	assert.Equal(t, 1, fx.countRows(t, `SELECT COUNT(*) FROM grades WHERE course_id = ?`, other.ID))
	actions := fx.actions(t)
	assert.Equal(t, models.ActionDeleteCourse, actions[len(actions)-1])
}

func TestCourseServiceListByTeacher(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	xu := fx.addTeacher(t, "Xu Yang")
	li := fx.addTeacher(t, "Li Na")
	fx.addCourse(t, "Physics", &xu.ID)
	fx.addCourse(t, "Chemistry", &li.ID)
	session := fx.sessionFor(t, xu.Username)

	mine, err := fx.courses.ListByTeacher(ctx, session, xu.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Physics", mine[0].Name)

	_, err = fx.courses.ListByTeacher(ctx, session, li.ID)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))

	err = fx.courses.Delete(ctx, session, mine[0].ID)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))
}
