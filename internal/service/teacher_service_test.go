package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records/internal/models"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

func TestTeacherServiceGeneratesUniqueUsernames(t *testing.T) {
	fx := newRecordsFixture(t)

	first := fx.addTeacher(t, "Xu Yang")
	second := fx.addTeacher(t, "徐阳")
	third := fx.addTeacher(t, "Xie Yu")

	assert.Equal(t, "xy", first.Username)
	assert.Equal(t, "xy1", second.Username)
	assert.Equal(t, "xy2", third.Username)
}

func TestTeacherServiceSuppliedUsername(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()

	teacher, err := fx.teachers.Add(ctx, fx.admin, CreateTeacherRequest{Username: "mr.xu", Name: "Xu Yang", Password: "teach123"})
	require.NoError(t, err)
	assert.Equal(t, "mr.xu", teacher.Username)

	_, err = fx.teachers.Add(ctx, fx.admin, CreateTeacherRequest{Username: "mr.xu", Name: "Xu Ying", Password: "teach123"})
	assert.Equal(t, appErrors.ErrDuplicateUsername.Code, appErrors.CodeOf(err))

	_, err = fx.teachers.Add(ctx, fx.admin, CreateTeacherRequest{Username: "admin", Name: "Ann Dee", Password: "teach123"})
	assert.Equal(t, appErrors.ErrDuplicateUsername.Code, appErrors.CodeOf(err))
	assert.Equal(t, 1, fx.countRows(t, `SELECT COUNT(*) FROM teachers`))
}

func TestTeacherServiceUpdate(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	teacher := fx.addTeacher(t, "Xu Yang")

	updated, err := fx.teachers.Update(ctx, fx.admin, teacher.ID, UpdateTeacherRequest{Name: "Xu Yang", Title: "Professor", Password: "fresh123"})
	require.NoError(t, err)
	assert.Equal(t, "Professor", updated.Title)
	assert.Equal(t, "xy", updated.Username, "renaming keeps the username")

	user, err := fx.store.Users.FindByID(ctx, teacher.UserID)
	require.NoError(t, err)
	assert.True(t, fx.codec.Verify("fresh123", user.PasswordHash))

	actions := fx.actions(t)
	assert.Equal(t, []models.ActionType{models.ActionResetPassword, models.ActionUpdateTeacher}, actions[len(actions)-2:])
}

func TestTeacherServiceDeleteLeavesCoursesUnassigned(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	teacher := fx.addTeacher(t, "Xu Yang")
	course := fx.addCourse(t, "Physics", &teacher.ID)
	require.NotNil(t, course.TeacherName)
	assert.Equal(t, "Xu Yang", *course.TeacherName)

	require.NoError(t, fx.teachers.Delete(ctx, fx.admin, teacher.ID))

	_, err := fx.teachers.Get(ctx, fx.admin, teacher.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.CodeOf(err))
	assert.Equal(t, 0, fx.countRows(t, `SELECT COUNT(*) FROM users WHERE id = ?`, teacher.UserID))

	courses, err := fx.courses.List(ctx, fx.admin)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Nil(t, courses[0].TeacherID)
	assert.Nil(t, courses[0].TeacherName)
}

func TestTeacherServiceGetByUserID(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	mine := fx.addTeacher(t, "Xu Yang")
	other := fx.addTeacher(t, "Li Na")
	session := fx.sessionFor(t, mine.Username)

	got, err := fx.teachers.GetByUserID(ctx, session, session.UserID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = fx.teachers.GetByUserID(ctx, session, other.UserID)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))

	_, err = fx.teachers.List(ctx, session)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))

	all, err := fx.teachers.List(ctx, fx.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
