package service

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/repository"
	"github.com/noah-isme/campus-records/pkg/config"
	"github.com/noah-isme/campus-records/pkg/credential"
	"github.com/noah-isme/campus-records/pkg/database"
	"github.com/noah-isme/campus-records/pkg/storage"
)

type recordsFixture struct {
	store    *repository.Store
	codec    *credential.Codec
	metrics  *MetricsService
	students *StudentService
	teachers *TeacherService
	courses  *CourseService
	grades   *GradeService
	accounts *AccountService
	imports  *ImportService
	logs     *ActionLogService
	admin    *models.Session
	archives string
}

func newRecordsFixture(t *testing.T) *recordsFixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := database.NewSQLite(config.DatabaseConfig{Path: filepath.Join(dir, "campus.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	archives, err := storage.NewLocalStorage(filepath.Join(dir, "archives"))
	require.NoError(t, err)

	store := repository.NewStore(db)
	codec := credential.NewCodec(bcrypt.MinCost)
	metrics := NewMetricsService()
	fx := &recordsFixture{
		store:    store,
		codec:    codec,
		metrics:  metrics,
		students: NewStudentService(StudentServiceParams{Store: store, Hasher: codec, Archives: archives, Metrics: metrics}),
		teachers: NewTeacherService(store, codec, nil, nil, metrics),
		courses:  NewCourseService(store, nil, nil, metrics),
		grades:   NewGradeService(store, GradeConfig{}, nil, metrics),
		accounts: NewAccountService(store, codec, BootstrapConfig{}, nil, nil, metrics),
		imports:  NewImportService(store, codec, nil, nil, metrics),
		logs:     NewActionLogService(store.ActionLogs, nil),
		archives: filepath.Join(dir, "archives"),
	}

	created, err := fx.accounts.EnsureBootstrapAdmin(ctx)
	require.NoError(t, err)
	require.True(t, created)
	admin, err := store.Users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	fx.admin = &models.Session{ID: "admin-session", UserID: admin.ID, Username: admin.Username, Role: models.RoleAdmin}
	return fx
}

// sessionFor builds the session a successful login would yield for username.
func (fx *recordsFixture) sessionFor(t *testing.T, username string) *models.Session {
	t.Helper()
	ctx := context.Background()
	user, err := fx.store.Users.FindByUsername(ctx, username)
	require.NoError(t, err)
	session := &models.Session{ID: "session-" + username, UserID: user.ID, Username: user.Username, Role: user.Role, StudentID: user.StudentID}
	if user.Role == models.RoleTeacher {
		teacher, err := fx.store.Teachers.FindByUserID(ctx, user.ID)
		require.NoError(t, err)
		session.TeacherID = &teacher.ID
	}
	return session
}

func (fx *recordsFixture) addStudent(t *testing.T, name, class string) *models.StudentDetail {
	t.Helper()
	year := 2023
	student, err := fx.students.Add(context.Background(), fx.admin, CreateStudentRequest{
		Name:           name,
		Gender:         "F",
		EnrollmentYear: &year,
		Department:     "Science",
		ClassName:      class,
		IDCard:         "110101200501011234",
		Password:       "secret1",
	})
	require.NoError(t, err)
	return student
}

func (fx *recordsFixture) addTeacher(t *testing.T, name string) *models.TeacherDetail {
	t.Helper()
	teacher, err := fx.teachers.Add(context.Background(), fx.admin, CreateTeacherRequest{Name: name, Password: "teach123", Department: "Science"})
	require.NoError(t, err)
	return teacher
}

func (fx *recordsFixture) addCourse(t *testing.T, name string, teacherID *int64) *models.CourseDetail {
	t.Helper()
	course, err := fx.courses.Add(context.Background(), fx.admin, CourseRequest{Name: name, Credits: 3, TeacherID: teacherID, Semester: "2024-1"})
	require.NoError(t, err)
	return course
}

func (fx *recordsFixture) actions(t *testing.T) []models.ActionType {
	t.Helper()
	entries, err := fx.logs.List(context.Background(), fx.admin, models.ActionLogFilter{})
	require.NoError(t, err)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	out := make([]models.ActionType, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ActionType)
	}
	return out
}

func (fx *recordsFixture) countRows(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, fx.store.DB().GetContext(context.Background(), &n, query, args...))
	return n
}

func ptr[T any](v T) *T {
	return &v
}
