package service

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

func newExportService(fx *recordsFixture) *ExportService {
	return NewExportService(ExportServiceParams{
		Students:   fx.students,
		Teachers:   fx.teachers,
		Courses:    fx.courses,
		Grades:     fx.grades,
		ActionLogs: fx.logs,
	})
}

func TestExportServiceWritesGradesCSV(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	student := fx.addStudent(t, "张三", "C1")
	course := fx.addCourse(t, "Algebra", nil)
	_, err := fx.grades.Assign(ctx, fx.admin, student.ID, course.ID, ptr(92.5))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "grades.csv")
	n, err := newExportService(fx).Export(ctx, fx.admin, ExportRequest{Kind: ExportGrades, Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Student ID", "Student", "Class", "Course", "Score"}, records[0])
	assert.Equal(t, []string{formatID(student.ID), "张三", "C1", "Algebra", "92.5"}, records[1])
}

func TestExportServiceFormats(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	fx.addStudent(t, "张三", "C1")
	svc := newExportService(fx)
	dir := t.TempDir()

	for _, name := range []string{"students.xlsx", "students.pdf"} {
		path := filepath.Join(dir, name)
		n, err := svc.Export(ctx, fx.admin, ExportRequest{Kind: ExportStudents, Path: path})
		require.NoError(t, err, name)
		assert.Equal(t, 1, n)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	_, err := svc.Export(ctx, fx.admin, ExportRequest{Kind: ExportStudents, Path: filepath.Join(dir, "students.doc")})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err))
	_, err = svc.Export(ctx, fx.admin, ExportRequest{Kind: "parents", Path: filepath.Join(dir, "p.csv")})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err))
	_, err = svc.Export(ctx, fx.admin, ExportRequest{Kind: ExportRoster, Path: filepath.Join(dir, "r.csv")})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err))
}

func TestExportServiceFollowsReadPermissions(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	student := fx.addStudent(t, "张三", "C1")
	session := fx.sessionFor(t, *student.Username)
	svc := newExportService(fx)

	_, err := svc.Export(ctx, session, ExportRequest{Kind: ExportLogs, Path: filepath.Join(t.TempDir(), "logs.csv")})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.CodeOf(err))

	data, title, err := svc.Dataset(ctx, fx.admin, ExportRequest{Kind: ExportLogs})
	require.NoError(t, err)
	assert.Equal(t, "Action Log", title)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "ADD_STUDENT", data.Rows[0][2])
	assert.Equal(t, "admin", data.Rows[0][1])
}

func TestExportServiceLongDescriptionToXLSX(t *testing.T) {
	fx := newRecordsFixture(t)
	ctx := context.Background()
	_, err := fx.courses.Add(ctx, fx.admin, CourseRequest{Name: "Seminar", Credits: 2, Description: strings.Repeat("d", 300)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "courses.xlsx")
	n, err := newExportService(fx).Export(ctx, fx.admin, ExportRequest{Kind: ExportCourses, Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, path)
}
