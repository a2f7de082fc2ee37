package service

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/models"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
	"github.com/noah-isme/campus-records/pkg/export"
)

// ExportKind names a dataset that can be exported.
type ExportKind string

const (
	ExportStudents ExportKind = "students"
	ExportTeachers ExportKind = "teachers"
	ExportCourses  ExportKind = "courses"
	ExportGrades   ExportKind = "grades"
	ExportRoster   ExportKind = "roster"
	ExportLogs     ExportKind = "logs"
)

// ExportRequest selects a dataset, its filters and the output file. The file
// extension (.xlsx, .csv or .pdf) picks the format.
type ExportRequest struct {
	Kind      ExportKind
	Path      string
	ClassName string
	CourseID  *int64
	StudentID *int64
}

type studentLister interface {
	List(ctx context.Context, session *models.Session, filter models.StudentFilter) ([]models.StudentDetail, error)
}

type teacherLister interface {
	List(ctx context.Context, session *models.Session) ([]models.TeacherDetail, error)
}

type courseLister interface {
	List(ctx context.Context, session *models.Session) ([]models.CourseDetail, error)
}

type gradeReader interface {
	Query(ctx context.Context, session *models.Session, filter models.GradeQuery) ([]models.GradeQueryRow, error)
	Roster(ctx context.Context, session *models.Session, courseID int64) ([]models.RosterEntry, error)
}

type actionLogLister interface {
	List(ctx context.Context, session *models.Session, filter models.ActionLogFilter) ([]models.ActionLog, error)
}

// ExportServiceParams groups the readers an export draws from.
type ExportServiceParams struct {
	Students   studentLister
	Teachers   teacherLister
	Courses    courseLister
	Grades     gradeReader
	ActionLogs actionLogLister
	PDFFont    string
	Logger     *zap.Logger
}

// ExportService renders record listings to files. Role checks are those of
// the underlying reads.
type ExportService struct {
	students   studentLister
	teachers   teacherLister
	courses    courseLister
	grades     gradeReader
	actionLogs actionLogLister
	options    export.Options
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &ExportService{
		students:   params.Students,
		teachers:   params.Teachers,
		courses:    params.Courses,
		grades:     params.Grades,
		actionLogs: params.ActionLogs,
		options:    export.Options{PDFFont: params.PDFFont},
		logger:     params.Logger,
	}
}

// Export writes the requested dataset and returns the number of data rows.
func (s *ExportService) Export(ctx context.Context, session *models.Session, req ExportRequest) (int, error) {
	switch strings.ToLower(filepath.Ext(req.Path)) {
	case ".xlsx", ".csv", ".pdf":
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "export file must end in .xlsx, .csv or .pdf")
	}
	dataset, title, err := s.Dataset(ctx, session, req)
	if err != nil {
		return 0, err
	}
	if err := export.WriteFile(req.Path, dataset, title, s.options); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to write export")
	}
	s.logger.Info("export written", zap.String("kind", string(req.Kind)), zap.String("path", req.Path), zap.Int("rows", len(dataset.Rows)))
	return len(dataset.Rows), nil
}

// Dataset builds the rows of an export with a title for formats that show one.
func (s *ExportService) Dataset(ctx context.Context, session *models.Session, req ExportRequest) (export.Dataset, string, error) {
	switch req.Kind {
	case ExportStudents:
		students, err := s.students.List(ctx, session, models.StudentFilter{ClassName: req.ClassName})
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"ID", "Name", "Initials", "Gender", "Enrollment Year", "Department", "Major", "Class", "Contact", "Username"}}
		for _, st := range students {
			data.Rows = append(data.Rows, []string{
				formatID(st.ID), st.Name, st.NamePinyin, st.Gender, formatOptionalInt(st.EnrollmentYear),
				st.Department, st.Major, st.ClassName, st.ContactInfo, deref(st.Username),
			})
		}
		return data, "Students", nil
	case ExportTeachers:
		teachers, err := s.teachers.List(ctx, session)
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"ID", "Name", "Username", "Gender", "Title", "Department", "Contact", "Frozen"}}
		for _, t := range teachers {
			data.Rows = append(data.Rows, []string{
				formatID(t.ID), t.Name, t.Username, t.Gender, t.Title, t.Department, t.ContactInfo, strconv.FormatBool(t.IsFrozen),
			})
		}
		return data, "Teachers", nil
	case ExportCourses:
		courses, err := s.courses.List(ctx, session)
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"ID", "Name", "Credits", "Teacher", "Semester", "Description"}}
		for _, c := range courses {
			data.Rows = append(data.Rows, []string{
				formatID(c.ID), c.Name, formatScore(c.Credits), deref(c.TeacherName), c.Semester, c.Description,
			})
		}
		return data, "Courses", nil
	case ExportGrades:
		rows, err := s.grades.Query(ctx, session, models.GradeQuery{StudentID: req.StudentID, CourseID: req.CourseID, ClassName: req.ClassName})
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"Student ID", "Student", "Class", "Course", "Score"}}
		for _, g := range rows {
			data.Rows = append(data.Rows, []string{formatID(g.StudentID), g.StudentName, g.ClassName, g.CourseName, formatScore(g.Score)})
		}
		return data, "Grades", nil
	case ExportRoster:
		if req.CourseID == nil {
			return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, "roster export needs a course")
		}
		roster, err := s.grades.Roster(ctx, session, *req.CourseID)
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"Student ID", "Student", "Class", "Score"}}
		for _, r := range roster {
			score := ""
			if r.Score != nil {
				score = formatScore(*r.Score)
			}
			data.Rows = append(data.Rows, []string{formatID(r.StudentID), r.StudentName, r.ClassName, score})
		}
		return data, "Course Roster", nil
	case ExportLogs:
		entries, err := s.actionLogs.List(ctx, session, models.ActionLogFilter{})
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"Time", "User", "Action", "Description"}}
		for _, e := range entries {
			data.Rows = append(data.Rows, []string{e.Timestamp.Format(time.DateTime), deref(e.Username), string(e.ActionType), e.Description})
		}
		return data, "Action Log", nil
	default:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, "unknown export "+string(req.Kind))
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
