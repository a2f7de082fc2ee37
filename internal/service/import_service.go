package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/repository"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
	"github.com/noah-isme/campus-records/pkg/sheet"
)

// StudentImportRow is one spreadsheet row in the order
// department, class, name, gender, enrollment year, national id, contact.
type StudentImportRow struct {
	Department     string `validate:"required"`
	ClassName      string `validate:"required"`
	Name           string `validate:"required"`
	Gender         string `validate:"required"`
	EnrollmentYear string `validate:"required"`
	IDCard         string `validate:"required"`
	ContactInfo    string
}

// TeacherImportRow is one spreadsheet row in the order
// department, name, gender, title, national id, contact.
type TeacherImportRow struct {
	Department  string `validate:"required"`
	Name        string `validate:"required"`
	Gender      string `validate:"required"`
	Title       string `validate:"required"`
	IDCard      string `validate:"required"`
	ContactInfo string
}

var importFieldLabels = map[string]string{
	"Department":     "department",
	"ClassName":      "class",
	"Name":           "name",
	"Gender":         "gender",
	"EnrollmentYear": "enrollment year",
	"Title":          "title",
	"IDCard":         "national id",
}

const (
	importEntityStudents = "students"
	importEntityTeachers = "teachers"
)

// ImportService loads students and teachers in bulk. Each row commits on its
// own so one bad row never undoes the others.
type ImportService struct {
	store     *repository.Store
	hasher    passwordHasher
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewImportService constructs the import service.
func NewImportService(store *repository.Store, hasher passwordHasher, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{store: store, hasher: hasher, validator: validate, logger: logger, metrics: metrics}
}

// ImportStudentsFile reads a spreadsheet and imports its rows as students.
func (s *ImportService) ImportStudentsFile(ctx context.Context, session *models.Session, path string) (*models.ImportResult, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	return s.ImportStudents(ctx, session, rows)
}

// ImportTeachersFile reads a spreadsheet and imports its rows as teachers.
func (s *ImportService) ImportTeachersFile(ctx context.Context, session *models.Session, path string) (*models.ImportResult, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	return s.ImportTeachers(ctx, session, rows)
}

// ImportStudents creates a student and account per data row. Student
// accounts are named after the new id and get the last six characters of the
// national id as password.
func (s *ImportService) ImportStudents(ctx context.Context, session *models.Session, rows [][]string) (*models.ImportResult, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	pending := make([]importRow, len(rows))
	for i, cells := range rows {
		if sheet.Blank(cells) {
			pending[i] = importRow{skip: true}
			continue
		}
		pending[i] = s.prepareStudent(StudentImportRow{
			Department:     sheet.Cell(cells, 0),
			ClassName:      sheet.Cell(cells, 1),
			Name:           sheet.Cell(cells, 2),
			Gender:         sheet.Cell(cells, 3),
			EnrollmentYear: sheet.Cell(cells, 4),
			IDCard:         sheet.Cell(cells, 5),
			ContactInfo:    sheet.Cell(cells, 6),
		})
		pending[i].cells = cells
	}
	return s.finish(ctx, session, s.apply(ctx, pending), importEntityStudents, models.ActionBatchImportStudents)
}

func (s *ImportService) prepareStudent(row StudentImportRow) importRow {
	if err := s.validator.Struct(row); err != nil {
		return importRow{err: describeRowError(err)}
	}
	year, err := strconv.Atoi(row.EnrollmentYear)
	if err != nil {
		return importRow{err: rowError{msg: fmt.Sprintf("enrollment year %q is not an integer", row.EnrollmentYear)}}
	}
	student := &models.Student{
		Name:           row.Name,
		Gender:         row.Gender,
		EnrollmentYear: &year,
		Department:     row.Department,
		ClassName:      row.ClassName,
		ContactInfo:    row.ContactInfo,
		IDCard:         optionalString(row.IDCard),
	}
	return importRow{
		password: defaultPassword(row.IDCard),
		create: func(ctx context.Context, tx *repository.Store, hash string) error {
			_, err := createStudentTx(ctx, tx, student, hash)
			return err
		},
	}
}

// ImportTeachers creates a teacher and account per data row. Usernames come
// from the name's initials with a numeric suffix when taken.
func (s *ImportService) ImportTeachers(ctx context.Context, session *models.Session, rows [][]string) (*models.ImportResult, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	pending := make([]importRow, len(rows))
	for i, cells := range rows {
		if sheet.Blank(cells) {
			pending[i] = importRow{skip: true}
			continue
		}
		pending[i] = s.prepareTeacher(TeacherImportRow{
			Department:  sheet.Cell(cells, 0),
			Name:        sheet.Cell(cells, 1),
			Gender:      sheet.Cell(cells, 2),
			Title:       sheet.Cell(cells, 3),
			IDCard:      sheet.Cell(cells, 4),
			ContactInfo: sheet.Cell(cells, 5),
		})
		pending[i].cells = cells
	}
	return s.finish(ctx, session, s.apply(ctx, pending), importEntityTeachers, models.ActionBatchImportTeachers)
}

func (s *ImportService) prepareTeacher(row TeacherImportRow) importRow {
	if err := s.validator.Struct(row); err != nil {
		return importRow{err: describeRowError(err)}
	}
	teacher := &models.Teacher{
		Name:        row.Name,
		Gender:      row.Gender,
		Title:       row.Title,
		Department:  row.Department,
		ContactInfo: row.ContactInfo,
		IDCard:      optionalString(row.IDCard),
	}
	return importRow{
		password: defaultPassword(row.IDCard),
		create: func(ctx context.Context, tx *repository.Store, hash string) error {
			_, err := createTeacherTx(ctx, tx, teacher, "", hash)
			return err
		},
	}
}

// importRow is a parsed row waiting for its password hash. err is set when
// the row was rejected before hashing; skip marks a blank sheet row.
type importRow struct {
	cells    []string
	password string
	create   func(ctx context.Context, tx *repository.Store, hash string) error
	err      error
	skip     bool
}

type hashed struct {
	hash string
	err  error
}

// apply hashes the accepted rows' passwords in parallel, then creates the
// rows one transaction at a time in sheet order.
func (s *ImportService) apply(ctx context.Context, rows []importRow) *models.ImportResult {
	hashes := iter.Map(rows, func(row *importRow) hashed {
		if row.skip || row.err != nil {
			return hashed{}
		}
		h, err := s.hasher.Hash(row.password)
		return hashed{hash: h, err: err}
	})

	result := &models.ImportResult{}
	for i := range rows {
		row := &rows[i]
		if row.skip {
			continue
		}
		err := row.err
		if err == nil {
			err = hashes[i].err
		}
		if err == nil {
			err = s.store.InTx(ctx, func(tx *repository.Store) error {
				return row.create(ctx, tx, hashes[i].hash)
			})
		}
		if err != nil {
			s.fail(result, i+1, row.cells, err)
			continue
		}
		result.SuccessCount++
	}
	return result
}

func (s *ImportService) fail(result *models.ImportResult, rowNum int, cells []string, err error) {
	result.FailureCount++
	msg := fmt.Sprintf("row %d: %s [%s]", rowNum, rowReason(err), strings.Join(cells, ", "))
	result.Errors = append(result.Errors, msg)
	s.logger.Debug("import row rejected", zap.Int("row", rowNum), zap.Error(err))
}

func (s *ImportService) finish(ctx context.Context, session *models.Session, result *models.ImportResult, entity string, action models.ActionType) (*models.ImportResult, error) {
	s.metrics.ObserveImport(entity, result.SuccessCount, result.FailureCount)
	s.logger.Info("batch import finished",
		zap.String("entity", entity),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailureCount))
	if result.SuccessCount == 0 {
		return result, nil
	}
	if err := recordAction(ctx, s.store, session.UserID, action, "imported %d %s, %d rows failed", result.SuccessCount, entity, result.FailureCount); err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to record import")
	}
	s.metrics.ObserveMutation(action)
	return result, nil
}

// rowError marks failures that already read as a user-facing reason.
type rowError struct{ msg string }

func (e rowError) Error() string { return e.msg }

func rowReason(err error) string {
	var re rowError
	if errors.As(err, &re) {
		return re.msg
	}
	typed := appErrors.FromError(storeError(err, "referenced record not found", "conflicts with an existing record"))
	if typed.Code == appErrors.ErrInternal.Code {
		return err.Error()
	}
	return typed.Message
}

func describeRowError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return rowError{msg: err.Error()}
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label, ok := importFieldLabels[fe.Field()]
		if !ok {
			label = strings.ToLower(fe.Field())
		}
		missing = append(missing, label)
	}
	return rowError{msg: "missing " + strings.Join(missing, ", ")}
}

// defaultPassword is the last six characters of the national id.
func defaultPassword(idCard string) string {
	r := []rune(idCard)
	if len(r) <= 6 {
		return idCard
	}
	return string(r[len(r)-6:])
}

func readSheet(path string) ([][]string, error) {
	rows, err := sheet.ReadRows(path)
	if err != nil {
		if errors.Is(err, sheet.ErrUnsupportedFormat) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "unsupported import file")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "failed to read import file")
	}
	return rows, nil
}
