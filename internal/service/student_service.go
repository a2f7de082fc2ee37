package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/repository"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
	"github.com/noah-isme/campus-records/pkg/initials"
)

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// archiveStorage keeps copies of student archive files.
type archiveStorage interface {
	Import(ownerID int64, src string) (string, error)
	Delete(rel string) error
}

// CreateStudentRequest holds the fields of a new student and their initial password.
type CreateStudentRequest struct {
	Name           string `json:"name" validate:"required"`
	Gender         string `json:"gender"`
	EnrollmentYear *int   `json:"enrollment_year" validate:"omitempty,gte=1900,lte=2999"`
	Department     string `json:"department"`
	Major          string `json:"major"`
	ClassName      string `json:"class_name"`
	ContactInfo    string `json:"contact_info"`
	IDCard         string `json:"id_card"`
	Password       string `json:"password" validate:"required"`
	// ArchiveFile is a local file copied into archive storage.
	ArchiveFile string `json:"archive_file"`
}

// UpdateStudentRequest replaces a student's mutable fields. An empty Password
// keeps the current one.
type UpdateStudentRequest struct {
	Name           string `json:"name" validate:"required"`
	Gender         string `json:"gender"`
	EnrollmentYear *int   `json:"enrollment_year" validate:"omitempty,gte=1900,lte=2999"`
	Department     string `json:"department"`
	Major          string `json:"major"`
	ClassName      string `json:"class_name"`
	ContactInfo    string `json:"contact_info"`
	IDCard         string `json:"id_card"`
	Password       string `json:"password"`
	ArchiveFile    string `json:"archive_file"`
}

// StudentServiceParams groups the student service collaborators.
type StudentServiceParams struct {
	Store     *repository.Store
	Hasher    passwordHasher
	Archives  archiveStorage
	Validator *validator.Validate
	Logger    *zap.Logger
	Metrics   *MetricsService
}

// StudentService handles student profiles and their login accounts.
type StudentService struct {
	store     *repository.Store
	hasher    passwordHasher
	archives  archiveStorage
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewStudentService constructs the student service. Archives may be nil when
// archive storage is disabled.
func NewStudentService(params StudentServiceParams) *StudentService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &StudentService{
		store:     params.Store,
		hasher:    params.Hasher,
		archives:  params.Archives,
		validator: params.Validator,
		logger:    params.Logger,
		metrics:   params.Metrics,
	}
}

// Add creates the student and a student account named after the new id.
func (s *StudentService) Add(ctx context.Context, session *models.Session, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	if req.ArchiveFile != "" && s.archives == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "archive storage is disabled")
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to hash password")
	}

	student := &models.Student{
		Name:           req.Name,
		Gender:         strings.TrimSpace(req.Gender),
		EnrollmentYear: req.EnrollmentYear,
		Department:     strings.TrimSpace(req.Department),
		Major:          strings.TrimSpace(req.Major),
		ClassName:      strings.TrimSpace(req.ClassName),
		ContactInfo:    strings.TrimSpace(req.ContactInfo),
		IDCard:         optionalString(req.IDCard),
	}
	var stored string
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := createStudentTx(ctx, tx, student, hash); err != nil {
			return err
		}
		if req.ArchiveFile != "" {
			rel, err := s.archives.Import(student.ID, req.ArchiveFile)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrValidation.Code, "failed to store archive file")
			}
			stored = rel
			student.ArchivePath = &rel
			if err := tx.Students.Update(ctx, student); err != nil {
				return err
			}
		}
		return recordAction(ctx, tx, session.UserID, models.ActionAddStudent, "added student %d %s", student.ID, student.Name)
	})
	if err != nil {
		s.discardArchive(stored)
		return nil, storeError(err, "student not found", "failed to add student")
	}
	s.metrics.ObserveMutation(models.ActionAddStudent)
	s.logger.Info("student added", zap.Int64("student_id", student.ID), zap.Int64("by", session.UserID))
	return s.load(ctx, student.ID)
}

// createStudentTx inserts the student with fresh initials and the linked
// student account. It writes no audit entry.
func createStudentTx(ctx context.Context, tx *repository.Store, student *models.Student, passwordHash string) (*models.User, error) {
	student.NamePinyin = initials.Of(student.Name)
	if err := tx.Students.Create(ctx, student); err != nil {
		return nil, err
	}
	studentID := student.ID
	user := &models.User{
		Username:     strconv.FormatInt(student.ID, 10),
		PasswordHash: passwordHash,
		Role:         models.RoleStudent,
		StudentID:    &studentID,
	}
	if err := tx.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update replaces the student's fields and refreshes the initials. A supplied
// password resets the account and is logged separately.
func (s *StudentService) Update(ctx context.Context, session *models.Session, id int64, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	if req.ArchiveFile != "" && s.archives == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "archive storage is disabled")
	}
	var hash string
	if req.Password != "" {
		h, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to hash password")
		}
		hash = h
	}

	var stored, replaced string
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		current, err := tx.Students.FindByID(ctx, id)
		if err != nil {
			return err
		}
		student := current.Student
		student.Name = req.Name
		student.NamePinyin = initials.Of(req.Name)
		student.Gender = strings.TrimSpace(req.Gender)
		student.EnrollmentYear = req.EnrollmentYear
		student.Department = strings.TrimSpace(req.Department)
		student.Major = strings.TrimSpace(req.Major)
		student.ClassName = strings.TrimSpace(req.ClassName)
		student.ContactInfo = strings.TrimSpace(req.ContactInfo)
		student.IDCard = optionalString(req.IDCard)
		if req.ArchiveFile != "" {
			rel, err := s.archives.Import(id, req.ArchiveFile)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrValidation.Code, "failed to store archive file")
			}
			stored = rel
			if student.ArchivePath != nil {
				replaced = *student.ArchivePath
			}
			student.ArchivePath = &rel
		}
		if err := tx.Students.Update(ctx, &student); err != nil {
			return err
		}

		if hash != "" {
			user, err := tx.Users.FindByStudentID(ctx, id)
			if err != nil {
				return storeError(err, "student account not found", "failed to load student account")
			}
			if err := tx.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
				return err
			}
			if err := recordAction(ctx, tx, session.UserID, models.ActionResetPassword, "reset password of %s", user.Username); err != nil {
				return err
			}
		}
		return recordAction(ctx, tx, session.UserID, models.ActionUpdateStudent, "updated student %d %s", id, student.Name)
	})
	if err != nil {
		s.discardArchive(stored)
		return nil, storeError(err, "student not found", "failed to update student")
	}
	s.discardArchive(replaced)
	s.metrics.ObserveMutation(models.ActionUpdateStudent)
	if hash != "" {
		s.metrics.ObserveMutation(models.ActionResetPassword)
	}
	return s.load(ctx, id)
}

// Delete removes the student's account, grades and profile together.
func (s *StudentService) Delete(ctx context.Context, session *models.Session, id int64) error {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return err
	}
	var archive string
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		current, err := tx.Students.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.ArchivePath != nil {
			archive = *current.ArchivePath
		}
		if err := tx.Users.DeleteByStudentID(ctx, id); err != nil {
			return err
		}
		removed, err := tx.Grades.DeleteByStudent(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Students.Delete(ctx, id); err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, models.ActionDeleteStudent, "deleted student %d %s and %d grades", id, current.Name, removed)
	})
	if err != nil {
		return storeError(err, "student not found", "failed to delete student")
	}
	s.discardArchive(archive)
	s.metrics.ObserveMutation(models.ActionDeleteStudent)
	s.logger.Info("student deleted", zap.Int64("student_id", id), zap.Int64("by", session.UserID))
	return nil
}

// List returns students matching filter.
func (s *StudentService) List(ctx context.Context, session *models.Session, filter models.StudentFilter) ([]models.StudentDetail, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	students, err := s.store.Students.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list students")
	}
	return students, nil
}

// Get returns one student. Students may only read their own profile.
func (s *StudentService) Get(ctx context.Context, session *models.Session, id int64) (*models.StudentDetail, error) {
	if err := authorizeStudentSelf(session, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// GetByUserID returns the student linked to an account.
func (s *StudentService) GetByUserID(ctx context.Context, session *models.Session, userID int64) (*models.StudentDetail, error) {
	if err := Authorize(session); err != nil {
		return nil, err
	}
	if session.Role == models.RoleStudent && session.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own records")
	}
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "account not found", "failed to load account")
	}
	if user.StudentID == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "account has no student profile")
	}
	return s.load(ctx, *user.StudentID)
}

// SearchByInitials finds students whose initials start with prefix, so "zs" finds 张三.
func (s *StudentService) SearchByInitials(ctx context.Context, session *models.Session, prefix string) ([]models.Student, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search prefix is required")
	}
	students, err := s.store.Students.SearchByInitials(ctx, prefix)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to search students")
	}
	return students, nil
}

// ClassNames lists the distinct classes students belong to.
func (s *StudentService) ClassNames(ctx context.Context, session *models.Session) ([]string, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	names, err := s.store.Students.ClassNames(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list classes")
	}
	return names, nil
}

func (s *StudentService) load(ctx context.Context, id int64) (*models.StudentDetail, error) {
	student, err := s.store.Students.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "student not found", "failed to load student")
	}
	return student, nil
}

func (s *StudentService) discardArchive(rel string) {
	if rel == "" || s.archives == nil {
		return
	}
	if err := s.archives.Delete(rel); err != nil {
		s.logger.Warn("failed to remove archive file", zap.String("path", rel), zap.Error(err))
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
