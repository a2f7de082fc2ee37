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

// CreateTeacherRequest holds the fields of a new teacher. An empty Username is
// derived from the name's initials.
type CreateTeacherRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Gender      string `json:"gender"`
	Title       string `json:"title"`
	Department  string `json:"department"`
	ContactInfo string `json:"contact_info"`
	IDCard      string `json:"id_card"`
}

// UpdateTeacherRequest replaces a teacher's profile. An empty Password keeps the current one.
type UpdateTeacherRequest struct {
	Name        string `json:"name" validate:"required"`
	Gender      string `json:"gender"`
	Title       string `json:"title"`
	Department  string `json:"department"`
	ContactInfo string `json:"contact_info"`
	IDCard      string `json:"id_card"`
	Password    string `json:"password"`
}

// TeacherService manages teacher profiles and their accounts.
type TeacherService struct {
	store     *repository.Store
	hasher    passwordHasher
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(store *repository.Store, hasher passwordHasher, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{store: store, hasher: hasher, validator: validate, logger: logger, metrics: metrics}
}

// Add creates the teacher account and profile.
func (s *TeacherService) Add(ctx context.Context, session *models.Session, req CreateTeacherRequest) (*models.TeacherDetail, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to hash password")
	}

	teacher := &models.Teacher{
		Name:        req.Name,
		Gender:      strings.TrimSpace(req.Gender),
		Title:       strings.TrimSpace(req.Title),
		Department:  strings.TrimSpace(req.Department),
		ContactInfo: strings.TrimSpace(req.ContactInfo),
		IDCard:      optionalString(req.IDCard),
	}
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		user, err := createTeacherTx(ctx, tx, teacher, req.Username, hash)
		if err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, models.ActionAddTeacher, "added teacher %s (%s)", teacher.Name, user.Username)
	})
	if err != nil {
		return nil, storeError(err, "teacher not found", "failed to add teacher")
	}
	s.metrics.ObserveMutation(models.ActionAddTeacher)
	s.logger.Info("teacher added", zap.Int64("teacher_id", teacher.ID), zap.Int64("by", session.UserID))
	return s.load(ctx, teacher.ID)
}

// createTeacherTx inserts the teacher account and profile. With no username
// the initials of the name are used, suffixed 1, 2, ... until free.
func createTeacherTx(ctx context.Context, tx *repository.Store, teacher *models.Teacher, username, passwordHash string) (*models.User, error) {
	if username == "" {
		generated, err := availableUsername(ctx, tx, initials.Of(teacher.Name))
		if err != nil {
			return nil, err
		}
		username = generated
	} else {
		taken, err := tx.Users.ExistsByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, appErrors.ErrDuplicateUsername
		}
	}

	user := &models.User{Username: username, PasswordHash: passwordHash, Role: models.RoleTeacher}
	if err := tx.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	teacher.UserID = user.ID
	if err := tx.Teachers.Create(ctx, teacher); err != nil {
		return nil, err
	}
	return user, nil
}

func availableUsername(ctx context.Context, tx *repository.Store, base string) (string, error) {
	if base == "" {
		base = "teacher"
	}
	candidate := base
	for n := 1; ; n++ {
		taken, err := tx.Users.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}

// Update replaces the profile. A supplied password resets the account and is logged separately.
func (s *TeacherService) Update(ctx context.Context, session *models.Session, id int64, req UpdateTeacherRequest) (*models.TeacherDetail, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	var hash string
	if req.Password != "" {
		h, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to hash password")
		}
		hash = h
	}

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		current, err := tx.Teachers.FindByID(ctx, id)
		if err != nil {
			return err
		}
		teacher := current.Teacher
		teacher.Name = req.Name
		teacher.Gender = strings.TrimSpace(req.Gender)
		teacher.Title = strings.TrimSpace(req.Title)
		teacher.Department = strings.TrimSpace(req.Department)
		teacher.ContactInfo = strings.TrimSpace(req.ContactInfo)
		teacher.IDCard = optionalString(req.IDCard)
		if err := tx.Teachers.Update(ctx, &teacher); err != nil {
			return err
		}
		if hash != "" {
			if err := tx.Users.UpdatePassword(ctx, teacher.UserID, hash); err != nil {
				return err
			}
			if err := recordAction(ctx, tx, session.UserID, models.ActionResetPassword, "reset password of %s", current.Username); err != nil {
				return err
			}
		}
		return recordAction(ctx, tx, session.UserID, models.ActionUpdateTeacher, "updated teacher %d %s", id, teacher.Name)
	})
	if err != nil {
		return nil, storeError(err, "teacher not found", "failed to update teacher")
	}
	s.metrics.ObserveMutation(models.ActionUpdateTeacher)
	if hash != "" {
		s.metrics.ObserveMutation(models.ActionResetPassword)
	}
	return s.load(ctx, id)
}

// Delete removes the teacher's account. The profile follows by cascade and
// their courses are left without a teacher.
func (s *TeacherService) Delete(ctx context.Context, session *models.Session, id int64) error {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		current, err := tx.Teachers.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.UserID == session.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "cannot delete your own account")
		}
		if err := tx.Users.Delete(ctx, current.UserID); err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, models.ActionDeleteTeacher, "deleted teacher %d %s (%s)", id, current.Name, current.Username)
	})
	if err != nil {
		return storeError(err, "teacher not found", "failed to delete teacher")
	}
	s.metrics.ObserveMutation(models.ActionDeleteTeacher)
	s.logger.Info("teacher deleted", zap.Int64("teacher_id", id), zap.Int64("by", session.UserID))
	return nil
}

// List returns every teacher.
func (s *TeacherService) List(ctx context.Context, session *models.Session) ([]models.TeacherDetail, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	teachers, err := s.store.Teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list teachers")
	}
	return teachers, nil
}

// Get returns one teacher.
func (s *TeacherService) Get(ctx context.Context, session *models.Session, id int64) (*models.TeacherDetail, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// GetByUserID returns the profile of a teacher account. Teachers may read their own.
func (s *TeacherService) GetByUserID(ctx context.Context, session *models.Session, userID int64) (*models.TeacherDetail, error) {
	if err := Authorize(session, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	if session.Role == models.RoleTeacher && session.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only view their own profile")
	}
	teacher, err := s.store.Teachers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "teacher not found", "failed to load teacher")
	}
	return teacher, nil
}

func (s *TeacherService) load(ctx context.Context, id int64) (*models.TeacherDetail, error) {
	teacher, err := s.store.Teachers.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "teacher not found", "failed to load teacher")
	}
	return teacher, nil
}
