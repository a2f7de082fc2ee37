package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/repository"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

// BootstrapConfig names the administrator created when none exists.
type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
}

type passwordChange struct {
	Password string `validate:"required,min=6,max=72"`
}

// AccountService manages login accounts independent of their profiles.
type AccountService struct {
	store     *repository.Store
	hasher    passwordHasher
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	bootstrap BootstrapConfig
}

// NewAccountService constructs the account service.
func NewAccountService(store *repository.Store, hasher passwordHasher, bootstrap BootstrapConfig, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *AccountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bootstrap.AdminUsername == "" {
		bootstrap.AdminUsername = "admin"
	}
	if bootstrap.AdminPassword == "" {
		bootstrap.AdminPassword = "admin123"
	}
	return &AccountService{
		store:     store,
		hasher:    hasher,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		bootstrap: bootstrap,
	}
}

// List returns accounts, optionally of one role.
func (s *AccountService) List(ctx context.Context, session *models.Session, role *models.UserRole) ([]models.UserSummary, error) {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	if role != nil && !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role "+string(*role))
	}
	users, err := s.store.Users.List(ctx, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list accounts")
	}
	return users, nil
}

// SetFrozen freezes or unfreezes an account. Administrators cannot freeze themselves.
func (s *AccountService) SetFrozen(ctx context.Context, session *models.Session, userID int64, frozen bool) error {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return err
	}
	if frozen && userID == session.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot freeze your own account")
	}
	action := models.ActionUnfreezeAccount
	verb := "unfroze"
	if frozen {
		action = models.ActionFreezeAccount
		verb = "froze"
	}
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Users.SetFrozen(ctx, userID, frozen); err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, action, "%s account %s", verb, user.Username)
	})
	if err != nil {
		return storeError(err, "account not found", "failed to update account")
	}
	s.metrics.ObserveMutation(action)
	s.logger.Info("account frozen state changed", zap.Int64("user_id", userID), zap.Bool("frozen", frozen))
	return nil
}

// ResetPassword sets a new password on any account.
func (s *AccountService) ResetPassword(ctx context.Context, session *models.Session, userID int64, password string) error {
	if err := Authorize(session, models.RoleAdmin); err != nil {
		return err
	}
	hash, err := s.hashNew(password)
	if err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Users.UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, models.ActionResetPassword, "reset password of %s", user.Username)
	})
	if err != nil {
		return storeError(err, "account not found", "failed to reset password")
	}
	s.metrics.ObserveMutation(models.ActionResetPassword)
	return nil
}

// ChangePassword replaces the caller's own password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, session *models.Session, current, next string) error {
	if err := Authorize(session); err != nil {
		return err
	}
	hash, err := s.hashNew(next)
	if err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.FindByID(ctx, session.UserID)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(current, user.PasswordHash) {
			return appErrors.Clone(appErrors.ErrBadCredentials, "current password is incorrect")
		}
		if err := tx.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
			return err
		}
		return recordAction(ctx, tx, session.UserID, models.ActionChangePassword, "changed own password")
	})
	if err != nil {
		return storeError(err, "account not found", "failed to change password")
	}
	s.metrics.ObserveMutation(models.ActionChangePassword)
	return nil
}

// EnsureBootstrapAdmin creates the configured administrator when no admin
// exists and reports whether it did. While that account still accepts the
// configured password a warning is logged at every start.
func (s *AccountService) EnsureBootstrapAdmin(ctx context.Context) (bool, error) {
	admin := models.RoleAdmin
	count, err := s.store.Users.CountByRole(ctx, admin)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to count administrators")
	}
	if count == 0 {
		hash, err := s.hasher.Hash(s.bootstrap.AdminPassword)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to hash password")
		}
		err = s.store.InTx(ctx, func(tx *repository.Store) error {
			user := &models.User{Username: s.bootstrap.AdminUsername, PasswordHash: hash, Role: admin}
			if err := tx.Users.Create(ctx, user); err != nil {
				return err
			}
			return recordAction(ctx, tx, user.ID, models.ActionBootstrapAdmin, "created initial administrator %s", user.Username)
		})
		if err != nil {
			return false, storeError(err, "account not found", "failed to create administrator")
		}
		s.logger.Warn("created initial administrator with the configured password; change it after first login",
			zap.String("username", s.bootstrap.AdminUsername))
		return true, nil
	}

	user, err := s.store.Users.FindByUsername(ctx, s.bootstrap.AdminUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load administrator")
	}
	if user.Role == admin && s.hasher.Verify(s.bootstrap.AdminPassword, user.PasswordHash) {
		s.logger.Warn("administrator still uses the initial password", zap.String("username", user.Username))
	}
	return false, nil
}

func (s *AccountService) hashNew(password string) (string, error) {
	if err := s.validator.Struct(passwordChange{Password: password}); err != nil {
		return "", validationError(err, "password must be 6 to 72 characters")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to hash password")
	}
	return hash, nil
}
