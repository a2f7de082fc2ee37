package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/pkg/captcha"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error
}

type authTeacherReader interface {
	FindByUserID(ctx context.Context, userID int64) (*models.TeacherDetail, error)
}

type actionLogWriter interface {
	Create(ctx context.Context, entry *models.ActionLog) error
}

type challengeGenerator interface {
	Generate() (string, []byte, error)
}

type passwordVerifier interface {
	Verify(plaintext, hash string) bool
}

// AuthConfig defines the failed-login lockout. MaxFailedAttempts <= 0 disables it.
type AuthConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// AuthServiceParams groups the gate's collaborators.
type AuthServiceParams struct {
	Users      authUserRepository
	Teachers   authTeacherReader
	Logs       actionLogWriter
	Challenges challengeGenerator
	Verifier   passwordVerifier
	Validator  *validator.Validate
	Logger     *zap.Logger
	Metrics    *MetricsService
	Lockouts   LockoutStore
	Config     AuthConfig
	Now        func() time.Time
}

type pendingChallenge struct {
	id     string
	answer string
	image  []byte
}

// AuthService is the session/role gate. It owns the pending challenge of the
// one interactive login in progress and turns credentials into a Session.
type AuthService struct {
	users      authUserRepository
	teachers   authTeacherReader
	logs       actionLogWriter
	challenges challengeGenerator
	verifier   passwordVerifier
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	lockouts   LockoutStore
	config     AuthConfig
	now        func() time.Time

	mu      sync.Mutex
	state   models.AuthState
	pending *pendingChallenge
}

// NewAuthService constructs the gate in the AwaitingChallenge state.
func NewAuthService(params AuthServiceParams) *AuthService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.Lockouts == nil {
		params.Lockouts = NewMemoryLockouts()
	}
	if params.Config.LockoutDuration <= 0 {
		params.Config.LockoutDuration = 5 * time.Minute
	}
	return &AuthService{
		users:      params.Users,
		teachers:   params.Teachers,
		logs:       params.Logs,
		challenges: params.Challenges,
		verifier:   params.Verifier,
		validator:  params.Validator,
		logger:     params.Logger,
		metrics:    params.Metrics,
		lockouts:   params.Lockouts,
		config:     params.Config,
		now:        params.Now,
		state:      models.StateAwaitingChallenge,
	}
}

// IssueChallenge replaces any pending challenge with a fresh one.
func (s *AuthService) IssueChallenge() (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.regenerateLocked(); err != nil {
		return nil, err
	}
	s.state = models.StateAwaitingChallenge
	return s.currentLocked(), nil
}

// Challenge returns the pending challenge, or nil when none is outstanding.
func (s *AuthService) Challenge() *models.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

// State reports where the gate is in its cycle.
func (s *AuthService) State() models.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Login validates the challenge answer and credentials. Every rejection
// replaces the pending challenge. Unknown user, wrong role and wrong password
// share one error so callers cannot tell them apart.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = models.StateAuthenticating
	req.Username = strings.TrimSpace(req.Username)
	req.ChallengeResponse = strings.TrimSpace(req.ChallengeResponse)

	if err := s.validator.Struct(req); err != nil {
		return nil, s.rejectLocked(LoginOutcomeInvalid, validationError(err, "username, password, role and verification code are required"))
	}

	if s.pending == nil || !captcha.Matches(s.pending.answer, req.ChallengeResponse) {
		return nil, s.rejectLocked(LoginOutcomeBadChallenge, appErrors.ErrBadChallenge)
	}

	now := s.now()
	key := strings.ToLower(req.Username)
	if s.lockedOut(ctx, key, now) {
		return nil, s.rejectLocked(LoginOutcomeLockedOut, appErrors.ErrTooManyAttempts)
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.noteFailure(ctx, key, now)
			return nil, s.rejectLocked(LoginOutcomeBadCredentials, appErrors.ErrBadCredentials)
		}
		return nil, s.rejectLocked(LoginOutcomeInvalid, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to fetch user"))
	}

	if user.Role != req.Role || !s.verifier.Verify(req.Password, user.PasswordHash) {
		s.noteFailure(ctx, key, now)
		return nil, s.rejectLocked(LoginOutcomeBadCredentials, appErrors.ErrBadCredentials)
	}

	if user.IsFrozen {
		return nil, s.rejectLocked(LoginOutcomeFrozen, appErrors.ErrAccountFrozen)
	}

	if err := s.lockouts.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to clear login failures", zap.Error(err))
	}
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		StudentID: user.StudentID,
		IssuedAt:  now.UTC(),
	}
	if user.Role == models.RoleTeacher && s.teachers != nil {
		teacher, err := s.teachers.FindByUserID(ctx, user.ID)
		if err != nil {
			s.logger.Warn("teacher account has no profile", zap.Int64("user_id", user.ID), zap.Error(err))
		} else {
			session.TeacherID = &teacher.ID
		}
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now.UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	if s.logs != nil {
		if err := s.logs.Create(ctx, &models.ActionLog{
			UserID:      user.ID,
			ActionType:  models.ActionLogin,
			Description: "logged in as " + string(user.Role),
		}); err != nil {
			s.logger.Warn("failed to record login audit log", zap.Error(err))
		}
	}

	s.pending = nil
	s.state = models.StateAuthenticated
	s.metrics.ObserveLogin(LoginOutcomeSuccess)
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return session, nil
}

func (s *AuthService) rejectLocked(outcome string, err error) error {
	s.state = models.StateRejected
	s.metrics.ObserveLogin(outcome)
	if regenErr := s.regenerateLocked(); regenErr != nil {
		s.logger.Warn("failed to regenerate challenge", zap.Error(regenErr))
		s.pending = nil
	}
	return err
}

func (s *AuthService) regenerateLocked() error {
	answer, image, err := s.challenges.Generate()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to generate challenge")
	}
	s.pending = &pendingChallenge{id: uuid.NewString(), answer: answer, image: image}
	return nil
}

func (s *AuthService) currentLocked() *models.Challenge {
	if s.pending == nil {
		return nil
	}
	return &models.Challenge{ID: s.pending.id, Image: s.pending.image}
}

// lockedOut reports whether key is inside an active lockout. A store that
// cannot be read does not block the login.
func (s *AuthService) lockedOut(ctx context.Context, key string, now time.Time) bool {
	w, err := s.lockouts.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read login failures", zap.Error(err))
		return false
	}
	if w == nil || w.LockedUntil == nil {
		return false
	}
	if now.Before(*w.LockedUntil) {
		return true
	}
	if err := s.lockouts.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to clear login failures", zap.Error(err))
	}
	return false
}

func (s *AuthService) noteFailure(ctx context.Context, key string, now time.Time) {
	if s.config.MaxFailedAttempts <= 0 {
		return
	}
	w, err := s.lockouts.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read login failures", zap.Error(err))
		return
	}
	if w == nil || now.Sub(w.FirstAt) > s.config.LockoutDuration {
		w = &models.LoginFailures{FirstAt: now.UTC()}
	}
	w.Count++
	ttl := s.config.LockoutDuration - now.Sub(w.FirstAt)
	if w.Count >= s.config.MaxFailedAttempts {
		until := now.Add(s.config.LockoutDuration).UTC()
		w.LockedUntil = &until
		ttl = s.config.LockoutDuration
		s.logger.Warn("login locked after repeated failures", zap.String("username", key), zap.Duration("for", s.config.LockoutDuration))
	}
	if err := s.lockouts.Put(ctx, key, w, ttl); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
}
