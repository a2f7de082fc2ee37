package cli

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records/internal/repository"
	"github.com/noah-isme/campus-records/internal/service"
	"github.com/noah-isme/campus-records/pkg/cache"
	"github.com/noah-isme/campus-records/pkg/captcha"
	"github.com/noah-isme/campus-records/pkg/config"
	"github.com/noah-isme/campus-records/pkg/credential"
	"github.com/noah-isme/campus-records/pkg/database"
	"github.com/noah-isme/campus-records/pkg/storage"
)

// ChallengeGenerator produces a challenge answer and its PNG rendering.
type ChallengeGenerator interface {
	Generate() (string, []byte, error)
}

// App is the wired set of services one command runs against.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Store   *repository.Store
	Metrics *service.MetricsService
	Redis   *redis.Client

	Auth       *service.AuthService
	Students   *service.StudentService
	Teachers   *service.TeacherService
	Courses    *service.CourseService
	Grades     *service.GradeService
	Accounts   *service.AccountService
	Imports    *service.ImportService
	ActionLogs *service.ActionLogService
	Exports    *service.ExportService
}

// AppFactory opens an App for a command.
type AppFactory func(ctx context.Context) (*App, error)

// NewApp opens the store, brings the schema up to date, ensures an
// administrator exists and wires the services. A nil challenges uses the
// configured image generator.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, challenges ChallengeGenerator) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var archives *storage.LocalStorage
	if cfg.Archives.Enabled {
		archives, err = storage.NewLocalStorage(cfg.Archives.StorageDir)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if challenges == nil {
		challenges = captcha.NewGenerator(cfg.Captcha.Length, cfg.Captcha.Width, cfg.Captcha.Height)
	}

	store := repository.NewStore(db)
	codec := credential.NewCodec(cfg.Auth.BcryptCost)
	validate := validator.New()
	metrics := service.NewMetricsService()

	app := &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Store:   store,
		Metrics: metrics,
	}
	var lockouts service.LockoutStore = store.LoginFailures
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.Redis = client
		lockouts = repository.NewLockoutCache(client)
	}
	app.Auth = service.NewAuthService(service.AuthServiceParams{
		Users:      store.Users,
		Teachers:   store.Teachers,
		Logs:       store.ActionLogs,
		Challenges: challenges,
		Verifier:   codec,
		Validator:  validate,
		Logger:     logger.Named("auth"),
		Metrics:    metrics,
		Lockouts:   lockouts,
		Config: service.AuthConfig{
			MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
			LockoutDuration:   cfg.Auth.LockoutDuration,
		},
	})
	studentParams := service.StudentServiceParams{
		Store:     store,
		Hasher:    codec,
		Validator: validate,
		Logger:    logger.Named("students"),
		Metrics:   metrics,
	}
	if archives != nil {
		studentParams.Archives = archives
	}
	app.Students = service.NewStudentService(studentParams)
	app.Teachers = service.NewTeacherService(store, codec, validate, logger.Named("teachers"), metrics)
	app.Courses = service.NewCourseService(store, validate, logger.Named("courses"), metrics)
	app.Grades = service.NewGradeService(store, service.GradeConfig{
		MinScore: cfg.Grades.MinScore,
		MaxScore: cfg.Grades.MaxScore,
		PassMark: cfg.Grades.PassMark,
	}, logger.Named("grades"), metrics)
	app.Accounts = service.NewAccountService(store, codec, service.BootstrapConfig{
		AdminUsername: cfg.Bootstrap.AdminUsername,
		AdminPassword: cfg.Bootstrap.AdminPassword,
	}, validate, logger.Named("accounts"), metrics)
	app.Imports = service.NewImportService(store, codec, validate, logger.Named("imports"), metrics)
	app.ActionLogs = service.NewActionLogService(store.ActionLogs, logger.Named("logs"))
	app.Exports = service.NewExportService(service.ExportServiceParams{
		Students:   app.Students,
		Teachers:   app.Teachers,
		Courses:    app.Courses,
		Grades:     app.Grades,
		ActionLogs: app.ActionLogs,
		PDFFont:    cfg.Exports.PDFFont,
		Logger:     logger.Named("exports"),
	})

	if _, err := app.Accounts.EnsureBootstrapAdmin(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// Close dumps metrics when configured and releases the connections.
func (a *App) Close() error {
	if err := a.Metrics.WriteTextfile(a.Config.Metrics.TextfilePath); err != nil {
		a.Logger.Warn("failed to write metrics", zap.Error(err))
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	return a.DB.Close()
}
