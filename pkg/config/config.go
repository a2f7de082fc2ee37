package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Database  DatabaseConfig
	Log       LogConfig
	Auth      AuthConfig
	Captcha   CaptchaConfig
	Grades    GradesConfig
	Imports   ImportsConfig
	Exports   ExportsConfig
	Archives  ArchivesConfig
	Metrics   MetricsConfig
	Bootstrap BootstrapConfig
	Redis     RedisConfig
}

type DatabaseConfig struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// RedisConfig points at a shared Redis for login lockout state. An empty
// Addr keeps that state in the local store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig tunes hashing cost and the failed-login lockout.
type AuthConfig struct {
	BcryptCost        int
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// CaptchaConfig sizes the login challenge image.
type CaptchaConfig struct {
	Length int
	Width  int
	Height int
}

// GradesConfig bounds accepted scores and sets the pass mark used by statistics.
type GradesConfig struct {
	MinScore float64
	MaxScore float64
	PassMark float64
}

type ImportsConfig struct {
	MaxReportedErrors int
}

// ExportsConfig points PDF exports at a TrueType font. Han text needs a CJK
// font; the bundled Go fonts only cover Latin, Greek and Cyrillic.
type ExportsConfig struct {
	PDFFont string
}

// ArchivesConfig controls where student archive files are kept.
type ArchivesConfig struct {
	Enabled    bool
	StorageDir string
}

// MetricsConfig points at a node-exporter textfile; empty disables the dump.
type MetricsConfig struct {
	TextfilePath string
}

// BootstrapConfig holds the credentials of the admin created on first run.
type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Database = DatabaseConfig{
		Path:         v.GetString("DB_PATH"),
		BusyTimeout:  parseDuration(v.GetString("DB_BUSY_TIMEOUT"), 5*time.Second),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Auth = AuthConfig{
		BcryptCost:        v.GetInt("AUTH_BCRYPT_COST"),
		MaxFailedAttempts: v.GetInt("LOGIN_MAX_FAILED_ATTEMPTS"),
		LockoutDuration:   parseDuration(v.GetString("LOGIN_LOCKOUT_DURATION"), 5*time.Minute),
	}

	cfg.Captcha = CaptchaConfig{
		Length: v.GetInt("CAPTCHA_LENGTH"),
		Width:  v.GetInt("CAPTCHA_WIDTH"),
		Height: v.GetInt("CAPTCHA_HEIGHT"),
	}

	cfg.Grades = GradesConfig{
		MinScore: v.GetFloat64("GRADE_MIN_SCORE"),
		MaxScore: v.GetFloat64("GRADE_MAX_SCORE"),
		PassMark: v.GetFloat64("GRADE_PASS_MARK"),
	}

	cfg.Imports = ImportsConfig{MaxReportedErrors: v.GetInt("IMPORT_MAX_REPORTED_ERRORS")}

	cfg.Exports = ExportsConfig{PDFFont: v.GetString("EXPORT_PDF_FONT")}

	cfg.Archives = ArchivesConfig{
		Enabled:    v.GetBool("ENABLE_ARCHIVES"),
		StorageDir: v.GetString("ARCHIVES_STORAGE_DIR"),
	}

	cfg.Metrics = MetricsConfig{TextfilePath: v.GetString("METRICS_TEXTFILE")}

	cfg.Bootstrap = BootstrapConfig{
		AdminUsername: v.GetString("BOOTSTRAP_ADMIN_USERNAME"),
		AdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("REDIS_ADDR"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_PATH", "./campus.db")
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("AUTH_BCRYPT_COST", 10)
	v.SetDefault("LOGIN_MAX_FAILED_ATTEMPTS", 5)
	v.SetDefault("LOGIN_LOCKOUT_DURATION", "5m")

	v.SetDefault("CAPTCHA_LENGTH", 4)
	v.SetDefault("CAPTCHA_WIDTH", 150)
	v.SetDefault("CAPTCHA_HEIGHT", 60)

	v.SetDefault("GRADE_MIN_SCORE", 0)
	v.SetDefault("GRADE_MAX_SCORE", 150)
	v.SetDefault("GRADE_PASS_MARK", 60)

	v.SetDefault("IMPORT_MAX_REPORTED_ERRORS", 10)

	v.SetDefault("EXPORT_PDF_FONT", "")

	v.SetDefault("ENABLE_ARCHIVES", false)
	v.SetDefault("ARCHIVES_STORAGE_DIR", "./archives")

	v.SetDefault("METRICS_TEXTFILE", "")

	v.SetDefault("BOOTSTRAP_ADMIN_USERNAME", "admin")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "admin123")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
