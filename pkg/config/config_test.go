package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "./campus.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 5, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Auth.LockoutDuration)
	assert.Equal(t, CaptchaConfig{Length: 4, Width: 150, Height: 60}, cfg.Captcha)
	assert.Equal(t, GradesConfig{MinScore: 0, MaxScore: 150, PassMark: 60}, cfg.Grades)
	assert.Equal(t, "admin", cfg.Bootstrap.AdminUsername)
	assert.Equal(t, "admin123", cfg.Bootstrap.AdminPassword)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Exports.PDFFont)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_PATH", "/tmp/records.db")
	t.Setenv("LOGIN_LOCKOUT_DURATION", "90s")
	t.Setenv("GRADE_MAX_SCORE", "100")
	t.Setenv("ENABLE_ARCHIVES", "true")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("EXPORT_PDF_FONT", "/usr/share/fonts/NotoSansSC.ttf")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/records.db", cfg.Database.Path)
	assert.Equal(t, 90*time.Second, cfg.Auth.LockoutDuration)
	assert.Equal(t, float64(100), cfg.Grades.MaxScore)
	assert.True(t, cfg.Archives.Enabled)
	assert.Equal(t, RedisConfig{Addr: "cache:6379", DB: 2}, cfg.Redis)
	assert.Equal(t, "/usr/share/fonts/NotoSansSC.ttf", cfg.Exports.PDFFont)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}
