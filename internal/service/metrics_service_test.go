package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records/internal/models"
)

func TestMetricsServiceCounts(t *testing.T) {
	m := NewMetricsService()
	m.ObserveLogin(LoginOutcomeSuccess)
	m.ObserveLogin(LoginOutcomeBadChallenge)
	m.ObserveLogin(LoginOutcomeBadChallenge)
	m.ObserveMutation(models.ActionAddGrade)
	m.ObserveImport(importEntityStudents, 2, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginOutcomeBadChallenge)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues(string(models.ActionAddGrade))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importRows.WithLabelValues(importEntityStudents, "failure")))

	path := filepath.Join(t.TempDir(), "campus.prom")
	require.NoError(t, m.WriteTextfile(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "campus_login_attempts_total")
}

func TestMetricsServiceNilIsNoop(t *testing.T) {
	var m *MetricsService
	m.ObserveLogin(LoginOutcomeSuccess)
	m.ObserveMutation(models.ActionAddGrade)
	m.ObserveImport(importEntityTeachers, 1, 0)
	assert.NoError(t, m.WriteTextfile("ignored"))
	assert.Nil(t, m.Registry())
}
