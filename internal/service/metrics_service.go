package service

import (
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/campus-records/internal/models"
)

// Login outcomes recorded by the auth gate.
const (
	LoginOutcomeSuccess        = "success"
	LoginOutcomeBadChallenge   = "bad_challenge"
	LoginOutcomeBadCredentials = "bad_credentials"
	LoginOutcomeFrozen         = "frozen"
	LoginOutcomeLockedOut      = "locked_out"
	LoginOutcomeInvalid        = "invalid"
)

// MetricsService holds the process's Prometheus collectors. There is no
// listener; the registry is dumped to a node-exporter textfile on exit.
type MetricsService struct {
	registry      *prometheus.Registry
	loginAttempts *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	importRows    *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	loginAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_record_mutations_total",
		Help: "Committed record mutations by audit action",
	}, []string{"action"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_import_rows_total",
		Help: "Batch import rows by entity and result",
	}, []string{"entity", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "campus_goroutines",
		Help: "Number of goroutines at dump time",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(loginAttempts, mutations, importRows, goroutines)

	return &MetricsService{
		registry:      registry,
		loginAttempts: loginAttempts,
		mutations:     mutations,
		importRows:    importRows,
	}
}

// Registry exposes the underlying registry for gathering.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveLogin counts a login attempt.
func (m *MetricsService) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveMutation counts a committed mutation.
func (m *MetricsService) ObserveMutation(action models.ActionType) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(action)).Inc()
}

// ObserveImport counts imported and rejected rows for an entity.
func (m *MetricsService) ObserveImport(entity string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(entity, "success").Add(float64(succeeded))
	m.importRows.WithLabelValues(entity, "failure").Add(float64(failed))
}

// WriteTextfile writes the current values in the text exposition format.
func (m *MetricsService) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
