package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/campus-records/internal/models"
)

// LockoutStore holds failed-login windows keyed by lower-cased username. Get
// returns nil when no window exists.
type LockoutStore interface {
	Get(ctx context.Context, username string) (*models.LoginFailures, error)
	Put(ctx context.Context, username string, f *models.LoginFailures, ttl time.Duration) error
	Delete(ctx context.Context, username string) error
}

type memoryLockouts struct {
	mu      sync.Mutex
	windows map[string]models.LoginFailures
}

// NewMemoryLockouts returns a process-local LockoutStore.
func NewMemoryLockouts() LockoutStore {
	return &memoryLockouts{windows: make(map[string]models.LoginFailures)}
}

func (m *memoryLockouts) Get(_ context.Context, username string) (*models.LoginFailures, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.windows[username]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *memoryLockouts) Put(_ context.Context, username string, f *models.LoginFailures, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[username] = *f
	return nil
}

func (m *memoryLockouts) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, username)
	return nil
}
