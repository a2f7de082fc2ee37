package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-records/internal/models"
)

const lockoutKeyPrefix = "campus:login-failures:"

// LockoutCache keeps failed-login windows in Redis so several hosts sharing
// one store see the same lockouts.
type LockoutCache struct {
	client *redis.Client
}

// NewLockoutCache constructs the cache.
func NewLockoutCache(client *redis.Client) *LockoutCache {
	return &LockoutCache{client: client}
}

// Get returns the window for username, or nil when there is none.
func (c *LockoutCache) Get(ctx context.Context, username string) (*models.LoginFailures, error) {
	raw, err := c.client.Get(ctx, lockoutKeyPrefix+username).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get login failures: %w", err)
	}
	var f models.LoginFailures
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal login failures: %w", err)
	}
	return &f, nil
}

// Put stores the window; Redis drops it after ttl.
func (c *LockoutCache) Put(ctx context.Context, username string, f *models.LoginFailures, ttl time.Duration) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal login failures: %w", err)
	}
	if err := c.client.Set(ctx, lockoutKeyPrefix+username, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set login failures: %w", err)
	}
	return nil
}

// Delete forgets the window for username.
func (c *LockoutCache) Delete(ctx context.Context, username string) error {
	if err := c.client.Del(ctx, lockoutKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("redis delete login failures: %w", err)
	}
	return nil
}
