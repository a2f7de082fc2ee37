package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records/pkg/config"
)

func TestNewRedisRequiresAddress(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{})
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, err := NewRedis(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Nil(t, client)
}
