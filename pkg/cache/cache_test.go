package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopCache(t *testing.T) {
	var c NoopCache
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var out map[string]int
	hit, err := c.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, out)

	assert.NoError(t, c.DeletePrefix(ctx, "k"))
	assert.NoError(t, c.Close())
}

func TestNewRedisCacheRequiresAddress(t *testing.T) {
	_, err := NewRedisCache(context.Background(), Config{}, logrus.New())
	assert.Error(t, err)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	_, err := NewRedisCache(context.Background(), Config{Addr: "127.0.0.1:1"}, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
