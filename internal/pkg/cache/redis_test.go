package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

func testConfig(mr *miniredis.Miniredis) *config.Config {
	return &config.Config{Redis: config.RedisConfig{Host: mr.Host(), Port: mr.Port()}}
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Open(context.Background(), testConfig(mr))
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, mr.Addr(), client.Options().Addr)
}

func TestConnect_GivesUp(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(mr)
	mr.Close()

	_, err := Connect(context.Background(), cfg, 2, 10*time.Millisecond, logger.NewWithWriter("test", io.Discard))
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestConnect_StopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(mr)
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, cfg, 5, time.Hour, logger.NewWithWriter("test", io.Discard))
	assert.ErrorIs(t, err, context.Canceled)
}
