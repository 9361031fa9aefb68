package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimit(t *testing.T) {
	l := New(Config{Limit: 2, Window: time.Minute})
	ctx := context.Background()

	d, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, d.Allowed)
}

func TestMemoryWindowResets(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{Limit: 1, Window: time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, _ := l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, now.Add(time.Minute), d.ResetAt)
	d, _ = l.Allow(ctx, "k")
	assert.False(t, d.Allowed)

	now = now.Add(61 * time.Second)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
}

func TestRedisFailureFallsBackToMemory(t *testing.T) {
	client, err := NewRedisClient("redis://127.0.0.1:1/0", "")
	require.NoError(t, err)
	defer client.Close()

	l := New(Config{Limit: 1, Window: time.Minute, Redis: client})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisFailureFailsClosed(t *testing.T) {
	client, err := NewRedisClient("redis://127.0.0.1:1/0", "secret")
	require.NoError(t, err)
	defer client.Close()

	l := New(Config{Limit: 1, Window: time.Minute, Redis: client, FailClosed: true})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = l.Allow(ctx, "k")
	assert.Error(t, err)
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient("", "")
	assert.Error(t, err)
	_, err = NewRedisClient("http://example.com", "")
	assert.Error(t, err)
}
