package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "mapping:naver:n-1", "some-uuid", 0))

	value, ok, err := c.Get(ctx, "mapping:naver:n-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "some-uuid", value)
}

func TestMemory_MissingKey(t *testing.T) {
	_, ok, err := NewMemory().Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_Overwrite(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "k", "v1", 0))
	require.NoError(t, c.Set(ctx, "k", "v2", 0))

	value, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v2", value)
}
