package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/models"
)

func newConnected(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0, 16, zap.NewNop())
	require.NoError(t, c.Startup(context.Background()))
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c, mr
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	c, _ := newConnected(t)

	entry := &models.CacheEntry{ID: "i1", Content: "hi", Model: "stub-1"}
	require.NoError(t, c.Set(ctx, "chat:v2:abc", entry, time.Hour))

	got, ok := c.Get(ctx, "chat:v2:abc")
	require.True(t, ok)
	require.Equal(t, entry, got)
}

func TestMissIsSilent(t *testing.T) {
	c, _ := newConnected(t)

	got, ok := c.Get(context.Background(), "chat:v2:missing")
	require.False(t, ok)
	require.Nil(t, got)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newConnected(t)

	entry := &models.CacheEntry{ID: "i1", Content: "hi", Model: "stub-1"}
	require.NoError(t, c.Set(ctx, "k", entry, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "k")
	require.False(t, ok)
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newConnected(t)

	require.NoError(t, mr.Set("k", "{not json"))

	_, ok := c.Get(ctx, "k")
	require.False(t, ok)
}

func TestStartupFallback(t *testing.T) {
	ctx := context.Background()

	// An address nothing listens on: Startup must degrade to the
	// in-process backend instead of failing.
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := New(addr, "", 0, 16, zap.NewNop())
	require.NoError(t, c.Startup(ctx))
	require.NotNil(t, c.fallback, "fallback should be engaged")

	// The cache keeps working end to end through the fallback.
	entry := &models.CacheEntry{ID: "i1", Content: "hi", Model: "stub-1"}
	require.NoError(t, c.Set(ctx, "k", entry, time.Hour))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, entry, got)

	require.NoError(t, c.Shutdown(ctx))
}
