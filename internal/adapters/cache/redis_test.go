package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	r, err := NewRedis(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		mr.Close()
	})
	return r, mr
}

func TestRedis_GetSetTTL(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	_, ok, err := r.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "k", []byte("v"), 30*time.Second))
	v, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	mr.FastForward(31 * time.Second)
	_, ok, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_DeletePrefix(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		require.NoError(t, r.Set(ctx, fmt.Sprintf("t:1:order:%d:detail", i), []byte("x"), time.Minute))
	}
	require.NoError(t, r.Set(ctx, "t:2:order:1:detail", []byte("y"), time.Minute))

	require.NoError(t, r.DeletePrefix(ctx, "t:1:"))
	assert.Equal(t, []string{"t:2:order:1:detail"}, mr.Keys())
}
