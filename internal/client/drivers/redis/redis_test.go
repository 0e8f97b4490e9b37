package redis

import (
	"context"
	"os"
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysFor(t *testing.T) {
	k := keysFor("", "s1")
	assert.Equal(t, "gophnotes:s1:content", k.content)
	assert.Equal(t, "gophnotes:s1:clock", k.clock)

	k = keysFor("team", "s1")
	assert.Equal(t, "team:s1:content", k.content)
}

func TestConfigure(t *testing.T) {
	d := New()
	assert.Error(t, d.Configure(map[string]any{}, drivers.Options{}))
	assert.Error(t, d.Configure(map[string]any{"url": "http://localhost:6379"}, drivers.Options{}))
	assert.NoError(t, d.Configure(map[string]any{"url": "redis://localhost:6379/0", "prefix": "x"}, drivers.Options{}))
}

func TestNotInitialized(t *testing.T) {
	d := New()
	_, err := d.Push(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrDriverUnavailable)
	_, err = d.Pull(context.Background())
	assert.ErrorIs(t, err, common.ErrDriverUnavailable)
	assert.NoError(t, d.Close())
}

func TestInit_Unreachable(t *testing.T) {
	d := New()
	require.NoError(t, d.Configure(map[string]any{"url": "redis://127.0.0.1:1/0"}, drivers.Options{}))
	_, err := d.Init(context.Background(), "scope")
	assert.ErrorIs(t, err, common.ErrDriverUnavailable)
}

func TestLive_PushPull(t *testing.T) {
	addr := os.Getenv("GOPHNOTES_REDIS_ADDR")
	if addr == "" {
		t.Skip("GOPHNOTES_REDIS_ADDR not set")
	}
	ctx := context.Background()
	cfg := map[string]any{"url": "redis://" + addr + "/0", "prefix": "test-" + uuid.NewString()}

	d := New()
	require.NoError(t, d.Configure(cfg, drivers.Options{}))
	st, err := d.Init(ctx, "scope")
	require.NoError(t, err)
	defer d.Close()
	assert.Zero(t, st.LastRemoteChange)

	p, err := d.Pull(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.Content)

	c1, err := d.Push(ctx, "one")
	require.NoError(t, err)
	c2, err := d.Push(ctx, "two")
	require.NoError(t, err)
	assert.Greater(t, c2, c1)

	p, err = d.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", p.Content)
	assert.Equal(t, c2, p.LastRemoteChange)
}
