package drivers

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfig struct {
	Dir  string `json:"dir" validate:"required"`
	Size int    `json:"size" validate:"gte=0"`
}

type stubDriver struct {
	cfg stubConfig
}

func (d *stubDriver) Configure(cfg map[string]any, _ Options) error {
	return DecodeConfig(cfg, &d.cfg)
}
func (d *stubDriver) Init(context.Context, string) (State, error) { return State{}, nil }
func (d *stubDriver) Push(context.Context, string) (int64, error) { return 0, nil }
func (d *stubDriver) Pull(context.Context) (Pulled, error)        { return Pulled{}, nil }
func (d *stubDriver) Close() error                                { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func() Driver { return &stubDriver{} })
	r.Register("another", func() Driver { return &stubDriver{} })

	assert.Equal(t, []string{"another", "stub"}, r.Types())

	d, err := r.New("stub")
	require.NoError(t, err)
	assert.IsType(t, &stubDriver{}, d)

	_, err = r.New("nope")
	assert.True(t, errors.Is(err, common.ErrUnknownDriver))

	assert.NoError(t, r.Validate("stub", map[string]any{"dir": "/x"}))
	assert.Error(t, r.Validate("stub", map[string]any{}))
	assert.Error(t, r.Validate("stub", map[string]any{"dir": "/x", "size": -1}))
}

func TestDecodeEncodeConfig(t *testing.T) {
	var c stubConfig
	require.NoError(t, DecodeConfig(map[string]any{"dir": "d", "size": 3}, &c))
	assert.Equal(t, stubConfig{Dir: "d", Size: 3}, c)

	m := EncodeConfig(c)
	assert.Equal(t, "d", m["dir"])
	assert.EqualValues(t, 3, m["size"])

	assert.Error(t, DecodeConfig(map[string]any{"dir": 5}, &c))
}

func TestNextClock(t *testing.T) {
	far := int64(1) << 60
	assert.Equal(t, far+1, NextClock(far))
	assert.Greater(t, NextClock(0), int64(0))
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("push", errors.New("connection refused"))
	assert.True(t, errors.Is(err, common.ErrDriverUnavailable))
	assert.Contains(t, err.Error(), "connection refused")
}
