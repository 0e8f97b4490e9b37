package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	var cfg struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"3s","b":1000}`), &cfg))
	assert.Equal(t, 3*time.Second, cfg.A.Duration)
	assert.Equal(t, time.Microsecond, cfg.B.Duration)

	var bad Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))
}

func TestMonotonicClock_NeverRepeats(t *testing.T) {
	orig := nowFn
	t.Cleanup(func() { nowFn = orig })
	nowFn = func() int64 { return 100 }

	c := NewMonotonicClock(0)
	assert.Equal(t, int64(100), c.Now())
	assert.Equal(t, int64(101), c.Now())

	c.Observe(500)
	assert.Equal(t, int64(501), c.Now())

	c.Observe(10)
	assert.Equal(t, int64(502), c.Now())
}

func TestMonotonicClock_FloorFromPersistedState(t *testing.T) {
	orig := nowFn
	t.Cleanup(func() { nowFn = orig })
	nowFn = func() int64 { return 5 }

	c := NewMonotonicClock(40)
	assert.Equal(t, int64(41), c.Now())
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(10)
	assert.Equal(t, int64(10), c.Now())
	assert.Equal(t, int64(11), c.Now())
	c.Set(50)
	c.Step = 0
	assert.Equal(t, int64(50), c.Now())
	assert.Equal(t, int64(50), c.Now())
}
