package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("loads from json", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{
			"database_dsn":  "notes.db",
			"scope_id":      "home",
			"sync_interval": "30s",
		})
		os.Args = []string{"testbin", "-config", path}

		var c Config
		c.LoadDefaults()
		parseJson(&c)

		assert.Equal(t, "notes.db", c.DatabaseDSN)
		assert.Equal(t, "home", c.ScopeID)
		assert.Equal(t, 30*time.Second, c.SyncInterval)
		assert.Equal(t, 80, c.PreviewLength, "unset fields keep defaults")
		assert.Equal(t, "warn", c.LogLevel)
	})

	t.Run("flags override json", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"scope_id": "home", "log_level": "info"})
		os.Args = []string{"testbin", "-c", path, "-s", "work"}

		cfg := LoadConfig()
		assert.Equal(t, "work", cfg.ScopeID)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("bad json panics", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", path}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
