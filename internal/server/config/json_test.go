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

	t.Run("overlays set fields", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{
			"endpoint_addr_grpc":             "www.example:9000",
			"database_dsn":                   "notes.db",
			"access_token_validity_duration": "5m",
		})
		os.Args = []string{"testbin", "-config", path}

		var c Config
		c.LoadDefaults()
		parseJson(&c)

		assert.Equal(t, "www.example:9000", c.EndpointAddrGRPC)
		assert.Equal(t, "notes.db", c.DatabaseDSN)
		assert.Equal(t, 5*time.Minute, c.AccessTokenValidityDuration)
		assert.Equal(t, ":8080", c.EndpointAddrHTTP, "unset fields keep their value")
		assert.Equal(t, "secretKey", c.SecretKey)
	})

	t.Run("no file is a no-op", func(t *testing.T) {
		os.Args = []string{"testbin"}
		var c Config
		parseJson(&c)
		assert.Equal(t, Config{}, c)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("bad json panics", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", path}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
