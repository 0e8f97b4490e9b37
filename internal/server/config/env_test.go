package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnvFile(t *testing.T, content string) {
	t.Helper()
	orig := envFile
	t.Cleanup(func() { envFile = orig })
	envFile = filepath.Join(t.TempDir(), ".env")
	if content != "" {
		require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	}
}

func TestParseEnv(t *testing.T) {
	withEnvFile(t, "")
	t.Setenv("GOPHNOTES_GRPC_ADDR", "0.0.0.0:7000")
	t.Setenv("GOPHNOTES_SECRET_KEY", "from-env-secret")
	t.Setenv("GOPHNOTES_ACCESS_TOKEN_TTL", "90s")
	t.Setenv("GOPHNOTES_MAX_SNAPSHOT_BYTES", "2048")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "0.0.0.0:7000", c.EndpointAddrGRPC)
	assert.Equal(t, "from-env-secret", c.SecretKey)
	assert.Equal(t, 90*time.Second, c.AccessTokenValidityDuration)
	assert.Equal(t, 2048, c.MaxSnapshotBytes)
	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	withEnvFile(t, "GOPHNOTES_HTTP_ADDR=127.0.0.1:9999\nGOPHNOTES_DATABASE_DSN=from-file\n")
	t.Setenv("GOPHNOTES_DATABASE_DSN", "from-process")
	// godotenv.Load sets variables in the process; make sure they are undone.
	t.Setenv("GOPHNOTES_HTTP_ADDR", "")
	require.NoError(t, os.Unsetenv("GOPHNOTES_HTTP_ADDR"))

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "127.0.0.1:9999", c.EndpointAddrHTTP)
	assert.Equal(t, "from-process", c.DatabaseDSN, "process environment wins over .env")
}

func TestParseEnv_BadValuesPanic(t *testing.T) {
	withEnvFile(t, "")
	t.Setenv("GOPHNOTES_ACCESS_TOKEN_TTL", "forever")
	assert.Panics(t, func() { parseEnv(&Config{}) })
}
