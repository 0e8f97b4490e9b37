package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded before the environment is read. Variables already set
// in the process environment win over the file.
var envFile = ".env"

// parseEnv overlays GOPHNOTES_* environment variables.
//
//	GOPHNOTES_GRPC_ADDR           gRPC bind address
//	GOPHNOTES_HTTP_ADDR           health/metrics bind address
//	GOPHNOTES_DATABASE_DSN        PostgreSQL DSN
//	GOPHNOTES_SECRET_KEY          JWT secret
//	GOPHNOTES_ACCESS_TOKEN_TTL    access token lifetime ("15m")
//	GOPHNOTES_MAX_SNAPSHOT_BYTES  snapshot size limit
func parseEnv(config *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, "GOPHNOTES_GRPC_ADDR")
	setString(&config.EndpointAddrHTTP, "GOPHNOTES_HTTP_ADDR")
	setString(&config.DatabaseDSN, "GOPHNOTES_DATABASE_DSN")
	setString(&config.SecretKey, "GOPHNOTES_SECRET_KEY")

	if v, ok := os.LookupEnv("GOPHNOTES_ACCESS_TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.AccessTokenValidityDuration = d
	}
	if v, ok := os.LookupEnv("GOPHNOTES_MAX_SNAPSHOT_BYTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.MaxSnapshotBytes = n
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
