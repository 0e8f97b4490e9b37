package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophnotes/internal/flagx"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Intervals accept "30s" or
// integer nanoseconds.
type JsonConfig struct {
	DatabaseDSN   string         `json:"database_dsn"`
	ScopeID       string         `json:"scope_id"`
	PreviewLength int            `json:"preview_length"`
	SyncInterval  timex.Duration `json:"sync_interval"`
	LogLevel      string         `json:"log_level"`
}

// parseJson overlays cfg with the fields set in the file named by -c or
// -config. Read and unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.ScopeID != "" {
		cfg.ScopeID = jc.ScopeID
	}
	if jc.PreviewLength > 0 {
		cfg.PreviewLength = jc.PreviewLength
	}
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
