package config

import "time"

// Config holds runtime settings for the gophnotes client.
//
// Fields:
//   - DatabaseDSN: path of the local SQLite collection database.
//   - ScopeID: collection scope; remotes store one snapshot per scope.
//   - PreviewLength: rune count of the preview derived from content.
//   - SyncInterval: background sync period, zero disables it.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DatabaseDSN   string
	ScopeID       string
	PreviewLength int
	SyncInterval  time.Duration
	LogLevel      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "gophnotes.db"
	c.ScopeID = "default"
	c.PreviewLength = 80
	c.SyncInterval = 0
	c.LogLevel = "warn"
}

// LoadConfig applies defaults, then JSON (if present), then flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
