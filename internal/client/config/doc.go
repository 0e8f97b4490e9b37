// Package config loads runtime configuration for the gophnotes client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string   local database path
//	-s string   collection scope id
//	-i int      background sync interval (seconds, 0 disables)
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "database_dsn": "gophnotes.db",
//	  "scope_id": "default",
//	  "preview_length": 80,
//	  "sync_interval": "30s",
//	  "log_level": "info"
//	}
//
// Remote storage settings are not part of this file: remotes live in the
// local database and are managed from the REPL.
package config
