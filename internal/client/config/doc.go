// Package config loads runtime configuration for the cardsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. CARDSYNC_* environment variables.
//  4. Command-line flags, which override everything else.
//
// # JSON schema
//
//	{
//	  "database_path": "cards.db",
//	  "storage_driver": "sqlite",
//	  "remote_dsn": "postgres://cards@localhost/cards",
//	  "local_save_delay": "5s",
//	  "remote_sync_delay": "30s",
//	  "sync_timeout": "12s",
//	  "retry_interval": "2m"
//	}
package config
