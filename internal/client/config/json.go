package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/cardsync/internal/flagx"
	"github.com/dmitrijs2005/cardsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// distinguish "absent" from "zero" so a partial file only overrides what it
// names.
type JsonConfig struct {
	DatabasePath    *string         `json:"database_path"`
	StorageDriver   *string         `json:"storage_driver"`
	RemoteDSN       *string         `json:"remote_dsn"`
	JWTSecret       *string         `json:"jwt_secret"`
	LocalSaveDelay  *timex.Duration `json:"local_save_delay"`
	RemoteSyncDelay *timex.Duration `json:"remote_sync_delay"`
	SyncTimeout     *timex.Duration `json:"sync_timeout"`
	RetryInterval   *timex.Duration `json:"retry_interval"`
	DebugAddr       *string         `json:"debug_addr"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.StorageDriver, jc.StorageDriver)
	setString(&cfg.RemoteDSN, jc.RemoteDSN)
	setString(&cfg.JWTSecret, jc.JWTSecret)
	setString(&cfg.DebugAddr, jc.DebugAddr)
	if jc.LocalSaveDelay != nil {
		cfg.LocalSaveDelay = jc.LocalSaveDelay.Duration
	}
	if jc.RemoteSyncDelay != nil {
		cfg.RemoteSyncDelay = jc.RemoteSyncDelay.Duration
	}
	if jc.SyncTimeout != nil {
		cfg.SyncTimeout = jc.SyncTimeout.Duration
	}
	if jc.RetryInterval != nil {
		cfg.RetryInterval = jc.RetryInterval.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
