package config

import (
	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name declared in Config's env tags.
const EnvPrefix = "CARDSYNC_"

// parseEnv overlays Config with CARDSYNC_* environment variables. Unset
// variables leave the current value alone. It panics on malformed values,
// matching the other loaders.
func parseEnv(cfg *Config) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
