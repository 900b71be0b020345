package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/cardsync/internal/flagx"
)

// ValueFlags lists every flag parseFlags understands. They all take a value.
var ValueFlags = []string{"-d", "-s", "-r", "-l", "-p", "-t", "-a", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-d string     local database path
//	-s string     storage driver (sqlite|bolt)
//	-r string     remote Postgres DSN (empty: local-only)
//	-l duration   local save debounce
//	-p duration   remote sync debounce
//	-t duration   remote sync timeout
//	-a string     debug HTTP listen address
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-r", "-l", "-p", "-t", "-a"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.StorageDriver, "s", cfg.StorageDriver, "storage driver (sqlite|bolt)")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote database DSN")
	fs.DurationVar(&cfg.LocalSaveDelay, "l", cfg.LocalSaveDelay, "local save debounce")
	fs.DurationVar(&cfg.RemoteSyncDelay, "p", cfg.RemoteSyncDelay, "remote sync debounce")
	fs.DurationVar(&cfg.SyncTimeout, "t", cfg.SyncTimeout, "remote sync timeout")
	fs.StringVar(&cfg.DebugAddr, "a", cfg.DebugAddr, "debug HTTP listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
