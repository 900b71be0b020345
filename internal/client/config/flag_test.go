package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-d", "x.db", "-s", "bolt", "-r", "postgres://h/db", "-l", "1s", "-p", "10s", "-t", "4s", "-a", ":9000", "serve"},
			expected: &Config{
				DatabasePath: "x.db", StorageDriver: "bolt", RemoteDSN: "postgres://h/db",
				LocalSaveDelay: time.Second, RemoteSyncDelay: 10 * time.Second, SyncTimeout: 4 * time.Second,
				DebugAddr: ":9000",
			},
		},
		{name: "incorrect duration", args: []string{"cmd", "-l", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Equal(t, tt.expected, config)
		})
	}
}
