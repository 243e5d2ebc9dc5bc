// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultListenAddr = "127.0.0.1:4989"
	DefaultHTTPAddr   = "127.0.0.1:5080"

	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute
	DefaultMaxLineLen   = 64 * 1024

	DefaultDataDir          = "/var/lib/bloomgate/data"
	DefaultSnapshotInterval = 30 * time.Second
	DefaultSnapshotKeep     = 5

	DefaultFilterCapacity = 10000
	DefaultFilterFPP      = 0.01

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Listen: DefaultListenAddr,
			HTTP: HTTPConfig{
				Enabled: true,
				Addr:    DefaultHTTPAddr,
			},
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			MaxLineLen:   DefaultMaxLineLen,
		},
		Storage: StorageSection{
			DataDir:          DefaultDataDir,
			SnapshotInterval: DefaultSnapshotInterval,
			SnapshotKeep:     DefaultSnapshotKeep,
		},
		Filter: FilterSection{
			DefaultCapacity: DefaultFilterCapacity,
			DefaultFPP:      DefaultFilterFPP,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
