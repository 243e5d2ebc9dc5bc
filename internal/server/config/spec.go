// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for bloomgate-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Filter   FilterSection   `koanf:"filter"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	// Listen is the TCP address for the text protocol.
	Listen string `koanf:"listen"`

	// HTTP configures the admin HTTP server.
	HTTP HTTPConfig `koanf:"http"`

	// ReadTimeout bounds reading one command line.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds writing one response line.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// IdleTimeout closes connections with no traffic.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// MaxLineLen caps a command line in bytes.
	MaxLineLen int `koanf:"max_line_len"`

	// RateLimit is commands per second per client IP (0 disables).
	RateLimit int `koanf:"rate_limit"`
}

// HTTPConfig configures the admin HTTP server.
type HTTPConfig struct {
	// Enabled turns the admin endpoint on.
	Enabled bool `koanf:"enabled"`

	// Addr is the HTTP listen address.
	Addr string `koanf:"addr"`
}

// StorageSection configures persistence behavior.
type StorageSection struct {
	// DataDir is the base directory for snapshot files.
	DataDir string `koanf:"data_dir"`

	// SnapshotInterval is the time between automatic snapshots.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`

	// SnapshotKeep is how many snapshot files to retain.
	SnapshotKeep int `koanf:"snapshot_keep"`
}

// FilterSection configures defaults applied when create omits arguments.
type FilterSection struct {
	// DefaultCapacity is the expected element count for new filters.
	DefaultCapacity uint64 `koanf:"default_capacity"`

	// DefaultFPP is the target false positive probability.
	DefaultFPP float64 `koanf:"default_fpp"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// EncryptionPassphrase enables snapshot encryption when non-empty.
	EncryptionPassphrase string `koanf:"encryption_passphrase"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
