// Package config defines the server configuration structure.
package config

import (
	"errors"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return verifyFilter(&cfg.Filter)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Listen == "" {
		return errors.New("server.listen is required")
	}
	if cfg.HTTP.Enabled && cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required when the admin endpoint is enabled")
	}
	if cfg.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	// Check if data directory exists or can be created
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}

	if cfg.SnapshotKeep < 1 {
		return errors.New("storage.snapshot_keep must be at least 1")
	}
	if cfg.SnapshotInterval <= 0 {
		return errors.New("storage.snapshot_interval must be positive")
	}

	return nil
}

func verifyFilter(cfg *FilterSection) error {
	if cfg.DefaultCapacity == 0 {
		return errors.New("filter.default_capacity must be at least 1")
	}
	if cfg.DefaultFPP <= 0 || cfg.DefaultFPP >= 1 {
		return errors.New("filter.default_fpp must be in (0, 1)")
	}
	return nil
}
