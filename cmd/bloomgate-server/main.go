// Package main provides the entry point for bloomgate-server.
//
// bloomgate-server is a network-addressable store of named bloom filters:
// clients create filters, add keys, and run membership checks over a
// line-based text protocol, while the server persists everything through
// periodic atomic snapshots.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/bloomgate-go/internal/infra/buildinfo"
	"github.com/yndnr/bloomgate-go/internal/infra/confloader"
	"github.com/yndnr/bloomgate-go/internal/infra/shutdown"
	"github.com/yndnr/bloomgate-go/internal/registry"
	"github.com/yndnr/bloomgate-go/internal/server/config"
	"github.com/yndnr/bloomgate-go/internal/server/httpserver"
	"github.com/yndnr/bloomgate-go/internal/server/lineserver"
	"github.com/yndnr/bloomgate-go/internal/storage"
	"github.com/yndnr/bloomgate-go/internal/storage/snapshot"
	"github.com/yndnr/bloomgate-go/internal/telemetry/logger"
	"github.com/yndnr/bloomgate-go/internal/telemetry/metric"
)

func main() {
	app := &cli.App{
		Name:    "bloomgate-server",
		Usage:   "named bloom filter server",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to configuration file (YAML)",
				EnvVars: []string{"BLOOMGATE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "text protocol listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "admin HTTP listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "snapshot data directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn, error (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)

	log.Info("starting bloomgate-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"listen", cfg.Server.Listen)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	metrics := metric.New()
	reg := registry.New()

	engine, err := initStorage(cfg, reg, log, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	if err := engine.Recover(context.Background()); err != nil {
		return fmt.Errorf("storage recovery: %w", err)
	}

	handler := lineserver.NewHandler(reg, cfg.Server.RateLimit, log, metrics)
	handler.SetDefaults(cfg.Filter.DefaultCapacity, cfg.Filter.DefaultFPP)

	protoServer := lineserver.New(lineserver.Config{
		Address:      cfg.Server.Listen,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		MaxLineLen:   cfg.Server.MaxLineLen,
		RateLimit:    cfg.Server.RateLimit,
	}, handler, log, metrics)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	if err := protoServer.Start(context.Background()); err != nil {
		return fmt.Errorf("start protocol server: %w", err)
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down storage engine")
		return engine.Close()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down protocol server")
		return protoServer.Shutdown(ctx)
	})

	if cfg.Server.HTTP.Enabled {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Registry: reg,
			Engine:   engine,
			Metrics:  metrics,
			Logger:   log,
		})
		httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)

		go func() {
			log.Info("admin HTTP server listening", "addr", cfg.Server.HTTP.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("admin HTTP server error", "error", err)
			}
		}()

		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down admin HTTP server")
			return httpServer.Shutdown(ctx)
		})
	}

	if path := c.String("config"); path != "" {
		if err := watchLogLevel(path, log); err != nil {
			log.Warn("config watcher unavailable", "error", err)
		}
	}

	log.Info("server started")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig merges defaults, the optional config file, environment
// variables, and CLI flag overrides, then validates the result.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	// Flags win over every other source.
	overrides := map[string]any{}
	if v := c.String("listen"); v != "" {
		overrides["server.listen"] = v
	}
	if v := c.String("http-addr"); v != "" {
		overrides["server.http.addr"] = v
	}
	if v := c.String("data-dir"); v != "" {
		overrides["storage.data_dir"] = v
	}
	if v := c.String("log-level"); v != "" {
		overrides["log.level"] = v
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initStorage(cfg *config.ServerConfig, reg *registry.Registry, log *slog.Logger, metrics *metric.Metrics) (*storage.Engine, error) {
	storageCfg := storage.DefaultConfig(cfg.Storage.DataDir)
	storageCfg.Logger = log
	storageCfg.Metrics = metrics
	storageCfg.SnapshotInterval = cfg.Storage.SnapshotInterval
	storageCfg.Snapshot.RetentionCount = cfg.Storage.SnapshotKeep
	storageCfg.NodeID = newNodeID()

	if pass := cfg.Security.EncryptionPassphrase; pass != "" {
		key, err := snapshot.KeyFromPassphrase(pass)
		if err != nil {
			return nil, err
		}
		cipher, err := snapshot.NewCipher(key)
		if err != nil {
			return nil, err
		}
		storageCfg.Cipher = cipher
	}

	return storage.New(reg, storageCfg)
}

// newNodeID generates a fresh node identifier for snapshot headers.
func newNodeID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return "node-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// watchLogLevel reloads log.level from the config file on change.
func watchLogLevel(path string, log *slog.Logger) error {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := watcher.Watch(path); err != nil {
		return err
	}

	watcher.OnChange(func(changed string) {
		l := confloader.NewLoader(confloader.WithConfigFile(path))
		cfg := config.Default()
		if err := l.Load(cfg); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			log.Info("log level changed", "from", logger.GetLevel(), "to", cfg.Log.Level)
			logger.SetLevel(cfg.Log.Level)
		}
	})

	watcher.StartAsync()
	return nil
}
