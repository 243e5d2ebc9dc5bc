// Package storage combines the in-memory filter registry with periodic
// snapshots to provide durable bloom filter storage.
//
// Durability model: every filter lives in memory; a background loop dumps
// the full registry to an atomic snapshot file on a fixed interval and on
// shutdown. Keys set after the last snapshot are lost on crash.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yndnr/bloomgate-go/internal/core/domain"
	"github.com/yndnr/bloomgate-go/internal/registry"
	"github.com/yndnr/bloomgate-go/internal/storage/snapshot"
	"github.com/yndnr/bloomgate-go/internal/telemetry/metric"
)

// Default configuration values.
const (
	DefaultSnapshotInterval = 30 * time.Second
	DefaultSnapshotDir      = "snapshots"
)

// Config configures the storage engine.
type Config struct {
	// DataDir is the base directory for all storage files.
	DataDir string

	// Snapshot configuration. Dir defaults to DataDir/snapshots.
	Snapshot snapshot.Config

	// SnapshotInterval is the interval between automatic snapshots.
	SnapshotInterval time.Duration

	// Cipher optionally encrypts snapshot contents.
	Cipher snapshot.Cipher

	// NodeID identifies this node in snapshot headers.
	NodeID string

	// Logger is the structured logger.
	Logger *slog.Logger

	// Metrics is optional; when nil snapshot metrics are not recorded.
	Metrics *metric.Metrics
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:          dataDir,
		Snapshot:         snapshot.DefaultConfig(dataDir + "/" + DefaultSnapshotDir),
		SnapshotInterval: DefaultSnapshotInterval,
		Logger:           slog.Default(),
	}
}

// Engine owns the filter registry and its persistence.
type Engine struct {
	cfg Config

	registry *registry.Registry
	snapshot *snapshot.Manager

	logger  *slog.Logger
	metrics *metric.Metrics

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a storage engine around the given registry.
//
// This initializes persistence but does NOT load existing data; call
// Recover before serving traffic. The background snapshot loop starts
// immediately.
func New(reg *registry.Registry, cfg Config) (*Engine, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("storage: data_dir is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = cfg.DataDir + "/" + DefaultSnapshotDir
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = DefaultSnapshotInterval
	}

	cfg.Snapshot.Cipher = cfg.Cipher
	cfg.Snapshot.NodeID = cfg.NodeID

	snapMgr, err := snapshot.NewManager(cfg.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("storage: create snapshot manager: %w", err)
	}

	engine := &Engine{
		cfg:      cfg,
		registry: reg,
		snapshot: snapMgr,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go engine.backgroundLoop()

	return engine, nil
}

// Recover loads the newest valid snapshot into the registry.
//
// With no snapshot on disk this is a cold start with an empty registry.
// A directory where every snapshot is unreadable — corrupt, truncated, or
// undecryptable under the configured cipher — is treated the same way: the
// failure is logged and the server starts empty rather than refusing to
// boot.
func (e *Engine) Recover(ctx context.Context) error {
	start := time.Now()
	e.logger.Info("storage recovery started", "dir", e.cfg.Snapshot.Dir)

	states, info, err := e.snapshot.Load()
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshots) {
			e.logger.Warn("no usable snapshot found, starting empty", "detail", err.Error())
			if e.metrics != nil {
				e.metrics.FiltersActive.Set(0)
			}
			return nil
		}
		return domain.ErrCorruptSnapshot.WithCause(err)
	}

	restored := 0
	for _, st := range states {
		f, err := domain.RestoreFilter(st)
		if err != nil {
			e.logger.Warn("failed to restore filter from snapshot",
				"filter", st.Name,
				"error", err)
			continue
		}
		e.registry.Restore(f)
		restored++
	}

	if e.metrics != nil {
		e.metrics.FiltersActive.Set(float64(e.registry.Len()))
	}

	e.logger.Info("recovery completed",
		"snapshot", info.ID,
		"filters", restored,
		"elapsed", time.Since(start))
	return nil
}

// TriggerSnapshot dumps the registry to a new snapshot file and applies the
// retention policy. Filter locks are held only while copying each filter's
// state, never across disk I/O.
func (e *Engine) TriggerSnapshot(ctx context.Context) (*snapshot.Info, error) {
	start := time.Now()

	filters := e.registry.List()
	states := make([]domain.State, 0, len(filters))
	for _, f := range filters {
		st, err := f.State()
		if err != nil {
			return nil, fmt.Errorf("copy filter state %q: %w", f.Name(), err)
		}
		states = append(states, st)
	}

	info, err := e.snapshot.Create(states)
	if err != nil {
		if e.metrics != nil {
			e.metrics.SnapshotFailures.Inc()
		}
		return nil, domain.ErrSnapshotIO.WithCause(err)
	}

	if e.metrics != nil {
		e.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
		e.metrics.SnapshotSizeBytes.Set(float64(info.Size))
	}

	e.logger.Info("snapshot created",
		"id", info.ID,
		"filters", info.FilterCount,
		"size_bytes", info.Size,
		"elapsed", time.Since(start))

	if err := e.snapshot.Prune(); err != nil {
		e.logger.Warn("snapshot cleanup failed", "error", err)
	}

	return info, nil
}

// Snapshots lists snapshot files on disk, oldest first.
func (e *Engine) Snapshots() ([]*snapshot.Info, error) {
	return e.snapshot.List()
}

func (e *Engine) backgroundLoop() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := e.TriggerSnapshot(ctx); err != nil {
				e.logger.Error("auto snapshot failed", "error", err)
			}
			cancel()

		case <-e.stopCh:
			return
		}
	}
}

// Close stops the background loop and writes a final snapshot.
func (e *Engine) Close() error {
	e.logger.Info("shutting down storage engine")

	close(e.stopCh)
	<-e.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := e.TriggerSnapshot(ctx); err != nil {
		e.logger.Error("final snapshot failed", "error", err)
		return err
	}
	return nil
}
