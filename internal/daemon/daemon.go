// Package daemon ties the orchestrator, approval gate, healer, and
// webhook API into a single lifecycle with flock-based locking to
// prevent multiple instances from sharing one ledger.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"pressline/internal/config"
	"pressline/internal/healer"
	"pressline/internal/logging"
	"pressline/internal/orchestrator"
	"pressline/internal/store"
	"pressline/internal/webhook"
)

// Daemon coordinates the background services and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	orch   *orchestrator.Orchestrator
	healer *healer.Healer
	api    *webhook.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, orch *orchestrator.Orchestrator, h *healer.Healer, api *webhook.Server) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || orch == nil {
		return nil, errors.New("daemon requires config, store, logger, and orchestrator")
	}
	lockPath := strings.TrimSpace(cfg.Paths.LockFile)
	if lockPath == "" {
		lockPath = filepath.Join(cfg.Paths.LogDir, "presslined.lock")
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		orch:     orch,
		healer:   h,
		api:      api,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the API server and the
// maintenance loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another pressline daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.api != nil {
		if err := d.api.Start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}
	go d.maintenanceLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("pressline daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()))
	return nil
}

// maintenanceLoop reclaims stale runs and sweeps for data defects on a
// fixed cadence. Pipeline runs themselves are triggered over the API.
func (d *Daemon) maintenanceLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reclaimed, err := d.orch.ReclaimStaleRuns(ctx); err != nil {
				d.logger.Warn("stale run reclaim failed", logging.Error(err))
			} else if reclaimed > 0 {
				d.logger.Info("stale runs reclaimed", logging.Int("count", reclaimed))
			}
			if d.healer == nil {
				continue
			}
			report, err := d.healer.HealAll(ctx, d.cfg.Healer.ScanLimit)
			if err != nil {
				d.logger.Warn("healing sweep failed", logging.Error(err))
				continue
			}
			if len(report.Findings) > 0 {
				d.logger.Info("healing sweep finished",
					logging.Int("scanned", report.Scanned),
					logging.Int("findings", len(report.Findings)))
			}
		}
	}
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.Stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("pressline daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon lifecycle is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
