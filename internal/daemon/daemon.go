package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipforge/internal/api"
	"clipforge/internal/batch"
	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/rendercache"
)

// Daemon coordinates background processing and enforces single-instance
// execution via a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	runner *batch.Runner
	cache  *rendercache.Cache
	svc    *api.Service

	lockPath string
	lock     *flock.Flock

	apiSrv  *apiServer
	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. cache may be nil
// when result caching is disabled.
func New(cfg *config.Config, store *queue.Store, runner *batch.Runner, cache *rendercache.Cache, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil {
		return nil, errors.New("daemon requires config, store, and runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipforged.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		runner:   runner,
		cache:    cache,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	var resultCache api.ResultCache
	if cache != nil {
		resultCache = cache
	}
	d.svc = api.NewService(runner, store, resultCache)

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiSrv = srv
	return d, nil
}

// Service exposes the API service layer, primarily for tests.
func (d *Daemon) Service() *api.Service {
	return d.svc
}

// Start acquires the daemon lock and launches the API server and maintenance
// sweeps. The provided context bounds everything the daemon runs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.cache != nil && d.cfg.Cache.SweepIntervalSeconds > 0 {
		d.cache.StartSweeper(runCtx, time.Duration(d.cfg.Cache.SweepIntervalSeconds)*time.Second)
	}
	d.startRetentionSweep(runCtx)

	if d.apiSrv != nil {
		if err := d.apiSrv.start(runCtx); err != nil {
			cancel()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("clipforge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("db", d.store.Path()))
	return nil
}

// Stop shuts down background processing and releases the daemon lock.
// In-flight batches settle as cancelled.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.apiSrv != nil {
		d.apiSrv.stop()
	}
	d.runner.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) (api.DaemonStatus, error) {
	stats, err := d.svc.JobStats(ctx)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		JobStats:     stats,
		Cache:        d.svc.CacheStats(),
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}, nil
}

// startRetentionSweep purges terminal jobs and batches older than the
// configured retention window.
func (d *Daemon) startRetentionSweep(ctx context.Context) {
	interval := time.Duration(d.cfg.Workflow.SweepIntervalSeconds) * time.Second
	retention := time.Duration(d.cfg.Workflow.JobRetentionHours) * time.Hour
	if interval <= 0 || retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				purged, err := d.store.PurgeOlderThan(ctx, cutoff)
				if err != nil {
					d.logger.Warn("retention sweep failed", logging.Error(err))
					continue
				}
				if purged > 0 {
					d.logger.Info("retention sweep purged terminal jobs",
						logging.String(logging.FieldEventType, "retention_sweep"),
						logging.Int64("purged", purged))
				}
			}
		}
	}()
}
