package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"stagehand/internal/config"
	"stagehand/internal/frames"
	"stagehand/internal/logging"
	"stagehand/internal/metrics"
	"stagehand/internal/poscache"
	"stagehand/internal/pubsub"
	"stagehand/internal/roster"
	"stagehand/internal/server"
	"stagehand/internal/store"
)

// Daemon owns every long-lived component and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	cache   *poscache.Cache
	hub     *pubsub.Hub
	metrics *metrics.Metrics
	server  *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	APIAddr      string
	DatabasePath string
	LockFilePath string
}

// New opens storage and wires the services. The caller must Close the
// daemon.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	d.store = st

	cache, err := poscache.Open(cfg, st, logger, poscache.WithMetrics(d.metrics))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open position cache: %w", err)
	}
	d.cache = cache

	d.hub = pubsub.NewHub(cfg.Notify.HistoryCapacity, cfg.Notify.SubscriberBuffer, logger, d.metrics)

	srv, err := server.New(cfg, server.Deps{
		Frames:  frames.NewService(st, cache, d.hub, logger, d.metrics),
		Roster:  roster.NewService(st, cache, d.hub, logger),
		Hub:     d.hub,
		Store:   st,
		Cache:   cache,
		Metrics: d.metrics,
	}, logger)
	if err != nil {
		d.closeStorage()
		return nil, fmt.Errorf("create api server: %w", err)
	}
	d.server = srv
	return d, nil
}

// Start acquires the instance lock and binds the API listener.
func (d *Daemon) Start() error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another stagehand server is already using %s", d.cfg.Paths.DataDir)
	}

	if err := d.server.Start(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("stagehand server started",
		logging.String("lock", d.lockPath),
		logging.String("api_addr", d.server.Addr()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Run serves until ctx ends or a component fails. Start must have
// succeeded first.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.Load() {
		return errors.New("daemon not started")
	}
	defer d.stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return d.server.Serve(groupCtx)
	})
	group.Go(func() error {
		return d.cache.RunGCLoop(groupCtx, d.cfg.CacheGCInterval())
	})
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Daemon) stop() {
	if !d.running.Load() {
		return
	}
	d.hub.Close()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stale lock file may remain"),
		)
	}
	d.running.Store(false)
	d.logger.Info("stagehand server stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.stop()
	d.hub.Close()
	if err := d.server.Close(); err != nil {
		d.logger.Debug("api server close", logging.Error(err))
	}
	return d.closeStorage()
}

func (d *Daemon) closeStorage() error {
	var errs []error
	if d.cache != nil {
		errs = append(errs, d.cache.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// Addr returns the bound API address.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		APIAddr:      d.server.Addr(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
