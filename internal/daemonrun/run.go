// Package daemonrun hosts the foreground server runtime used by the serve
// command.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"stagehand/internal/config"
	"stagehand/internal/daemon"
	"stagehand/internal/logging"
)

// Options configures server process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Bind overrides server.api_bind when set.
	Bind string
}

// Run starts the stagehand server and blocks until SIGINT, SIGTERM, or a
// fatal component error.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if bind := strings.TrimSpace(opts.Bind); bind != "" {
		cfg.Server.APIBind = bind
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "stagehand.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String("database", cfg.DatabasePath()),
		logging.Bool("cache_in_memory", cfg.Cache.InMemory),
		logging.String("api_bind", cfg.Server.APIBind),
		logging.Bool("metrics_enabled", cfg.Server.MetricsEnabled),
	)

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "server init failed", "daemon_init_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions and the record store file"),
		)
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(); err != nil {
		logging.ErrorWithContext(logger, "server start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other instance or free api_bind"),
		)
		return err
	}

	err = d.Run(signalCtx)
	logger.Info("stagehand server shutting down")
	return err
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
