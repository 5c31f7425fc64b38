package poscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"stagehand/internal/logging"
)

// RunGC performs one value log garbage collection pass. Nothing to rewrite
// is not an error.
func (c *Cache) RunGC() error {
	if c.inMemory {
		return nil
	}
	err := c.db.RunValueLogGC(c.ratio)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return fmt.Errorf("value log gc: %w", err)
}

// RunGCLoop runs RunGC every interval until ctx is done. A zero interval or
// an in-memory cache blocks until ctx is done without collecting.
func (c *Cache) RunGCLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || c.inMemory {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.RunGC(); err != nil {
				logging.WarnWithContext(c.logger, "position cache gc failed", "poscache_gc_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "cache disk usage may grow until the next pass"),
				)
			}
		}
	}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
