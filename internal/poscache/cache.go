package poscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"

	"stagehand/internal/config"
	"stagehand/internal/logging"
	"stagehand/internal/metrics"
	"stagehand/internal/store"
)

// Loader reads the durable copy of a frame's position data.
type Loader interface {
	FrameSnapshot(ctx context.Context, frameID int64) (*store.FrameSnapshot, error)
}

// Position is one performer's coordinates inside a snapshot.
type Position struct {
	PerformerID int64   `json:"performerId"`
	Performer   string  `json:"performer"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
}

// Snapshot is the cached view of one frame.
type Snapshot struct {
	FrameID   int64      `json:"frameId"`
	Start     int64      `json:"start"`
	Positions []Position `json:"positions"`
	BuiltAt   time.Time  `json:"builtAt"`
}

// Option customizes a Cache.
type Option func(*Cache)

// WithMetrics records lookups and rebuilds on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// Cache is the BadgerDB-backed snapshot store.
type Cache struct {
	db       *badger.DB
	loader   Loader
	logger   *slog.Logger
	metrics  *metrics.Metrics
	flight   singleflight.Group
	locks    frameLocks
	inMemory bool
	ratio    float64
}

// Open opens the cache described by cfg.Cache. A nil logger silences
// both the cache and Badger's internal logging.
func Open(cfg *config.Config, loader Loader, logger *slog.Logger, opts ...Option) (*Cache, error) {
	if cfg == nil {
		return nil, errors.New("open position cache: config is required")
	}
	if loader == nil {
		return nil, errors.New("open position cache: loader is required")
	}

	var badgerOpts badger.Options
	if cfg.Cache.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Cache.Dir == "" {
			return nil, errors.New("open position cache: cache.dir is required unless in_memory is set")
		}
		if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Cache.Dir, err)
		}
		badgerOpts = badger.DefaultOptions(cfg.Cache.Dir)
	}
	badgerOpts = badgerOpts.WithSyncWrites(cfg.Cache.SyncWrites).WithNumVersionsToKeep(1)
	if logger != nil {
		badgerOpts = badgerOpts.WithLogger(&badgerLogger{logger: logging.NewComponentLogger(logger, "badger")})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	c := &Cache{
		db:       db,
		loader:   loader,
		logger:   logging.NewComponentLogger(logger, "poscache"),
		inMemory: cfg.Cache.InMemory,
		ratio:    cfg.Cache.GCDiscardRatio,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func key(frameID int64) []byte {
	return []byte(strconv.FormatInt(frameID, 10))
}

// Get returns the snapshot for frameID, rebuilding it from the record store
// when the entry is missing or unreadable. It returns nil when the frame
// does not exist.
func (c *Cache) Get(ctx context.Context, frameID int64) (*Snapshot, error) {
	snap, err := c.read(frameID)
	switch {
	case err == nil:
		c.metrics.CacheLookup("hit")
		return snap, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		c.metrics.CacheLookup("miss")
	case errors.Is(err, errCorrupt):
		c.metrics.CacheLookup("corrupt")
		logging.WarnWithContext(c.logger, "discarding unreadable cache entry", "poscache_corrupt",
			logging.Int64(logging.FieldFrameID, frameID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "entry will be rebuilt from the record store"),
			logging.String(logging.FieldImpact, "one extra record store read"),
		)
	default:
		return nil, err
	}

	result, err, _ := c.flight.Do(string(key(frameID)), func() (any, error) {
		return c.Refresh(ctx, frameID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

// Refresh rebuilds the entry for frameID from the record store. A frame
// that no longer exists has its entry removed and yields nil. Refresh and
// Evict on one frame never interleave, so an evict issued after the frame
// is deleted from the record store always wins.
func (c *Cache) Refresh(ctx context.Context, frameID int64) (*Snapshot, error) {
	unlock := c.locks.lock(frameID)
	defer unlock()

	started := time.Now()
	source, err := c.loader.FrameSnapshot(ctx, frameID)
	if err != nil {
		return nil, fmt.Errorf("load frame %d: %w", frameID, err)
	}
	if source == nil {
		if err := c.evictLocked(frameID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	snap := fromStore(source)
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %d: %w", frameID, err)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(frameID), payload)
	}); err != nil {
		return nil, fmt.Errorf("write cache entry %d: %w", frameID, err)
	}
	c.metrics.CacheRebuilt(time.Since(started))
	c.logger.Debug("position cache refreshed",
		logging.Int64(logging.FieldFrameID, frameID),
		logging.Int("positions", len(snap.Positions)),
	)
	return snap, nil
}

// Evict removes the entry for frameID, waiting for an in-flight refresh
// of the same frame. Evicting a missing entry succeeds.
func (c *Cache) Evict(_ context.Context, frameID int64) error {
	unlock := c.locks.lock(frameID)
	defer unlock()
	return c.evictLocked(frameID)
}

func (c *Cache) evictLocked(frameID int64) error {
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(frameID))
	}); err != nil {
		return fmt.Errorf("evict cache entry %d: %w", frameID, err)
	}
	c.metrics.CacheEvicted()
	return nil
}

// Purge drops every entry so all snapshots are rebuilt on next read.
func (c *Cache) Purge() error {
	unlock := c.locks.lockAll()
	defer unlock()
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("purge position cache: %w", err)
	}
	c.logger.Info("position cache purged", logging.String(logging.FieldEventType, "poscache_purged"))
	return nil
}

// Contains reports whether an entry for frameID is present, without
// triggering a rebuild.
func (c *Cache) Contains(frameID int64) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(frameID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup cache entry %d: %w", frameID, err)
	}
	return true, nil
}

// Len counts the entries currently cached.
func (c *Cache) Len() (int, error) {
	count := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

var errCorrupt = errors.New("corrupt cache entry")

func (c *Cache) read(frameID int64) (*Snapshot, error) {
	var snap Snapshot
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(frameID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &snap); err != nil {
				return fmt.Errorf("%w: %v", errCorrupt, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func fromStore(src *store.FrameSnapshot) *Snapshot {
	snap := &Snapshot{
		FrameID:   src.Frame.ID,
		Start:     src.Frame.Start,
		Positions: make([]Position, 0, len(src.Positions)),
		BuiltAt:   time.Now().UTC(),
	}
	for _, p := range src.Positions {
		snap.Positions = append(snap.Positions, Position{
			PerformerID: p.PerformerID,
			Performer:   p.PerformerName,
			X:           p.X,
			Y:           p.Y,
			Z:           p.Z,
		})
	}
	return snap
}
