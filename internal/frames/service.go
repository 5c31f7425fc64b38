package frames

import (
	"context"
	"log/slog"

	"stagehand/internal/editlock"
	"stagehand/internal/logging"
	"stagehand/internal/metrics"
	"stagehand/internal/poscache"
	"stagehand/internal/pubsub"
	"stagehand/internal/store"
	"stagehand/internal/timeline"
)

// Store is the record store surface used by the service.
type Store interface {
	timeline.Store
	editlock.Store
	CreateFrame(ctx context.Context, start int64) (*store.PositionFrame, error)
	UpdateFrameStart(ctx context.Context, id, start int64) (bool, error)
	TouchFrame(ctx context.Context, id int64) (bool, error)
	GetFrame(ctx context.Context, id int64) (*store.PositionFrame, error)
	FrameByStart(ctx context.Context, start int64) (*store.PositionFrame, error)
	DeleteFrame(ctx context.Context, id int64) (*store.FrameDeletion, error)
	UpdatePositions(ctx context.Context, frameID int64, updates []store.PositionUpdate) (bool, error)
	ListPerformers(ctx context.Context) ([]store.Performer, error)
}

// Cache is the position cache surface used by the service.
type Cache interface {
	Get(ctx context.Context, frameID int64) (*poscache.Snapshot, error)
	Refresh(ctx context.Context, frameID int64) (*poscache.Snapshot, error)
	Evict(ctx context.Context, frameID int64) error
}

// Publisher accepts notifier events.
type Publisher interface {
	Publish(evt pubsub.Event) (pubsub.Event, error)
}

// Service runs frame mutations and queries.
type Service struct {
	store    Store
	cache    Cache
	locks    *editlock.Manager
	timeline *timeline.Coordinator
	notifier Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService wires a Service. logger and m may be nil.
func NewService(st Store, cache Cache, notifier Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:    st,
		cache:    cache,
		locks:    editlock.NewManager(st, logger, m),
		timeline: timeline.New(st),
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "frames"),
		metrics:  m,
	}
}

// Locks exposes the edit lock manager shared by all frame writes.
func (s *Service) Locks() *editlock.Manager {
	return s.locks
}

// Timeline exposes the ordering coordinator.
func (s *Service) Timeline() *timeline.Coordinator {
	return s.timeline
}
