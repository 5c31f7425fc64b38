package frames

import (
	"context"
	"fmt"

	"stagehand/internal/poscache"
	"stagehand/internal/store"
)

// FrameAt returns the frame whose start equals start, or nil.
func (s *Service) FrameAt(ctx context.Context, start int64) (*store.PositionFrame, error) {
	frame, err := s.store.FrameByStart(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("frame at %d: %w", start, err)
	}
	return frame, nil
}

// FrameIDs returns every frame id ascending by start.
func (s *Service) FrameIDs(ctx context.Context) ([]int64, error) {
	return s.timeline.OrderedIDs(ctx)
}

// Frames returns every frame ascending by start.
func (s *Service) Frames(ctx context.Context) ([]store.PositionFrame, error) {
	return s.timeline.Ordered(ctx)
}

// Snapshot returns the cached view of one frame, or nil when it does not
// exist.
func (s *Service) Snapshot(ctx context.Context, frameID int64) (*poscache.Snapshot, error) {
	return s.cache.Get(ctx, frameID)
}

// PositionMap returns the snapshot of every frame ordered by start.
func (s *Service) PositionMap(ctx context.Context) ([]poscache.Snapshot, error) {
	ids, err := s.timeline.OrderedIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]poscache.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.cache.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("snapshot for frame %d: %w", id, err)
		}
		// Deleted between listing and reading.
		if snap == nil {
			continue
		}
		out = append(out, *snap)
	}
	return out, nil
}
