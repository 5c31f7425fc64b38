package frames

import (
	"context"
	"fmt"
	"math"

	"stagehand/internal/logging"
	"stagehand/internal/poscache"
	"stagehand/internal/services"
	"stagehand/internal/store"
)

// PositionInput sets one performer's coordinates by performer name.
type PositionInput struct {
	Performer string
	X         float64
	Y         float64
	Z         float64
}

// EditPositions writes performer coordinates for a frame under the frame's
// edit lock and returns the refreshed snapshot. It returns nil when the
// frame does not exist.
func (s *Service) EditPositions(ctx context.Context, frameID int64, inputs []PositionInput, userID string) (*poscache.Snapshot, error) {
	updates, err := s.resolvePositions(ctx, inputs)
	if err != nil {
		s.metrics.FrameMutation("positions", "rejected")
		return nil, err
	}

	found := false
	err = s.locks.Do(ctx, frameID, userID, func(ctx context.Context) error {
		var err error
		found, err = s.store.UpdatePositions(ctx, frameID, updates)
		return err
	})
	if err != nil {
		s.metrics.FrameMutation("positions", outcomeFor(err))
		if services.Kind(err) == services.KindInternal {
			return nil, fmt.Errorf("write positions for frame %d: %w", frameID, err)
		}
		return nil, err
	}
	if !found {
		s.metrics.FrameMutation("positions", "absent")
		return nil, nil
	}

	snap, err := s.cache.Refresh(ctx, frameID)
	if err != nil {
		s.metrics.FrameMutation("positions", "error")
		return nil, fmt.Errorf("refresh cache for frame %d: %w", frameID, err)
	}
	s.publishMap(ctx, userID, mapUpdated(frameID))

	s.metrics.FrameMutation("positions", "ok")
	logging.WithContext(ctx, s.logger).Info("frame positions edited",
		logging.Int64(logging.FieldFrameID, frameID),
		logging.Int("performers", len(updates)),
		logging.String(logging.FieldUserID, userID),
		logging.String(logging.FieldEventType, "positions_edited"),
	)
	return snap, nil
}

func (s *Service) resolvePositions(ctx context.Context, inputs []PositionInput) ([]store.PositionUpdate, error) {
	if len(inputs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "frames", "edit positions", "no positions supplied", nil)
	}
	performers, err := s.store.ListPerformers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list performers: %w", err)
	}
	byName := make(map[string]int64, len(performers))
	for _, p := range performers {
		byName[p.Name] = p.ID
	}

	seen := make(map[int64]struct{}, len(inputs))
	updates := make([]store.PositionUpdate, 0, len(inputs))
	for _, in := range inputs {
		name := store.NormalizeName(in.Performer)
		id, ok := byName[name]
		if !ok {
			return nil, services.Wrap(services.ErrNotFound, "frames", "edit positions", fmt.Sprintf("performer %q", name), nil)
		}
		if _, dup := seen[id]; dup {
			return nil, services.Wrap(services.ErrValidation, "frames", "edit positions", fmt.Sprintf("performer %q listed twice", name), nil)
		}
		for _, v := range []float64{in.X, in.Y, in.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, services.Wrap(services.ErrValidation, "frames", "edit positions", fmt.Sprintf("performer %q has a non-finite coordinate", name), nil)
			}
		}
		seen[id] = struct{}{}
		updates = append(updates, store.PositionUpdate{PerformerID: id, X: in.X, Y: in.Y, Z: in.Z})
	}
	return updates, nil
}
