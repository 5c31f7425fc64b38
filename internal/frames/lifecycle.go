package frames

import (
	"context"
	"errors"
	"fmt"

	"stagehand/internal/logging"
	"stagehand/internal/services"
	"stagehand/internal/store"
	"stagehand/internal/timeline"
)

// EditInput describes a frame edit. A nil Start keeps the current start
// and only bumps the frame's modification time.
type EditInput struct {
	FrameID int64
	Start   *int64
}

// Create adds a frame at start and links one position datum per performer.
func (s *Service) Create(ctx context.Context, start int64, userID string) (*store.PositionFrame, error) {
	if start < 0 {
		return nil, services.Wrap(services.ErrValidation, "frames", "create", fmt.Sprintf("start %d must not be negative", start), nil)
	}
	if err := s.timeline.ValidateStart(ctx, start, timeline.NoExclusion); err != nil {
		s.metrics.FrameMutation("create", "rejected")
		return nil, err
	}

	var frame *store.PositionFrame
	err := s.writeStart(ctx, start, timeline.NoExclusion, func() error {
		var err error
		frame, err = s.store.CreateFrame(ctx, start)
		return err
	})
	if err != nil {
		s.metrics.FrameMutation("create", outcomeFor(err))
		return nil, err
	}
	log := logging.WithContext(ctx, s.logger).With(logging.Int64(logging.FieldFrameID, frame.ID))

	if _, err := s.cache.Refresh(ctx, frame.ID); err != nil {
		s.metrics.FrameMutation("create", "error")
		return nil, fmt.Errorf("refresh cache for frame %d: %w", frame.ID, err)
	}

	s.publishMap(ctx, userID, mapCreated(frame.ID))
	index, err := s.timeline.IndexOf(ctx, frame.ID)
	if err != nil {
		s.warnPublish(log, "index lookup failed; record event skipped", err)
	} else {
		s.publishRecord(ctx, newCreatedRecord(userID, frame.ID, index))
	}

	s.metrics.FrameMutation("create", "ok")
	log.Info("position frame created",
		logging.Int64("start", frame.Start),
		logging.Int("index", index),
		logging.String(logging.FieldUserID, userID),
		logging.String(logging.FieldEventType, "frame_created"),
	)
	return frame, nil
}

// Edit moves a frame to a new start under the frame's edit lock. It
// returns nil when the frame no longer exists.
func (s *Service) Edit(ctx context.Context, in EditInput, userID string) (*store.PositionFrame, error) {
	if in.Start != nil {
		if *in.Start < 0 {
			return nil, services.Wrap(services.ErrValidation, "frames", "edit", fmt.Sprintf("start %d must not be negative", *in.Start), nil)
		}
		if err := s.timeline.ValidateStart(ctx, *in.Start, in.FrameID); err != nil {
			s.metrics.FrameMutation("edit", "rejected")
			return nil, err
		}
	}

	err := s.locks.Do(ctx, in.FrameID, userID, func(ctx context.Context) error {
		if in.Start == nil {
			_, err := s.store.TouchFrame(ctx, in.FrameID)
			return err
		}
		return s.writeStart(ctx, *in.Start, in.FrameID, func() error {
			_, err := s.store.UpdateFrameStart(ctx, in.FrameID, *in.Start)
			return err
		})
	})
	if err != nil {
		s.metrics.FrameMutation("edit", outcomeFor(err))
		return nil, err
	}

	frame, err := s.store.GetFrame(ctx, in.FrameID)
	if err != nil {
		s.metrics.FrameMutation("edit", "error")
		return nil, fmt.Errorf("reload frame %d: %w", in.FrameID, err)
	}
	if frame == nil {
		s.metrics.FrameMutation("edit", "absent")
		s.logger.Debug("edited frame no longer exists",
			logging.Int64(logging.FieldFrameID, in.FrameID),
			logging.String(logging.FieldUserID, userID),
		)
		return nil, nil
	}
	log := logging.WithContext(ctx, s.logger).With(logging.Int64(logging.FieldFrameID, frame.ID))

	if _, err := s.cache.Refresh(ctx, frame.ID); err != nil {
		s.metrics.FrameMutation("edit", "error")
		return nil, fmt.Errorf("refresh cache for frame %d: %w", frame.ID, err)
	}

	s.publishMap(ctx, userID, mapUpdated(frame.ID))
	index, err := s.timeline.IndexOf(ctx, frame.ID)
	if err != nil {
		s.warnPublish(log, "index lookup failed; record event skipped", err)
	} else {
		s.publishRecord(ctx, newUpdatedRecord(userID, frame.ID, index))
	}

	s.metrics.FrameMutation("edit", "ok")
	log.Info("position frame edited",
		logging.Int64("start", frame.Start),
		logging.Int("index", index),
		logging.String(logging.FieldUserID, userID),
		logging.String(logging.FieldEventType, "frame_edited"),
	)
	return frame, nil
}

// Delete removes a frame and all of its position data. Deleting a missing
// frame returns nil without error.
func (s *Service) Delete(ctx context.Context, frameID int64, userID string) (*store.PositionFrame, error) {
	deletion, err := s.store.DeleteFrame(ctx, frameID)
	if err != nil {
		s.metrics.FrameMutation("delete", "error")
		return nil, fmt.Errorf("delete frame %d: %w", frameID, err)
	}
	if deletion == nil {
		s.metrics.FrameMutation("delete", "absent")
		return nil, nil
	}
	log := logging.WithContext(ctx, s.logger).With(logging.Int64(logging.FieldFrameID, frameID))

	if err := s.cache.Evict(ctx, frameID); err != nil {
		s.metrics.FrameMutation("delete", "error")
		return nil, fmt.Errorf("evict cache for frame %d: %w", frameID, err)
	}

	s.publishMap(ctx, userID, mapDeleted(frameID))
	s.publishRecord(ctx, newDeletedRecord(userID, frameID))

	s.metrics.FrameMutation("delete", "ok")
	log.Info("position frame deleted",
		logging.Int64("start", deletion.Frame.Start),
		logging.Int64("disconnected", deletion.Disconnected),
		logging.Int64("swept", deletion.Swept),
		logging.String(logging.FieldUserID, userID),
		logging.String(logging.FieldEventType, "frame_deleted"),
	)
	return &deletion.Frame, nil
}

// maxStartWrites bounds how often a write that lost the unique start
// index race is retried.
const maxStartWrites = 3

// writeStart runs write, which puts a frame at start. Losing the unique
// start index race to a frame that still exists yields the same
// OverlapError validation reports. When that frame is already gone again
// the write is retried, and repeated losses end in a retryable conflict.
func (s *Service) writeStart(ctx context.Context, start, excludeID int64, write func() error) error {
	for attempt := 1; ; attempt++ {
		err := write()
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateStart) {
			return fmt.Errorf("write frame at %d: %w", start, err)
		}
		if vErr := s.timeline.ValidateStart(ctx, start, excludeID); vErr != nil {
			return vErr
		}
		if attempt == maxStartWrites {
			return services.Wrap(services.ErrConflict, "frames", "write start",
				fmt.Sprintf("start %d kept changing concurrently; retry the request", start), err)
		}
		s.logger.Debug("start taken by a frame that has since gone; retrying write",
			logging.Int64("start", start),
			logging.Int("attempt", attempt),
		)
	}
}

func outcomeFor(err error) string {
	switch services.Kind(err) {
	case services.KindOverlap, services.KindLockConflict, services.KindValidation, services.KindConflict:
		return "rejected"
	default:
		return "error"
	}
}
