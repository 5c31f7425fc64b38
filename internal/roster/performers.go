package roster

import (
	"context"
	"errors"
	"fmt"

	"stagehand/internal/logging"
	"stagehand/internal/pubsub"
	"stagehand/internal/services"
	"stagehand/internal/store"
)

// AddPerformer creates a performer. Existing frames keep their position
// data unchanged, so no cache entry or map event is affected.
func (s *Service) AddPerformer(ctx context.Context, name, userID string) (*store.Performer, error) {
	name, err := cleanName("performer", name)
	if err != nil {
		return nil, err
	}
	performer, err := s.store.CreatePerformer(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return nil, services.Wrap(services.ErrConflict, "roster", "add performer", fmt.Sprintf("performer %q already exists", name), err)
		}
		return nil, fmt.Errorf("add performer %q: %w", name, err)
	}
	logging.WithContext(ctx, s.logger).Info("performer added",
		logging.Int64("performer_id", performer.ID),
		logging.String("performer", performer.Name),
		logging.String(logging.FieldUserID, userID),
		logging.String(logging.FieldEventType, "performer_added"),
	)
	return performer, nil
}

// Performers lists every performer with its parts.
func (s *Service) Performers(ctx context.Context) ([]store.Performer, error) {
	performers, err := s.store.ListPerformers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list performers: %w", err)
	}
	return performers, nil
}

// Performer returns one performer by name.
func (s *Service) Performer(ctx context.Context, name string) (*store.Performer, error) {
	return s.performer(ctx, name)
}

// DeletePerformer removes a performer, its parts, and its position data.
func (s *Service) DeletePerformer(ctx context.Context, name, userID string) (*store.Performer, error) {
	performer, err := s.performer(ctx, name)
	if err != nil {
		return nil, err
	}
	removed, err := s.store.DeletePerformer(ctx, performer.Name)
	if err != nil {
		return nil, fmt.Errorf("delete performer %q: %w", performer.Name, err)
	}
	if !removed {
		return nil, services.Wrap(services.ErrNotFound, "roster", "delete performer", fmt.Sprintf("performer %q", performer.Name), nil)
	}
	s.framesChanged(ctx, userID)
	logging.WithContext(ctx, s.logger).Info("performer deleted",
		logging.Int64("performer_id", performer.ID),
		logging.String("performer", performer.Name),
		logging.String(logging.FieldUserID, userID),
		logging.String(logging.FieldEventType, "performer_deleted"),
	)
	return performer, nil
}

// framesChanged drops every cached snapshot and tells map subscribers that
// all frames have new position data. It runs after a committed write, so
// failures are logged and never returned.
func (s *Service) framesChanged(ctx context.Context, userID string) {
	log := logging.WithContext(ctx, s.logger)
	if err := s.cache.Purge(); err != nil {
		logging.WarnWithContext(log, "position cache purge failed", "poscache_purge_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "restart the server to rebuild the position cache"),
			logging.String(logging.FieldImpact, "cached snapshots may list a removed performer"),
		)
	}
	frames, err := s.store.ListFrames(ctx)
	if err != nil {
		logging.WarnWithContext(log, "frames not announced after performer change", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "connected clients may show stale positions"),
		)
		return
	}
	if len(frames) == 0 {
		return
	}
	ids := make([]int64, 0, len(frames))
	for _, f := range frames {
		ids = append(ids, f.ID)
	}
	payload, err := pubsub.NewMapPayload(userID, pubsub.FrameChanges{UpdateList: ids})
	if err == nil {
		_, err = s.notifier.Publish(pubsub.MapEvent(payload))
	}
	if err != nil {
		logging.WarnWithContext(log, "map event not published", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "connected clients may show stale positions"),
		)
	}
}
