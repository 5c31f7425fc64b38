package frames

import (
	"context"
	"log/slog"

	"stagehand/internal/logging"
	"stagehand/internal/pubsub"
)

func mapCreated(id int64) pubsub.FrameChanges { return pubsub.FrameChanges{CreateList: []int64{id}} }
func mapUpdated(id int64) pubsub.FrameChanges { return pubsub.FrameChanges{UpdateList: []int64{id}} }
func mapDeleted(id int64) pubsub.FrameChanges { return pubsub.FrameChanges{DeleteList: []int64{id}} }

type recordResult struct {
	payload pubsub.RecordPayload
	err     error
}

func newCreatedRecord(userID string, id int64, index int) recordResult {
	p, err := pubsub.NewCreatedRecord(userID, id, index)
	return recordResult{payload: p, err: err}
}

func newUpdatedRecord(userID string, id int64, index int) recordResult {
	p, err := pubsub.NewUpdatedRecord(userID, id, index)
	return recordResult{payload: p, err: err}
}

func newDeletedRecord(userID string, id int64) recordResult {
	p, err := pubsub.NewDeletedRecord(userID, id)
	return recordResult{payload: p, err: err}
}

func (s *Service) publishMap(ctx context.Context, userID string, changes pubsub.FrameChanges) {
	log := logging.WithContext(ctx, s.logger)
	payload, err := pubsub.NewMapPayload(userID, changes)
	if err != nil {
		s.warnPublish(log, "map event not built", err)
		return
	}
	if _, err := s.notifier.Publish(pubsub.MapEvent(payload)); err != nil {
		s.warnPublish(log, "map event not published", err)
	}
}

func (s *Service) publishRecord(ctx context.Context, rec recordResult) {
	log := logging.WithContext(ctx, s.logger)
	if rec.err != nil {
		s.warnPublish(log, "record event not built", rec.err)
		return
	}
	if _, err := s.notifier.Publish(pubsub.RecordEvent(rec.payload)); err != nil {
		s.warnPublish(log, "record event not published", err)
	}
}

func (s *Service) warnPublish(log *slog.Logger, msg string, err error) {
	logging.WarnWithContext(log, msg, "notify_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "subscribers should refetch frame ids"),
		logging.String(logging.FieldImpact, "connected clients may miss this change"),
	)
}
