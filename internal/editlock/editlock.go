// Package editlock guarantees at most one active editor per timeline frame.
//
// Lock state lives only in the record store; nothing is cached in process,
// so every acquire observes the committed holder.
package editlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stagehand/internal/logging"
	"stagehand/internal/metrics"
	"stagehand/internal/store"
)

// Store is the persistence the manager needs.
type Store interface {
	ClaimEditLock(ctx context.Context, frameID int64, userID string) (*store.EditLock, error)
	DeleteEditLock(ctx context.Context, frameID int64, userID string) (bool, error)
}

// ConflictError reports that another user holds the lock.
type ConflictError struct {
	FrameID int64
	HeldBy  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("The frame is now editing by %s.", e.HeldBy)
}

// ErrorKind classifies the error for transport mapping.
func (e *ConflictError) ErrorKind() string { return "lock_conflict" }

// ErrUserRequired is returned when no editor identity is supplied.
var ErrUserRequired = errors.New("edit lock requires a user id")

// Manager acquires and releases frame edit locks.
type Manager struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewManager builds a Manager. logger and m may be nil.
func NewManager(st Store, logger *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		store:   st,
		logger:  logging.NewComponentLogger(logger, "editlock"),
		metrics: m,
	}
}

// Acquire takes the lock on frameID for userID. Acquiring a lock the user
// already holds succeeds. When another user holds it, a *ConflictError
// naming that user is returned and nothing is written.
func (m *Manager) Acquire(ctx context.Context, frameID int64, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserRequired
	}
	holder, err := m.store.ClaimEditLock(ctx, frameID, userID)
	if err != nil {
		m.metrics.LockAttempt("error")
		return fmt.Errorf("acquire edit lock on frame %d: %w", frameID, err)
	}
	if holder.UserID != userID {
		m.metrics.LockAttempt("conflict")
		m.logger.Info("edit lock conflict",
			logging.Int64(logging.FieldFrameID, frameID),
			logging.String(logging.FieldUserID, userID),
			logging.String("held_by", holder.UserID),
			logging.String(logging.FieldEventType, "edit_lock_conflict"),
		)
		return &ConflictError{FrameID: frameID, HeldBy: holder.UserID}
	}
	m.metrics.LockAttempt("acquired")
	m.logger.Debug("edit lock acquired",
		logging.Int64(logging.FieldFrameID, frameID),
		logging.String(logging.FieldUserID, userID),
	)
	return nil
}

// Release drops the lock on frameID if userID holds it. Failures are
// logged and never returned.
func (m *Manager) Release(ctx context.Context, frameID int64, userID string) {
	userID = strings.TrimSpace(userID)
	ctx = context.WithoutCancel(ensureContext(ctx))
	removed, err := m.store.DeleteEditLock(ctx, frameID, userID)
	switch {
	case err != nil:
		m.metrics.LockReleased("error")
		logging.ErrorWithContext(m.logger, "release edit lock failed", "edit_lock_release_failed",
			logging.Int64(logging.FieldFrameID, frameID),
			logging.String(logging.FieldUserID, userID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the row from editing_position_frames if the frame stays locked"),
		)
	case !removed:
		m.metrics.LockReleased("not_held")
		m.logger.Debug("edit lock not held by caller",
			logging.Int64(logging.FieldFrameID, frameID),
			logging.String(logging.FieldUserID, userID),
		)
	default:
		m.metrics.LockReleased("released")
	}
}

// Guard is a held lock that must be released exactly once.
type Guard struct {
	manager  *Manager
	frameID  int64
	userID   string
	released bool
}

// Hold acquires the lock and returns a Guard for it.
func (m *Manager) Hold(ctx context.Context, frameID int64, userID string) (*Guard, error) {
	if err := m.Acquire(ctx, frameID, userID); err != nil {
		return nil, err
	}
	return &Guard{manager: m, frameID: frameID, userID: strings.TrimSpace(userID)}, nil
}

// Release drops the lock. Later calls are no-ops.
func (g *Guard) Release(ctx context.Context) {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.manager.Release(ctx, g.frameID, g.userID)
}

// Do runs fn while holding the lock on frameID. The lock is released when
// fn returns, fails, or panics.
func (m *Manager) Do(ctx context.Context, frameID int64, userID string, fn func(ctx context.Context) error) error {
	guard, err := m.Hold(ctx, frameID, userID)
	if err != nil {
		return err
	}
	defer guard.Release(ctx)
	return fn(ctx)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
