package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ClaimEditLock inserts a lock row for frameID owned by userID unless one
// already exists, and returns whichever lock is in place afterwards. The
// insert and the read share one transaction so the returned holder is the
// row that won.
func (s *Store) ClaimEditLock(ctx context.Context, frameID int64, userID string) (*EditLock, error) {
	var lock *EditLock
	err := s.withTx(ctx, func(tx txRunner) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO editing_position_frames (frame_id, user_id, acquired_at) VALUES (?, ?, ?)
			ON CONFLICT(frame_id) DO NOTHING`,
			frameID, userID, nowString(),
		); err != nil {
			return fmt.Errorf("insert edit lock: %w", err)
		}
		held, err := scanEditLock(tx.QueryRowContext(ctx,
			`SELECT frame_id, user_id, acquired_at FROM editing_position_frames WHERE frame_id = ?`, frameID))
		if err != nil {
			return fmt.Errorf("read edit lock: %w", err)
		}
		lock = held
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// DeleteEditLock removes the lock on frameID only when userID owns it.
func (s *Store) DeleteEditLock(ctx context.Context, frameID int64, userID string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM editing_position_frames WHERE frame_id = ? AND user_id = ?`, frameID, userID)
	if err != nil {
		return false, fmt.Errorf("delete edit lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetEditLock returns the lock on frameID, or nil when the frame is free.
func (s *Store) GetEditLock(ctx context.Context, frameID int64) (*EditLock, error) {
	lock, err := scanEditLock(s.db.QueryRowContext(ensureContext(ctx),
		`SELECT frame_id, user_id, acquired_at FROM editing_position_frames WHERE frame_id = ?`, frameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get edit lock: %w", err)
	}
	return lock, nil
}

// ListEditLocks returns every lock currently held.
func (s *Store) ListEditLocks(ctx context.Context) ([]EditLock, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT frame_id, user_id, acquired_at FROM editing_position_frames ORDER BY frame_id`)
	if err != nil {
		return nil, fmt.Errorf("list edit locks: %w", err)
	}
	defer rows.Close()
	var locks []EditLock
	for rows.Next() {
		lock, err := scanEditLock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edit lock: %w", err)
		}
		locks = append(locks, *lock)
	}
	return locks, rows.Err()
}

func scanEditLock(row scanner) (*EditLock, error) {
	var (
		lock       EditLock
		acquiredAt sql.NullString
	)
	if err := row.Scan(&lock.FrameID, &lock.UserID, &acquiredAt); err != nil {
		return nil, err
	}
	lock.AcquiredAt = parseTimeOrZero(acquiredAt.String)
	return &lock, nil
}
