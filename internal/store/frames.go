package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const frameColumns = "id, start, created_at, updated_at"

// CreateFrame inserts a frame and links one position datum per existing
// performer in a single transaction.
func (s *Store) CreateFrame(ctx context.Context, start int64) (*PositionFrame, error) {
	var frameID int64
	err := s.withTx(ctx, func(tx txRunner) error {
		now := nowString()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO position_frames (start, created_at, updated_at) VALUES (?, ?, ?)`,
			start, now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert frame at %d: %w", start, ErrDuplicateStart)
			}
			return fmt.Errorf("insert frame: %w", err)
		}
		frameID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO position_data (dancer_id, frame_id) SELECT id, ? FROM dancers`,
			frameID,
		); err != nil {
			return fmt.Errorf("link performers to frame %d: %w", frameID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetFrame(ctx, frameID)
}

// UpdateFrameStart moves a frame to a new start. It reports false when the
// frame does not exist.
func (s *Store) UpdateFrameStart(ctx context.Context, id, start int64) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE position_frames SET start = ?, updated_at = ? WHERE id = ?`,
		start, nowString(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("update frame %d to %d: %w", id, start, ErrDuplicateStart)
		}
		return false, fmt.Errorf("update frame: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// TouchFrame bumps updated_at without changing start.
func (s *Store) TouchFrame(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `UPDATE position_frames SET updated_at = ? WHERE id = ?`, nowString(), id)
	if err != nil {
		return false, fmt.Errorf("touch frame: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetFrame fetches a frame by identifier.
func (s *Store) GetFrame(ctx context.Context, id int64) (*PositionFrame, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+frameColumns+` FROM position_frames WHERE id = ?`, id)
	frame, err := scanFrame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get frame: %w", err)
	}
	return frame, nil
}

// FrameByStart returns the first frame at start.
func (s *Store) FrameByStart(ctx context.Context, start int64) (*PositionFrame, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+frameColumns+` FROM position_frames WHERE start = ? ORDER BY id LIMIT 1`, start)
	frame, err := scanFrame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("frame by start: %w", err)
	}
	return frame, nil
}

// FramesByStart returns every frame at start.
func (s *Store) FramesByStart(ctx context.Context, start int64) ([]PositionFrame, error) {
	return s.queryFrames(ctx, `SELECT `+frameColumns+` FROM position_frames WHERE start = ? ORDER BY id`, start)
}

// ListFrames returns all frames ordered ascending by start.
func (s *Store) ListFrames(ctx context.Context) ([]PositionFrame, error) {
	return s.queryFrames(ctx, `SELECT `+frameColumns+` FROM position_frames ORDER BY start, id`)
}

// DeleteFrame removes a frame and every position datum scoped to it. It
// returns nil when the frame does not exist.
func (s *Store) DeleteFrame(ctx context.Context, id int64) (*FrameDeletion, error) {
	var deletion *FrameDeletion
	err := s.withTx(ctx, func(tx txRunner) error {
		deletion = nil
		frame, err := scanFrame(tx.QueryRowContext(ctx, `SELECT `+frameColumns+` FROM position_frames WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load frame: %w", err)
		}
		result := &FrameDeletion{Frame: *frame}

		performerIDs, err := queryIDs(ctx, tx, `SELECT id FROM dancers ORDER BY id`)
		if err != nil {
			return fmt.Errorf("list performers: %w", err)
		}
		for _, performerID := range performerIDs {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM position_data WHERE dancer_id = ? AND frame_id = ?`, performerID, id)
			if err != nil {
				return fmt.Errorf("disconnect performer %d: %w", performerID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("count disconnected rows: %w", err)
			}
			result.Disconnected += n
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM position_data WHERE frame_id = ?`, id)
		if err != nil {
			return fmt.Errorf("sweep position data: %w", err)
		}
		if result.Swept, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("count swept rows: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM position_frames WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete frame: %w", err)
		}
		deletion = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deletion, nil
}

// CountPositionData returns how many position rows reference a frame.
func (s *Store) CountPositionData(ctx context.Context, frameID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM position_data WHERE frame_id = ?`, frameID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count position data: %w", err)
	}
	return count, nil
}

func (s *Store) queryFrames(ctx context.Context, query string, args ...any) ([]PositionFrame, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []PositionFrame
	for rows.Next() {
		frame, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		frames = append(frames, *frame)
	}
	return frames, rows.Err()
}

func scanFrame(row scanner) (*PositionFrame, error) {
	var (
		frame              PositionFrame
		createdAt, updated sql.NullString
	)
	if err := row.Scan(&frame.ID, &frame.Start, &createdAt, &updated); err != nil {
		return nil, err
	}
	frame.CreatedAt = parseTimeOrZero(createdAt.String)
	frame.UpdatedAt = parseTimeOrZero(updated.String)
	return &frame, nil
}

func queryIDs(ctx context.Context, q txRunner, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
