package store

import (
	"context"
	"fmt"
)

// PositionUpdate sets one performer's coordinates within a frame.
type PositionUpdate struct {
	PerformerID int64
	X           float64
	Y           float64
	Z           float64
}

// PositionData returns every datum of a frame ordered by performer id.
func (s *Store) PositionData(ctx context.Context, frameID int64) ([]PositionDatum, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
		SELECT p.dancer_id, d.name, p.frame_id, p.x, p.y, p.z
		FROM position_data p
		JOIN dancers d ON d.id = p.dancer_id
		WHERE p.frame_id = ?
		ORDER BY p.dancer_id`, frameID)
	if err != nil {
		return nil, fmt.Errorf("query position data: %w", err)
	}
	defer rows.Close()

	var data []PositionDatum
	for rows.Next() {
		var datum PositionDatum
		if err := rows.Scan(&datum.PerformerID, &datum.PerformerName, &datum.FrameID, &datum.X, &datum.Y, &datum.Z); err != nil {
			return nil, fmt.Errorf("scan position datum: %w", err)
		}
		data = append(data, datum)
	}
	return data, rows.Err()
}

// FrameSnapshot loads a frame together with its position data. It returns
// nil when the frame does not exist.
func (s *Store) FrameSnapshot(ctx context.Context, frameID int64) (*FrameSnapshot, error) {
	frame, err := s.GetFrame(ctx, frameID)
	if err != nil || frame == nil {
		return nil, err
	}
	positions, err := s.PositionData(ctx, frameID)
	if err != nil {
		return nil, err
	}
	return &FrameSnapshot{Frame: *frame, Positions: positions}, nil
}

// UpdatePositions writes coordinates for a frame in one transaction. Rows
// missing for a performer are created. It reports false when the frame
// does not exist.
func (s *Store) UpdatePositions(ctx context.Context, frameID int64, updates []PositionUpdate) (bool, error) {
	found := false
	err := s.withTx(ctx, func(tx txRunner) error {
		found = false
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM position_frames WHERE id = ?`, frameID).Scan(&exists); err != nil {
			return fmt.Errorf("check frame: %w", err)
		}
		if exists == 0 {
			return nil
		}
		for _, u := range updates {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO position_data (dancer_id, frame_id, x, y, z) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(dancer_id, frame_id) DO UPDATE SET x = excluded.x, y = excluded.y, z = excluded.z`,
				u.PerformerID, frameID, u.X, u.Y, u.Z,
			); err != nil {
				return fmt.Errorf("write position for performer %d: %w", u.PerformerID, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE position_frames SET updated_at = ? WHERE id = ?`, nowString(), frameID); err != nil {
			return fmt.Errorf("touch frame: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
