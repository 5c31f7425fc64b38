package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const partColumns = "id, dancer_id, name, type"

// CreatePart adds a part to a performer.
func (s *Store) CreatePart(ctx context.Context, performerID int64, name string, kind ControlType) (*Part, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO parts (dancer_id, name, type) VALUES (?, ?, ?)`,
		performerID, name, string(kind),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert part %q: %w", name, ErrDuplicateName)
		}
		return nil, fmt.Errorf("insert part: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPart(ctx, id)
}

// GetPart fetches a part by identifier.
func (s *Store) GetPart(ctx context.Context, id int64) (*Part, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+partColumns+` FROM parts WHERE id = ?`, id)
	part, err := scanPart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get part: %w", err)
	}
	return part, nil
}

// UpdatePart renames or retypes a part. It reports false when no part
// matched both the id and the owning performer.
func (s *Store) UpdatePart(ctx context.Context, id, performerID int64, name string, kind ControlType) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE parts SET name = ?, type = ? WHERE id = ? AND dancer_id = ?`,
		name, string(kind), id, performerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("update part %d to %q: %w", id, name, ErrDuplicateName)
		}
		return false, fmt.Errorf("update part: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeletePart removes a part owned by performerID.
func (s *Store) DeletePart(ctx context.Context, id, performerID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM parts WHERE id = ? AND dancer_id = ?`, id, performerID)
	if err != nil {
		return false, fmt.Errorf("delete part: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanPart(row scanner) (*Part, error) {
	var (
		part Part
		kind string
	)
	if err := row.Scan(&part.ID, &part.PerformerID, &part.Name, &kind); err != nil {
		return nil, err
	}
	part.Type = ControlType(kind)
	return &part, nil
}
