package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreatePerformer inserts a performer. Frames that already exist are not
// linked to it; their position rows appear when positions are first
// written for it, and every frame created afterwards links it.
func (s *Store) CreatePerformer(ctx context.Context, name string) (*Performer, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO dancers (name, created_at) VALUES (?, ?)`, name, nowString())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert performer %q: %w", name, ErrDuplicateName)
		}
		return nil, fmt.Errorf("insert performer: %w", err)
	}
	performerID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPerformer(ctx, performerID)
}

// GetPerformer fetches a performer and its parts by identifier.
func (s *Store) GetPerformer(ctx context.Context, id int64) (*Performer, error) {
	return s.getPerformer(ctx, `SELECT id, name, created_at FROM dancers WHERE id = ?`, id)
}

// GetPerformerByName fetches a performer and its parts by exact name.
func (s *Store) GetPerformerByName(ctx context.Context, name string) (*Performer, error) {
	return s.getPerformer(ctx, `SELECT id, name, created_at FROM dancers WHERE name = ?`, name)
}

func (s *Store) getPerformer(ctx context.Context, query string, arg any) (*Performer, error) {
	ctx = ensureContext(ctx)
	performer, err := scanPerformer(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get performer: %w", err)
	}
	parts, err := s.partsFor(ctx, []int64{performer.ID})
	if err != nil {
		return nil, err
	}
	performer.Parts = parts[performer.ID]
	return performer, nil
}

// ListPerformers returns every performer with its parts, ordered by id.
func (s *Store) ListPerformers(ctx context.Context) ([]Performer, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM dancers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list performers: %w", err)
	}
	var (
		performers []Performer
		ids        []int64
	)
	for rows.Next() {
		performer, err := scanPerformer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan performer: %w", err)
		}
		performers = append(performers, *performer)
		ids = append(ids, performer.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	parts, err := s.partsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range performers {
		performers[i].Parts = parts[performers[i].ID]
	}
	return performers, nil
}

// DeletePerformer removes a performer by name. Parts and position data go
// with it through cascading foreign keys.
func (s *Store) DeletePerformer(ctx context.Context, name string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM dancers WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete performer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) partsFor(ctx context.Context, performerIDs []int64) (map[int64][]Part, error) {
	result := make(map[int64][]Part, len(performerIDs))
	if len(performerIDs) == 0 {
		return result, nil
	}
	args := make([]any, len(performerIDs))
	for i, id := range performerIDs {
		args[i] = id
	}
	query := `SELECT ` + partColumns + ` FROM parts WHERE dancer_id IN (` + makePlaceholders(len(args)) + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		result[part.PerformerID] = append(result[part.PerformerID], *part)
	}
	return result, rows.Err()
}

func scanPerformer(row scanner) (*Performer, error) {
	var (
		performer Performer
		createdAt sql.NullString
	)
	if err := row.Scan(&performer.ID, &performer.Name, &createdAt); err != nil {
		return nil, err
	}
	performer.CreatedAt = parseTimeOrZero(createdAt.String)
	return &performer, nil
}
