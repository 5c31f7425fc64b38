package roster

import (
	"context"
	"errors"
	"fmt"

	"stagehand/internal/logging"
	"stagehand/internal/services"
	"stagehand/internal/store"
)

// PartInput names a part to create.
type PartInput struct {
	Name      string
	Type      string
	Performer string
}

// EditPartInput renames or retypes an existing part.
type EditPartInput struct {
	ID        int64
	Name      string
	Type      string
	Performer string
}

// AddPart creates a part on the named performer.
func (s *Service) AddPart(ctx context.Context, in PartInput) (*store.Part, error) {
	name, kind, err := partFields(in.Name, in.Type)
	if err != nil {
		return nil, err
	}
	performer, err := s.performer(ctx, in.Performer)
	if err != nil {
		return nil, err
	}
	part, err := s.store.CreatePart(ctx, performer.ID, name, kind)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return nil, services.Wrap(services.ErrConflict, "roster", "add part",
				fmt.Sprintf("performer %q already has a part named %q", performer.Name, name), err)
		}
		return nil, fmt.Errorf("add part %q: %w", name, err)
	}
	s.logger.Info("part added",
		logging.Int64("part_id", part.ID),
		logging.String("part", part.Name),
		logging.String("performer", performer.Name),
		logging.String(logging.FieldEventType, "part_added"),
	)
	return part, nil
}

// EditPart updates a part owned by the named performer.
func (s *Service) EditPart(ctx context.Context, in EditPartInput) (*store.Part, error) {
	name, kind, err := partFields(in.Name, in.Type)
	if err != nil {
		return nil, err
	}
	performer, err := s.performer(ctx, in.Performer)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdatePart(ctx, in.ID, performer.ID, name, kind)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return nil, services.Wrap(services.ErrConflict, "roster", "edit part",
				fmt.Sprintf("performer %q already has a part named %q", performer.Name, name), err)
		}
		return nil, fmt.Errorf("edit part %d: %w", in.ID, err)
	}
	if !updated {
		return nil, services.Wrap(services.ErrNotFound, "roster", "edit part",
			fmt.Sprintf("part %d of performer %q", in.ID, performer.Name), nil)
	}
	part, err := s.store.GetPart(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("reload part %d: %w", in.ID, err)
	}
	s.logger.Info("part edited",
		logging.Int64("part_id", in.ID),
		logging.String("part", name),
		logging.String("performer", performer.Name),
		logging.String(logging.FieldEventType, "part_edited"),
	)
	return part, nil
}

// DeletePart removes a part owned by the named performer and returns it.
func (s *Service) DeletePart(ctx context.Context, id int64, performerName string) (*store.Part, error) {
	performer, err := s.performer(ctx, performerName)
	if err != nil {
		return nil, err
	}
	part, err := s.store.GetPart(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load part %d: %w", id, err)
	}
	if part == nil || part.PerformerID != performer.ID {
		return nil, services.Wrap(services.ErrNotFound, "roster", "delete part",
			fmt.Sprintf("part %d of performer %q", id, performer.Name), nil)
	}
	if _, err := s.store.DeletePart(ctx, id, performer.ID); err != nil {
		return nil, fmt.Errorf("delete part %d: %w", id, err)
	}
	s.logger.Info("part deleted",
		logging.Int64("part_id", id),
		logging.String("performer", performer.Name),
		logging.String(logging.FieldEventType, "part_deleted"),
	)
	return part, nil
}

func partFields(name, kind string) (string, store.ControlType, error) {
	name, err := cleanName("part", name)
	if err != nil {
		return "", "", err
	}
	control, err := store.ParseControlType(kind)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "roster", "", err.Error(), nil)
	}
	return name, control, nil
}
