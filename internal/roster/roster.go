// Package roster manages performers and their parts.
//
// Parts are not time-ordered, so part writes take no edit lock. Adding a
// performer links it only to frames created later. Deleting one removes
// its position data from every frame, so it purges the position cache and
// announces every frame as updated on the map topic.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"stagehand/internal/logging"
	"stagehand/internal/pubsub"
	"stagehand/internal/services"
	"stagehand/internal/store"
)

const maxNameLength = 64

// Store is the record store surface used by the roster.
type Store interface {
	CreatePerformer(ctx context.Context, name string) (*store.Performer, error)
	GetPerformerByName(ctx context.Context, name string) (*store.Performer, error)
	ListPerformers(ctx context.Context) ([]store.Performer, error)
	DeletePerformer(ctx context.Context, name string) (bool, error)
	CreatePart(ctx context.Context, performerID int64, name string, kind store.ControlType) (*store.Part, error)
	GetPart(ctx context.Context, id int64) (*store.Part, error)
	UpdatePart(ctx context.Context, id, performerID int64, name string, kind store.ControlType) (bool, error)
	DeletePart(ctx context.Context, id, performerID int64) (bool, error)
	ListFrames(ctx context.Context) ([]store.PositionFrame, error)
}

// Cache is the position cache surface used by the roster.
type Cache interface {
	Purge() error
}

// Publisher accepts notifier events.
type Publisher interface {
	Publish(evt pubsub.Event) (pubsub.Event, error)
}

// Service runs performer and part operations.
type Service struct {
	store    Store
	cache    Cache
	notifier Publisher
	logger   *slog.Logger
}

// NewService wires a Service. logger may be nil.
func NewService(st Store, cache Cache, notifier Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		cache:    cache,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "roster"),
	}
}

func cleanName(kind, name string) (string, error) {
	name = store.NormalizeName(name)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "roster", "", kind+" name is required", nil)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", services.Wrap(services.ErrValidation, "roster", "", fmt.Sprintf("%s name longer than %d characters", kind, maxNameLength), nil)
	}
	return name, nil
}

func (s *Service) performer(ctx context.Context, name string) (*store.Performer, error) {
	name, err := cleanName("performer", name)
	if err != nil {
		return nil, err
	}
	performer, err := s.store.GetPerformerByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup performer %q: %w", name, err)
	}
	if performer == nil {
		return nil, services.Wrap(services.ErrNotFound, "roster", "", fmt.Sprintf("performer %q", name), nil)
	}
	return performer, nil
}
