// Package timeline keeps frame starts unique and derives each frame's
// ordinal position among all frames sorted by start.
package timeline

import (
	"context"
	"fmt"

	"stagehand/internal/store"
)

// Store is the read access the coordinator needs.
type Store interface {
	FramesByStart(ctx context.Context, start int64) ([]store.PositionFrame, error)
	ListFrames(ctx context.Context) ([]store.PositionFrame, error)
}

// OverlapError reports a start already taken by another frame.
type OverlapError struct {
	Start   int64
	FrameID int64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("Start Time %d overlapped! (Overlapped frameID: %d)", e.Start, e.FrameID)
}

// ErrorKind classifies the error for transport mapping.
func (e *OverlapError) ErrorKind() string { return "overlap" }

// NoExclusion validates a start without exempting any frame.
const NoExclusion int64 = 0

// Coordinator answers ordering questions against committed store state.
type Coordinator struct {
	store Store
}

// New builds a Coordinator over st.
func New(st Store) *Coordinator {
	return &Coordinator{store: st}
}

// ValidateStart rejects start when a frame other than excludeID already
// uses it.
func (c *Coordinator) ValidateStart(ctx context.Context, start, excludeID int64) error {
	frames, err := c.store.FramesByStart(ctx, start)
	if err != nil {
		return fmt.Errorf("validate start %d: %w", start, err)
	}
	for _, frame := range frames {
		if frame.ID != excludeID {
			return &OverlapError{Start: start, FrameID: frame.ID}
		}
	}
	return nil
}

// IndexOf returns the zero-based position of frameID among frames ordered
// ascending by start, or -1 when the frame is absent.
func (c *Coordinator) IndexOf(ctx context.Context, frameID int64) (int, error) {
	frames, err := c.store.ListFrames(ctx)
	if err != nil {
		return -1, fmt.Errorf("index of frame %d: %w", frameID, err)
	}
	return indexIn(frames, frameID), nil
}

// OrderedIDs returns every frame id ascending by start.
func (c *Coordinator) OrderedIDs(ctx context.Context) ([]int64, error) {
	frames, err := c.store.ListFrames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list frame ids: %w", err)
	}
	ids := make([]int64, 0, len(frames))
	for _, frame := range frames {
		ids = append(ids, frame.ID)
	}
	return ids, nil
}

// Ordered returns every frame ascending by start.
func (c *Coordinator) Ordered(ctx context.Context) ([]store.PositionFrame, error) {
	frames, err := c.store.ListFrames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	return frames, nil
}

// indexIn expects frames already sorted by start then id.
func indexIn(frames []store.PositionFrame, frameID int64) int {
	for i, frame := range frames {
		if frame.ID == frameID {
			return i
		}
	}
	return -1
}
