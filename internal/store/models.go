package store

import (
	"fmt"
	"strings"
	"time"
)

// ControlType tags how a part is driven on stage.
type ControlType string

const (
	ControlLED   ControlType = "LED"
	ControlFiber ControlType = "FIBER"
)

// Valid reports whether t is one of the known control types.
func (t ControlType) Valid() bool {
	switch t {
	case ControlLED, ControlFiber:
		return true
	}
	return false
}

// ParseControlType accepts control types case-insensitively.
func ParseControlType(value string) (ControlType, error) {
	t := ControlType(strings.ToUpper(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown control type %q (want LED or FIBER)", value)
	}
	return t, nil
}

// Performer is one controllable entity on stage.
type Performer struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	Parts     []Part
}

// Part belongs to exactly one performer.
type Part struct {
	ID          int64
	PerformerID int64
	Name        string
	Type        ControlType
}

// PositionFrame is one moment on the choreography timeline.
type PositionFrame struct {
	ID        int64
	Start     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PositionDatum is one performer's spatial data at one frame.
type PositionDatum struct {
	PerformerID   int64
	PerformerName string
	FrameID       int64
	X             float64
	Y             float64
	Z             float64
}

// FrameSnapshot is a frame joined with all of its position data.
type FrameSnapshot struct {
	Frame     PositionFrame
	Positions []PositionDatum
}

// EditLock marks a frame as being edited by one user.
type EditLock struct {
	FrameID    int64
	UserID     string
	AcquiredAt time.Time
}

// FrameDeletion reports what a frame delete removed.
type FrameDeletion struct {
	Frame PositionFrame
	// Disconnected counts rows removed performer by performer.
	Disconnected int64
	// Swept counts rows left over after the disconnect pass.
	Swept int64
}
