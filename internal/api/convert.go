package api

import (
	"errors"
	"time"

	"stagehand/internal/editlock"
	"stagehand/internal/poscache"
	"stagehand/internal/services"
	"stagehand/internal/store"
	"stagehand/internal/timeline"
)

// FromFrame converts a store frame to its API representation. A nil frame
// yields nil so absent results encode as JSON null.
func FromFrame(frame *store.PositionFrame) *PositionFrame {
	if frame == nil {
		return nil
	}
	dto := &PositionFrame{ID: frame.ID, Start: frame.Start}
	if !frame.CreatedAt.IsZero() {
		dto.CreatedAt = frame.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !frame.UpdatedAt.IsZero() {
		dto.UpdatedAt = frame.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromFrames converts an ordered frame list.
func FromFrames(frames []store.PositionFrame) []PositionFrame {
	out := make([]PositionFrame, 0, len(frames))
	for i := range frames {
		out = append(out, *FromFrame(&frames[i]))
	}
	return out
}

// FromSnapshot converts a cache snapshot. A nil snapshot yields nil.
func FromSnapshot(snap *poscache.Snapshot) *FrameSnapshot {
	if snap == nil {
		return nil
	}
	dto := &FrameSnapshot{
		FrameID:   snap.FrameID,
		Start:     snap.Start,
		Positions: make([]Position, 0, len(snap.Positions)),
	}
	if !snap.BuiltAt.IsZero() {
		dto.BuiltAt = snap.BuiltAt.UTC().Format(dateTimeFormat)
	}
	for _, p := range snap.Positions {
		dto.Positions = append(dto.Positions, Position{
			PerformerID: p.PerformerID,
			Performer:   p.Performer,
			X:           p.X,
			Y:           p.Y,
			Z:           p.Z,
		})
	}
	return dto
}

// FromSnapshots converts the position map.
func FromSnapshots(snaps []poscache.Snapshot) []FrameSnapshot {
	out := make([]FrameSnapshot, 0, len(snaps))
	for i := range snaps {
		out = append(out, *FromSnapshot(&snaps[i]))
	}
	return out
}

// FromPart converts a store part.
func FromPart(part *store.Part) *Part {
	if part == nil {
		return nil
	}
	return &Part{
		ID:          part.ID,
		PerformerID: part.PerformerID,
		Name:        part.Name,
		Type:        string(part.Type),
	}
}

// FromPerformer converts a store performer with its parts.
func FromPerformer(p *store.Performer) *Performer {
	if p == nil {
		return nil
	}
	dto := &Performer{ID: p.ID, Name: p.Name, Parts: make([]Part, 0, len(p.Parts))}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.UTC().Format(dateTimeFormat)
	}
	for i := range p.Parts {
		dto.Parts = append(dto.Parts, *FromPart(&p.Parts[i]))
	}
	return dto
}

// FromPerformers converts the roster.
func FromPerformers(performers []store.Performer) []Performer {
	out := make([]Performer, 0, len(performers))
	for i := range performers {
		out = append(out, *FromPerformer(&performers[i]))
	}
	return out
}

// FromEditLocks converts held locks.
func FromEditLocks(locks []store.EditLock) []EditLock {
	out := make([]EditLock, 0, len(locks))
	for _, l := range locks {
		dto := EditLock{FrameID: l.FrameID, UserID: l.UserID}
		if !l.AcquiredAt.IsZero() {
			dto.AcquiredAt = l.AcquiredAt.UTC().Format(dateTimeFormat)
		}
		out = append(out, dto)
	}
	return out
}

// FromDatabaseHealth converts the store health report.
func FromDatabaseHealth(h store.DatabaseHealth) DatabaseStatus {
	return DatabaseStatus{
		Path:         h.DBPath,
		Readable:     h.DatabaseReadable,
		IntegrityOK:  h.IntegrityCheck,
		Performers:   h.Performers,
		Parts:        h.Parts,
		Frames:       h.Frames,
		PositionRows: h.PositionRows,
		Error:        h.Error,
	}
}

// FromError builds the error body for err.
func FromError(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), Kind: services.Kind(err)}
	var overlap *timeline.OverlapError
	if errors.As(err, &overlap) {
		resp.Error = overlap.Error()
		resp.FrameID = overlap.FrameID
	}
	var conflict *editlock.ConflictError
	if errors.As(err, &conflict) {
		resp.Error = conflict.Error()
		resp.FrameID = conflict.FrameID
		resp.HeldBy = conflict.HeldBy
	}
	return resp
}

// FormatTimestamp renders t the way every API timestamp is rendered.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(dateTimeFormat)
}
