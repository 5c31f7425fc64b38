package api

import "stagehand/internal/pubsub"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// PositionFrame describes a timeline frame in a transport-friendly format.
type PositionFrame struct {
	ID        int64  `json:"id"`
	Start     int64  `json:"start"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Position is one performer's coordinates within a frame.
type Position struct {
	PerformerID int64   `json:"dancerId"`
	Performer   string  `json:"dancerName"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
}

// FrameSnapshot is a frame with its position data.
type FrameSnapshot struct {
	FrameID   int64      `json:"frameId"`
	Start     int64      `json:"start"`
	Positions []Position `json:"positions"`
	BuiltAt   string     `json:"builtAt,omitempty"`
}

// Part describes one performer part.
type Part struct {
	ID          int64  `json:"id"`
	PerformerID int64  `json:"dancerId"`
	Name        string `json:"name"`
	Type        string `json:"type"`
}

// Performer describes one performer with its parts.
type Performer struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
	Parts     []Part `json:"parts"`
}

// FrameIDsResponse lists frame ids ascending by start.
type FrameIDsResponse struct {
	IDs []int64 `json:"ids"`
}

// FrameListResponse lists frames ascending by start.
type FrameListResponse struct {
	Frames []PositionFrame `json:"frames"`
}

// PositionMapResponse lists every frame snapshot ascending by start.
type PositionMapResponse struct {
	Frames []FrameSnapshot `json:"frames"`
}

// PerformerListResponse lists the roster.
type PerformerListResponse struct {
	Performers []Performer `json:"performers"`
}

// EditLock reports a held frame lock.
type EditLock struct {
	FrameID    int64  `json:"frameId"`
	UserID     string `json:"userId"`
	AcquiredAt string `json:"acquiredAt,omitempty"`
}

// DatabaseStatus summarizes record store health.
type DatabaseStatus struct {
	Path         string `json:"path"`
	Readable     bool   `json:"readable"`
	IntegrityOK  bool   `json:"integrityOk"`
	Performers   int    `json:"performers"`
	Parts        int    `json:"parts"`
	Frames       int    `json:"frames"`
	PositionRows int    `json:"positionRows"`
	Error        string `json:"error,omitempty"`
}

// NotifierStatus summarizes the change notifier.
type NotifierStatus struct {
	LastSequence uint64         `json:"lastSequence"`
	Subscribers  map[string]int `json:"subscribers"`
}

// StatusResponse aggregates server runtime information.
type StatusResponse struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	StartedAt    string         `json:"startedAt"`
	Database     DatabaseStatus `json:"database"`
	CacheEntries int            `json:"cacheEntries"`
	EditLocks    []EditLock     `json:"editLocks"`
	Notifier     NotifierStatus `json:"notifier"`
}

// EventsResponse carries a page of notifier events and the cursor for the
// next long-poll. Gap means events after the requested cursor are no
// longer held (Oldest is the first one that is), so the caller should
// reload frame ids before applying further events.
type EventsResponse struct {
	Events []pubsub.Event `json:"events"`
	Next   uint64         `json:"next"`
	Oldest uint64         `json:"oldest"`
	Gap    bool           `json:"gap"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	FrameID int64  `json:"frameID,omitempty"`
	HeldBy  string `json:"heldBy,omitempty"`
}
