// Package pubsub fans frame changes out to subscribers on two topics.
//
// The map topic carries coarse existence changes for clients that track
// frame ids. The record topic carries one mutation with the frame's
// ordinal index for clients that splice an ordered list. Payloads are
// built through validating constructors so an event can never claim to
// be both, or neither.
package pubsub

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Topic names a subscription channel.
type Topic string

const (
	TopicPositionMap    Topic = "POSITION_MAP"
	TopicPositionRecord Topic = "POSITION_RECORD"
)

// Topics lists every topic in publish order.
var Topics = []Topic{TopicPositionMap, TopicPositionRecord}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	return t == TopicPositionMap || t == TopicPositionRecord
}

// ParseTopic accepts the wire names and their camelCase aliases.
func ParseTopic(value string) (Topic, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "position_map", "positionmap":
		return TopicPositionMap, nil
	case "position_record", "positionrecord":
		return TopicPositionRecord, nil
	}
	return "", fmt.Errorf("unknown topic %q", value)
}

// Mutation tags a record event.
type Mutation string

const (
	MutationCreated Mutation = "CREATED"
	MutationUpdated Mutation = "UPDATED"
	MutationDeleted Mutation = "DELETED"
)

// ErrInvalidPayload wraps every constructor rejection.
var ErrInvalidPayload = errors.New("invalid event payload")

// FrameChanges lists frame ids by kind of change.
type FrameChanges struct {
	CreateList []int64 `json:"createList"`
	DeleteList []int64 `json:"deleteList"`
	UpdateList []int64 `json:"updateList"`
}

// MapPayload is the body of a POSITION_MAP event.
type MapPayload struct {
	EditBy string       `json:"editBy"`
	Frame  FrameChanges `json:"frame"`
}

// RecordPayload is the body of a POSITION_RECORD event.
type RecordPayload struct {
	Mutation Mutation `json:"mutation"`
	EditBy   string   `json:"editBy"`
	AddID    []int64  `json:"addID"`
	UpdateID []int64  `json:"updateID"`
	DeleteID []int64  `json:"deleteID"`
	Index    int      `json:"index"`
}

// NewMapPayload builds a map payload. At least one list must be non-empty
// and every id must be positive.
func NewMapPayload(editBy string, changes FrameChanges) (MapPayload, error) {
	total := 0
	for _, list := range [][]int64{changes.CreateList, changes.DeleteList, changes.UpdateList} {
		if err := checkIDs(list); err != nil {
			return MapPayload{}, err
		}
		total += len(list)
	}
	if total == 0 {
		return MapPayload{}, fmt.Errorf("%w: map payload lists no frames", ErrInvalidPayload)
	}
	return MapPayload{
		EditBy: editBy,
		Frame: FrameChanges{
			CreateList: orEmpty(changes.CreateList),
			DeleteList: orEmpty(changes.DeleteList),
			UpdateList: orEmpty(changes.UpdateList),
		},
	}, nil
}

// NewCreatedRecord describes a frame inserted at index.
func NewCreatedRecord(editBy string, frameID int64, index int) (RecordPayload, error) {
	if err := checkIDs([]int64{frameID}); err != nil {
		return RecordPayload{}, err
	}
	if index < 0 {
		return RecordPayload{}, fmt.Errorf("%w: created frame %d needs an index, got %d", ErrInvalidPayload, frameID, index)
	}
	return RecordPayload{
		Mutation: MutationCreated,
		EditBy:   editBy,
		AddID:    []int64{frameID},
		UpdateID: []int64{},
		DeleteID: []int64{},
		Index:    index,
	}, nil
}

// NewUpdatedRecord describes a frame now found at index.
func NewUpdatedRecord(editBy string, frameID int64, index int) (RecordPayload, error) {
	if err := checkIDs([]int64{frameID}); err != nil {
		return RecordPayload{}, err
	}
	if index < 0 {
		return RecordPayload{}, fmt.Errorf("%w: updated frame %d needs an index, got %d", ErrInvalidPayload, frameID, index)
	}
	return RecordPayload{
		Mutation: MutationUpdated,
		EditBy:   editBy,
		AddID:    []int64{},
		UpdateID: []int64{frameID},
		DeleteID: []int64{},
		Index:    index,
	}, nil
}

// NewDeletedRecord describes a removed frame. Deleted frames have no
// position, so the index is always -1.
func NewDeletedRecord(editBy string, frameID int64) (RecordPayload, error) {
	if err := checkIDs([]int64{frameID}); err != nil {
		return RecordPayload{}, err
	}
	return RecordPayload{
		Mutation: MutationDeleted,
		EditBy:   editBy,
		AddID:    []int64{},
		UpdateID: []int64{},
		DeleteID: []int64{frameID},
		Index:    -1,
	}, nil
}

// Event is one published message. Exactly one of Map and Record is set,
// matching Topic.
type Event struct {
	Sequence  uint64         `json:"seq"`
	Topic     Topic          `json:"topic"`
	Timestamp time.Time      `json:"ts"`
	Map       *MapPayload    `json:"map,omitempty"`
	Record    *RecordPayload `json:"record,omitempty"`
}

// MapEvent wraps a map payload.
func MapEvent(p MapPayload) Event {
	return Event{Topic: TopicPositionMap, Map: &p}
}

// RecordEvent wraps a record payload.
func RecordEvent(p RecordPayload) Event {
	return Event{Topic: TopicPositionRecord, Record: &p}
}

// Validate checks that the event's payload matches its topic.
func (e Event) Validate() error {
	switch e.Topic {
	case TopicPositionMap:
		if e.Map == nil || e.Record != nil {
			return fmt.Errorf("%w: %s event must carry only a map payload", ErrInvalidPayload, e.Topic)
		}
	case TopicPositionRecord:
		if e.Record == nil || e.Map != nil {
			return fmt.Errorf("%w: %s event must carry only a record payload", ErrInvalidPayload, e.Topic)
		}
	default:
		return fmt.Errorf("%w: unknown topic %q", ErrInvalidPayload, e.Topic)
	}
	return nil
}

func checkIDs(ids []int64) error {
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: frame id %d", ErrInvalidPayload, id)
		}
	}
	return nil
}

func orEmpty(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
