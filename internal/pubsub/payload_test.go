package pubsub_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"stagehand/internal/pubsub"
)

func TestNewMapPayloadRejectsEmpty(t *testing.T) {
	if _, err := pubsub.NewMapPayload("u1", pubsub.FrameChanges{}); !errors.Is(err, pubsub.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := pubsub.NewMapPayload("u1", pubsub.FrameChanges{CreateList: []int64{0}}); !errors.Is(err, pubsub.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for zero id, got %v", err)
	}
}

func TestMapPayloadEncodesEmptyLists(t *testing.T) {
	p, err := pubsub.NewMapPayload("u1", pubsub.FrameChanges{UpdateList: []int64{4}})
	if err != nil {
		t.Fatalf("NewMapPayload: %v", err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"editBy":"u1","frame":{"createList":[],"deleteList":[],"updateList":[4]}}`
	if string(raw) != want {
		t.Fatalf("got %s, want %s", raw, want)
	}
}

func TestRecordConstructors(t *testing.T) {
	created, err := pubsub.NewCreatedRecord("u1", 5, 1)
	if err != nil {
		t.Fatalf("NewCreatedRecord: %v", err)
	}
	if created.Mutation != pubsub.MutationCreated || created.AddID[0] != 5 || created.Index != 1 {
		t.Fatalf("unexpected created record: %#v", created)
	}
	if _, err := pubsub.NewCreatedRecord("u1", 5, -1); !errors.Is(err, pubsub.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for negative index, got %v", err)
	}

	updated, err := pubsub.NewUpdatedRecord("u2", 6, 0)
	if err != nil {
		t.Fatalf("NewUpdatedRecord: %v", err)
	}
	if updated.Mutation != pubsub.MutationUpdated || updated.UpdateID[0] != 6 || len(updated.AddID) != 0 {
		t.Fatalf("unexpected updated record: %#v", updated)
	}

	deleted, err := pubsub.NewDeletedRecord("u3", 7)
	if err != nil {
		t.Fatalf("NewDeletedRecord: %v", err)
	}
	if deleted.Mutation != pubsub.MutationDeleted || deleted.DeleteID[0] != 7 || deleted.Index != -1 {
		t.Fatalf("unexpected deleted record: %#v", deleted)
	}
}

func TestEventValidate(t *testing.T) {
	mp, _ := pubsub.NewMapPayload("u1", pubsub.FrameChanges{CreateList: []int64{1}})
	rec, _ := pubsub.NewCreatedRecord("u1", 1, 0)

	if err := pubsub.MapEvent(mp).Validate(); err != nil {
		t.Fatalf("map event: %v", err)
	}
	if err := pubsub.RecordEvent(rec).Validate(); err != nil {
		t.Fatalf("record event: %v", err)
	}
	mixed := pubsub.MapEvent(mp)
	mixed.Record = &rec
	if err := mixed.Validate(); !errors.Is(err, pubsub.ErrInvalidPayload) {
		t.Fatalf("expected mixed event to fail, got %v", err)
	}
	wrongTopic := pubsub.RecordEvent(rec)
	wrongTopic.Topic = pubsub.TopicPositionMap
	if err := wrongTopic.Validate(); err == nil {
		t.Fatal("expected topic mismatch to fail")
	}
}

func TestParseTopic(t *testing.T) {
	cases := map[string]pubsub.Topic{
		"positionMap":     pubsub.TopicPositionMap,
		"POSITION_MAP":    pubsub.TopicPositionMap,
		"positionRecord":  pubsub.TopicPositionRecord,
		"position_record": pubsub.TopicPositionRecord,
	}
	for in, want := range cases {
		got, err := pubsub.ParseTopic(in)
		if err != nil || got != want {
			t.Fatalf("ParseTopic(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := pubsub.ParseTopic("lights"); err == nil || !strings.Contains(err.Error(), "lights") {
		t.Fatalf("expected unknown topic error, got %v", err)
	}
}
