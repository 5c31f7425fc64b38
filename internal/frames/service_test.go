package frames_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"stagehand/internal/editlock"
	"stagehand/internal/frames"
	"stagehand/internal/poscache"
	"stagehand/internal/pubsub"
	"stagehand/internal/services"
	"stagehand/internal/store"
	"stagehand/internal/testsupport"
	"stagehand/internal/timeline"
)

type harness struct {
	svc       *frames.Service
	store     *store.Store
	cache     *poscache.Cache
	hub       *pubsub.Hub
	mapSub    *pubsub.Subscription
	recordSub *pubsub.Subscription
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return newHarnessWithStore(t, st, st)
}

func newHarnessWithStore(t *testing.T, st *store.Store, svcStore frames.Store) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cache := testsupport.MustOpenCache(t, cfg, st)
	hub := pubsub.NewHub(64, 16, nil, nil)
	t.Cleanup(hub.Close)

	mapSub, err := hub.Subscribe(pubsub.TopicPositionMap)
	if err != nil {
		t.Fatalf("Subscribe map: %v", err)
	}
	recordSub, err := hub.Subscribe(pubsub.TopicPositionRecord)
	if err != nil {
		t.Fatalf("Subscribe record: %v", err)
	}
	return &harness{
		svc:       frames.NewService(svcStore, cache, hub, nil, nil),
		store:     st,
		cache:     cache,
		hub:       hub,
		mapSub:    mapSub,
		recordSub: recordSub,
	}
}

func (h *harness) nextMap(t *testing.T) pubsub.MapPayload {
	t.Helper()
	select {
	case evt := <-h.mapSub.Events():
		return *evt.Map
	case <-time.After(time.Second):
		t.Fatal("no map event")
	}
	return pubsub.MapPayload{}
}

func (h *harness) nextRecord(t *testing.T) pubsub.RecordPayload {
	t.Helper()
	select {
	case evt := <-h.recordSub.Events():
		return *evt.Record
	case <-time.After(time.Second):
		t.Fatal("no record event")
	}
	return pubsub.RecordPayload{}
}

func (h *harness) expectQuiet(t *testing.T) {
	t.Helper()
	select {
	case evt := <-h.mapSub.Events():
		t.Fatalf("unexpected map event %#v", evt)
	case evt := <-h.recordSub.Events():
		t.Fatalf("unexpected record event %#v", evt)
	default:
	}
}

func (h *harness) mustCreate(t *testing.T, start int64) *store.PositionFrame {
	t.Helper()
	frame, err := h.svc.Create(context.Background(), start, "setup")
	if err != nil {
		t.Fatalf("Create(%d): %v", start, err)
	}
	h.nextMap(t)
	h.nextRecord(t)
	return frame
}

func ptr(v int64) *int64 { return &v }

func TestCreateInsertsBetweenAndPublishesIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	f10 := h.mustCreate(t, 10)
	f30 := h.mustCreate(t, 30)

	f20, err := h.svc.Create(ctx, 20, "u1")
	if err != nil {
		t.Fatalf("Create(20): %v", err)
	}
	ids, err := h.svc.FrameIDs(ctx)
	if err != nil {
		t.Fatalf("FrameIDs: %v", err)
	}
	if want := []int64{f10.ID, f20.ID, f30.ID}; !slices.Equal(ids, want) {
		t.Fatalf("FrameIDs = %v, want %v", ids, want)
	}

	mp := h.nextMap(t)
	if mp.EditBy != "u1" || !slices.Equal(mp.Frame.CreateList, []int64{f20.ID}) {
		t.Fatalf("unexpected map payload: %#v", mp)
	}
	rec := h.nextRecord(t)
	if rec.Mutation != pubsub.MutationCreated || rec.Index != 1 || !slices.Equal(rec.AddID, []int64{f20.ID}) {
		t.Fatalf("unexpected record payload: %#v", rec)
	}
	if present, _ := h.cache.Contains(f20.ID); !present {
		t.Fatal("expected cache entry for new frame")
	}
}

func TestCreateOverlapWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	existing := h.mustCreate(t, 10)
	_, err := h.svc.Create(ctx, 10, "u1")
	var overlap *timeline.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if overlap.FrameID != existing.ID {
		t.Fatalf("overlap names %d, want %d", overlap.FrameID, existing.ID)
	}
	frames, _ := h.store.ListFrames(ctx)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	h.expectQuiet(t)
}

func TestCreateRejectsNegativeStart(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), -1, "u1")
	if services.Kind(err) != services.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEditOverlapNamesFrameAndReleasesLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	f10 := h.mustCreate(t, 10)
	f30 := h.mustCreate(t, 30)

	_, err := h.svc.Edit(ctx, frames.EditInput{FrameID: f30.ID, Start: ptr(10)}, "u1")
	var overlap *timeline.OverlapError
	if !errors.As(err, &overlap) || overlap.FrameID != f10.ID {
		t.Fatalf("expected overlap naming %d, got %v", f10.ID, err)
	}
	lock, err := h.store.GetEditLock(ctx, f30.ID)
	if err != nil || lock != nil {
		t.Fatalf("expected no lock after failed edit: lock=%#v err=%v", lock, err)
	}
	h.expectQuiet(t)
}

func TestEditMovesFrameAndPublishesNewIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	f10 := h.mustCreate(t, 10)
	h.mustCreate(t, 30)

	edited, err := h.svc.Edit(ctx, frames.EditInput{FrameID: f10.ID, Start: ptr(40)}, "u2")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.Start != 40 {
		t.Fatalf("expected start 40, got %d", edited.Start)
	}
	mp := h.nextMap(t)
	if !slices.Equal(mp.Frame.UpdateList, []int64{f10.ID}) || mp.EditBy != "u2" {
		t.Fatalf("unexpected map payload: %#v", mp)
	}
	rec := h.nextRecord(t)
	if rec.Mutation != pubsub.MutationUpdated || rec.Index != 1 || !slices.Equal(rec.UpdateID, []int64{f10.ID}) {
		t.Fatalf("unexpected record payload: %#v", rec)
	}
	snap, err := h.svc.Snapshot(ctx, f10.ID)
	if err != nil || snap.Start != 40 {
		t.Fatalf("expected cached start 40: snap=%#v err=%v", snap, err)
	}
	if lock, _ := h.store.GetEditLock(ctx, f10.ID); lock != nil {
		t.Fatalf("lock left behind: %#v", lock)
	}
}

func TestEditToOwnStartIsAllowed(t *testing.T) {
	h := newHarness(t)
	f := h.mustCreate(t, 10)

	if _, err := h.svc.Edit(context.Background(), frames.EditInput{FrameID: f.ID, Start: ptr(10)}, "u1"); err != nil {
		t.Fatalf("Edit to same start: %v", err)
	}
}

func TestEditWhileLockedByAnotherUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	f := h.mustCreate(t, 10)
	if err := h.svc.Locks().Acquire(ctx, f.ID, "u1"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	_, err := h.svc.Edit(ctx, frames.EditInput{FrameID: f.ID, Start: ptr(50)}, "u2")
	var conflict *editlock.ConflictError
	if !errors.As(err, &conflict) || conflict.HeldBy != "u1" {
		t.Fatalf("expected conflict held by u1, got %v", err)
	}
	current, _ := h.store.GetFrame(ctx, f.ID)
	if current.Start != 10 {
		t.Fatalf("rejected edit changed start to %d", current.Start)
	}
	lock, _ := h.store.GetEditLock(ctx, f.ID)
	if lock == nil || lock.UserID != "u1" {
		t.Fatalf("expected u1 to keep the lock, got %#v", lock)
	}
	h.expectQuiet(t)
}

func TestEditMissingFrameReturnsNil(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	frame, err := h.svc.Edit(ctx, frames.EditInput{FrameID: 4242, Start: ptr(5)}, "u1")
	if err != nil || frame != nil {
		t.Fatalf("expected nil result: frame=%#v err=%v", frame, err)
	}
	if lock, _ := h.store.GetEditLock(ctx, 4242); lock != nil {
		t.Fatalf("lock left behind: %#v", lock)
	}
	h.expectQuiet(t)
}

type failingUpdateStore struct {
	*store.Store
}

func (failingUpdateStore) UpdateFrameStart(context.Context, int64, int64) (bool, error) {
	return false, errors.New("disk full")
}

func TestEditStoreFailureReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	h := newHarnessWithStore(t, st, failingUpdateStore{Store: st})
	ctx := context.Background()

	frame, err := st.CreateFrame(ctx, 10)
	if err != nil {
		t.Fatalf("CreateFrame: %v", err)
	}
	_, err = h.svc.Edit(ctx, frames.EditInput{FrameID: frame.ID, Start: ptr(20)}, "u1")
	if err == nil || services.Kind(err) != services.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if lock, _ := st.GetEditLock(ctx, frame.ID); lock != nil {
		t.Fatalf("lock left behind after failed update: %#v", lock)
	}
}

// racingStore reports the first lost writes as unique start violations,
// as if another frame held the start and was deleted before validation
// could see it.
type racingStore struct {
	*store.Store
	losses int
	writes int
}

func (s *racingStore) CreateFrame(ctx context.Context, start int64) (*store.PositionFrame, error) {
	s.writes++
	if s.writes <= s.losses {
		return nil, fmt.Errorf("insert frame at %d: %w", start, store.ErrDuplicateStart)
	}
	return s.Store.CreateFrame(ctx, start)
}

func (s *racingStore) UpdateFrameStart(ctx context.Context, id, start int64) (bool, error) {
	s.writes++
	if s.writes <= s.losses {
		return false, fmt.Errorf("update frame %d to %d: %w", id, start, store.ErrDuplicateStart)
	}
	return s.Store.UpdateFrameStart(ctx, id, start)
}

func TestCreateRetriesAfterVanishedDuplicate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	racing := &racingStore{Store: st, losses: 1}
	h := newHarnessWithStore(t, st, racing)

	frame, err := h.svc.Create(context.Background(), 40, "u1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if frame.Start != 40 || racing.writes != 2 {
		t.Fatalf("expected second write to land: frame=%#v writes=%d", frame, racing.writes)
	}
	h.nextMap(t)
	h.nextRecord(t)
}

func TestRepeatedStartRaceIsRetryableConflict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	existing, err := st.CreateFrame(context.Background(), 10)
	if err != nil {
		t.Fatalf("CreateFrame: %v", err)
	}
	racing := &racingStore{Store: st, losses: 100}
	h := newHarnessWithStore(t, st, racing)
	ctx := context.Background()

	_, err = h.svc.Create(ctx, 40, "u1")
	if services.Kind(err) != services.KindConflict {
		t.Fatalf("expected retryable conflict, got %v", err)
	}
	var overlap *timeline.OverlapError
	if errors.As(err, &overlap) {
		t.Fatalf("conflict must not name a frame: %v", err)
	}
	if racing.writes != 3 {
		t.Fatalf("expected 3 write attempts, got %d", racing.writes)
	}

	racing.writes = 0
	_, err = h.svc.Edit(ctx, frames.EditInput{FrameID: existing.ID, Start: ptr(50)}, "u1")
	if services.Kind(err) != services.KindConflict {
		t.Fatalf("expected retryable conflict on edit, got %v", err)
	}
	if lock, _ := st.GetEditLock(ctx, existing.ID); lock != nil {
		t.Fatalf("lock left behind: %#v", lock)
	}
	if list, _ := st.ListFrames(ctx); len(list) != 1 || list[0].Start != 10 {
		t.Fatalf("unexpected frames after failed writes: %#v", list)
	}
	h.expectQuiet(t)
}

func TestDeleteRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.store.CreatePerformer(ctx, "alice"); err != nil {
		t.Fatalf("CreatePerformer: %v", err)
	}
	f := h.mustCreate(t, 10)

	deleted, err := h.svc.Delete(ctx, f.ID, "u1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted == nil || deleted.ID != f.ID {
		t.Fatalf("unexpected deleted frame: %#v", deleted)
	}
	if count, _ := h.store.CountPositionData(ctx, f.ID); count != 0 {
		t.Fatalf("expected no position rows, got %d", count)
	}
	if present, _ := h.cache.Contains(f.ID); present {
		t.Fatal("expected cache entry to be evicted")
	}
	mp := h.nextMap(t)
	if !slices.Equal(mp.Frame.DeleteList, []int64{f.ID}) {
		t.Fatalf("unexpected map payload: %#v", mp)
	}
	rec := h.nextRecord(t)
	if rec.Mutation != pubsub.MutationDeleted || rec.Index != -1 || !slices.Equal(rec.DeleteID, []int64{f.ID}) {
		t.Fatalf("unexpected record payload: %#v", rec)
	}

	again, err := h.svc.Delete(ctx, f.ID, "u1")
	if err != nil || again != nil {
		t.Fatalf("second delete: frame=%#v err=%v", again, err)
	}
	h.expectQuiet(t)
}

func TestEditPositions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.store.CreatePerformer(ctx, "Zoé"); err != nil {
		t.Fatalf("CreatePerformer: %v", err)
	}
	f := h.mustCreate(t, 10)

	snap, err := h.svc.EditPositions(ctx, f.ID, []frames.PositionInput{{Performer: " Zoé", X: 1.5, Y: 2, Z: -3}}, "u1")
	if err != nil {
		t.Fatalf("EditPositions: %v", err)
	}
	if len(snap.Positions) != 1 || snap.Positions[0].X != 1.5 || snap.Positions[0].Z != -3 {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
	mp := h.nextMap(t)
	if !slices.Equal(mp.Frame.UpdateList, []int64{f.ID}) {
		t.Fatalf("unexpected map payload: %#v", mp)
	}

	_, err = h.svc.EditPositions(ctx, f.ID, []frames.PositionInput{{Performer: "ghost"}}, "u1")
	if services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected not_found for unknown performer, got %v", err)
	}

	if err := h.svc.Locks().Acquire(ctx, f.ID, "u9"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	_, err = h.svc.EditPositions(ctx, f.ID, []frames.PositionInput{{Performer: "Zoé"}}, "u1")
	if services.Kind(err) != services.KindLockConflict {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestPositionMapFollowsStartOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	late := h.mustCreate(t, 900)
	early := h.mustCreate(t, 100)
	if err := h.cache.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	snaps, err := h.svc.PositionMap(ctx)
	if err != nil {
		t.Fatalf("PositionMap: %v", err)
	}
	if len(snaps) != 2 || snaps[0].FrameID != early.ID || snaps[1].FrameID != late.ID {
		t.Fatalf("unexpected order: %#v", snaps)
	}

	at, err := h.svc.FrameAt(ctx, 900)
	if err != nil || at == nil || at.ID != late.ID {
		t.Fatalf("FrameAt(900) = %#v, %v", at, err)
	}
	none, err := h.svc.FrameAt(ctx, 901)
	if err != nil || none != nil {
		t.Fatalf("FrameAt(901) = %#v, %v", none, err)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	h := newHarness(t)
	h.hub.Close()

	frame, err := h.svc.Create(context.Background(), 10, "u1")
	if err != nil {
		t.Fatalf("Create with closed notifier: %v", err)
	}
	if frame == nil {
		t.Fatal("expected frame")
	}
}
