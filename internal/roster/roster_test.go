package roster_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"stagehand/internal/poscache"
	"stagehand/internal/pubsub"
	"stagehand/internal/roster"
	"stagehand/internal/services"
	"stagehand/internal/store"
	"stagehand/internal/testsupport"
)

type fixture struct {
	svc   *roster.Service
	store *store.Store
	cache *poscache.Cache
	sub   *pubsub.Subscription
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	cache := testsupport.MustOpenCache(t, cfg, st)
	hub := pubsub.NewHub(32, 8, nil, nil)
	t.Cleanup(hub.Close)
	sub, err := hub.Subscribe(pubsub.TopicPositionMap)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	return fixture{
		svc:   roster.NewService(st, cache, hub, nil),
		store: st,
		cache: cache,
		sub:   sub,
	}
}

func TestAddPerformerLeavesExistingFramesAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	frame, _ := f.store.CreateFrame(ctx, 0)
	if _, err := f.cache.Refresh(ctx, frame.ID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	performer, err := f.svc.AddPerformer(ctx, "  alice ", "u1")
	if err != nil {
		t.Fatalf("AddPerformer: %v", err)
	}
	if performer.Name != "alice" {
		t.Fatalf("expected trimmed name, got %q", performer.Name)
	}
	if present, _ := f.cache.Contains(frame.ID); !present {
		t.Fatal("expected cached snapshot to survive adding a performer")
	}
	expectNoEvent(t, f.sub)
	snap, err := f.cache.Get(ctx, frame.ID)
	if err != nil || len(snap.Positions) != 0 {
		t.Fatalf("expected existing frame to stay without alice: %#v err=%v", snap, err)
	}

	later, _ := f.store.CreateFrame(ctx, 500)
	snap, err = f.cache.Get(ctx, later.ID)
	if err != nil || len(snap.Positions) != 1 || snap.Positions[0].Performer != "alice" {
		t.Fatalf("expected later frame to link alice: %#v err=%v", snap, err)
	}

	if _, err := f.svc.AddPerformer(ctx, "alice", "u1"); services.Kind(err) != services.KindConflict {
		t.Fatalf("expected conflict on duplicate, got %v", err)
	}
	if _, err := f.svc.AddPerformer(ctx, "   ", "u1"); services.Kind(err) != services.KindValidation {
		t.Fatalf("expected validation error on blank name, got %v", err)
	}
}

func TestDeletePerformer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddPerformer(ctx, "bob", "u1"); err != nil {
		t.Fatalf("AddPerformer: %v", err)
	}
	frame, _ := f.store.CreateFrame(ctx, 0)
	if snap, err := f.cache.Refresh(ctx, frame.ID); err != nil || len(snap.Positions) != 1 {
		t.Fatalf("Refresh: %#v %v", snap, err)
	}

	deleted, err := f.svc.DeletePerformer(ctx, "bob", "u1")
	if err != nil || deleted.Name != "bob" {
		t.Fatalf("DeletePerformer: %#v %v", deleted, err)
	}
	if present, _ := f.cache.Contains(frame.ID); present {
		t.Fatal("expected cache to be purged")
	}
	select {
	case evt := <-f.sub.Events():
		if !slices.Equal(evt.Map.Frame.UpdateList, []int64{frame.ID}) {
			t.Fatalf("unexpected map event: %#v", evt.Map)
		}
	case <-time.After(time.Second):
		t.Fatal("no map event")
	}
	if _, err := f.svc.DeletePerformer(ctx, "bob", "u1"); services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

type failingCache struct{ purges int }

func (c *failingCache) Purge() error {
	c.purges++
	return errors.New("badger closed")
}

func TestDeletePerformerSurvivesPurgeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	hub := pubsub.NewHub(32, 8, nil, nil)
	t.Cleanup(hub.Close)
	sub, err := hub.Subscribe(pubsub.TopicPositionMap)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cache := &failingCache{}
	svc := roster.NewService(st, cache, hub, nil)
	ctx := context.Background()

	if _, err := svc.AddPerformer(ctx, "bob", "u1"); err != nil {
		t.Fatalf("AddPerformer: %v", err)
	}
	frame, _ := st.CreateFrame(ctx, 0)

	deleted, err := svc.DeletePerformer(ctx, "bob", "u1")
	if err != nil || deleted == nil {
		t.Fatalf("expected committed delete to succeed: %#v %v", deleted, err)
	}
	if cache.purges != 1 {
		t.Fatalf("expected one purge attempt, got %d", cache.purges)
	}
	if p, _ := st.GetPerformerByName(ctx, "bob"); p != nil {
		t.Fatalf("performer still stored: %#v", p)
	}
	select {
	case evt := <-sub.Events():
		if !slices.Equal(evt.Map.Frame.UpdateList, []int64{frame.ID}) {
			t.Fatalf("unexpected map event: %#v", evt.Map)
		}
	case <-time.After(time.Second):
		t.Fatal("no map event")
	}
}

func expectNoEvent(t *testing.T, sub *pubsub.Subscription) {
	t.Helper()
	select {
	case evt := <-sub.Events():
		t.Fatalf("unexpected event: %#v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPartCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddPerformer(ctx, "alice", "u1"); err != nil {
		t.Fatalf("AddPerformer: %v", err)
	}
	if _, err := f.svc.AddPerformer(ctx, "bob", "u1"); err != nil {
		t.Fatalf("AddPerformer: %v", err)
	}

	part, err := f.svc.AddPart(ctx, roster.PartInput{Name: "glove", Type: "led", Performer: "alice"})
	if err != nil {
		t.Fatalf("AddPart: %v", err)
	}
	if part.Type != store.ControlLED {
		t.Fatalf("expected LED, got %q", part.Type)
	}

	cases := []struct {
		name string
		in   roster.PartInput
		kind string
	}{
		{"duplicate", roster.PartInput{Name: "glove", Type: "FIBER", Performer: "alice"}, services.KindConflict},
		{"bad type", roster.PartInput{Name: "boot", Type: "laser", Performer: "alice"}, services.KindValidation},
		{"unknown performer", roster.PartInput{Name: "boot", Type: "LED", Performer: "carol"}, services.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.AddPart(ctx, tc.in); services.Kind(err) != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}

	edited, err := f.svc.EditPart(ctx, roster.EditPartInput{ID: part.ID, Name: "mitt", Type: "FIBER", Performer: "alice"})
	if err != nil {
		t.Fatalf("EditPart: %v", err)
	}
	if edited.Name != "mitt" || edited.Type != store.ControlFiber {
		t.Fatalf("unexpected edited part: %#v", edited)
	}
	if _, err := f.svc.EditPart(ctx, roster.EditPartInput{ID: part.ID, Name: "x", Type: "LED", Performer: "bob"}); services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected not_found editing another performer's part, got %v", err)
	}

	if _, err := f.svc.DeletePart(ctx, part.ID, "bob"); services.Kind(err) != services.KindNotFound {
		t.Fatalf("expected not_found deleting another performer's part, got %v", err)
	}
	deleted, err := f.svc.DeletePart(ctx, part.ID, "alice")
	if err != nil || deleted.ID != part.ID {
		t.Fatalf("DeletePart: %#v %v", deleted, err)
	}
	alice, err := f.svc.Performer(ctx, "alice")
	if err != nil || len(alice.Parts) != 0 {
		t.Fatalf("expected alice to have no parts: %#v %v", alice, err)
	}
}
