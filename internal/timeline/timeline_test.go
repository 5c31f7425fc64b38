package timeline_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"stagehand/internal/store"
	"stagehand/internal/testsupport"
	"stagehand/internal/timeline"
)

func setup(t *testing.T) (*timeline.Coordinator, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return timeline.New(st), st
}

func TestValidateStart(t *testing.T) {
	coord, st := setup(t)
	ctx := context.Background()

	a, _ := st.CreateFrame(ctx, 10)
	b, _ := st.CreateFrame(ctx, 30)

	cases := []struct {
		name      string
		start     int64
		exclude   int64
		overlapID int64
	}{
		{"free start", 20, timeline.NoExclusion, 0},
		{"taken start", 10, timeline.NoExclusion, a.ID},
		{"taken by excluded frame", 30, b.ID, 0},
		{"taken by other frame while excluding", 10, b.ID, a.ID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := coord.ValidateStart(ctx, tc.start, tc.exclude)
			if tc.overlapID == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var overlap *timeline.OverlapError
			if !errors.As(err, &overlap) {
				t.Fatalf("expected OverlapError, got %v", err)
			}
			if overlap.FrameID != tc.overlapID || overlap.Start != tc.start {
				t.Fatalf("unexpected overlap: %#v", overlap)
			}
		})
	}
}

func TestOverlapErrorMessage(t *testing.T) {
	err := &timeline.OverlapError{Start: 10, FrameID: 3}
	want := "Start Time 10 overlapped! (Overlapped frameID: 3)"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	if err.ErrorKind() != "overlap" {
		t.Fatalf("unexpected kind %q", err.ErrorKind())
	}
}

func TestIndexOfFollowsStartOrder(t *testing.T) {
	coord, st := setup(t)
	ctx := context.Background()

	f10, _ := st.CreateFrame(ctx, 10)
	f30, _ := st.CreateFrame(ctx, 30)
	f20, _ := st.CreateFrame(ctx, 20)

	ids, err := coord.OrderedIDs(ctx)
	if err != nil {
		t.Fatalf("OrderedIDs: %v", err)
	}
	if want := []int64{f10.ID, f20.ID, f30.ID}; !slices.Equal(ids, want) {
		t.Fatalf("OrderedIDs = %v, want %v", ids, want)
	}
	idx, err := coord.IndexOf(ctx, f20.ID)
	if err != nil || idx != 1 {
		t.Fatalf("IndexOf(f20) = %d, %v", idx, err)
	}

	f0, _ := st.CreateFrame(ctx, 0)
	for want, id := range []int64{f0.ID, f10.ID, f20.ID, f30.ID} {
		got, _ := coord.IndexOf(ctx, id)
		if got != want {
			t.Fatalf("after prepend IndexOf(%d) = %d, want %d", id, got, want)
		}
	}

	missing, err := coord.IndexOf(ctx, 99999)
	if err != nil || missing != -1 {
		t.Fatalf("IndexOf(missing) = %d, %v", missing, err)
	}
}

func TestIndexOfRandomStarts(t *testing.T) {
	coord, st := setup(t)
	ctx := context.Background()

	rng := rand.New(rand.NewPCG(1, 2))
	starts := rng.Perm(25)
	byStart := map[int64]int64{}
	for _, s := range starts {
		frame, err := st.CreateFrame(ctx, int64(s*100))
		if err != nil {
			t.Fatalf("CreateFrame: %v", err)
		}
		byStart[frame.Start] = frame.ID
	}
	for start, id := range byStart {
		idx, err := coord.IndexOf(ctx, id)
		if err != nil {
			t.Fatalf("IndexOf: %v", err)
		}
		if int64(idx*100) != start {
			t.Fatalf("frame at %d has index %d", start, idx)
		}
	}
}
