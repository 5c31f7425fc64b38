package metrics_test

import (
	"testing"
	"time"

	"stagehand/internal/metrics"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.CacheLookup("hit")
	m.CacheEvicted()
	m.CacheRebuilt(time.Millisecond)
	m.LockAttempt("acquired")
	m.LockReleased("released")
	m.FrameMutation("create", "ok")
	m.EventPublished("POSITION_MAP")
	m.EventDropped("POSITION_MAP")
	m.SubscriberDelta("POSITION_MAP", 1)
	m.HTTPRequest("/api/status", "GET", "200", time.Millisecond)
	if m.Registry() != nil {
		t.Fatal("expected nil registry for nil metrics")
	}
}

func TestCollectorsRegistered(t *testing.T) {
	m := metrics.New()
	m.CacheLookup("hit")
	m.CacheLookup("miss")
	m.LockAttempt("conflict")
	m.FrameMutation("create", "ok")

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	series := map[string]int{}
	for _, family := range families {
		series[family.GetName()] = len(family.GetMetric())
	}
	want := map[string]int{
		"stagehand_poscache_lookups_total": 2,
		"stagehand_editlock_acquire_total": 1,
		"stagehand_frames_mutations_total": 1,
	}
	for name, n := range want {
		if series[name] != n {
			t.Fatalf("%s: expected %d series, got %d", name, n, series[name])
		}
	}
}
