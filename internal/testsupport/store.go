package testsupport

import (
	"testing"

	"stagehand/internal/config"
	"stagehand/internal/poscache"
	"stagehand/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MustOpenCache opens the position cache backed by st and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config, st *store.Store) *poscache.Cache {
	t.Helper()

	cache, err := poscache.Open(cfg, st, nil)
	if err != nil {
		t.Fatalf("poscache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}
