package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"stagehand/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "stagehand")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Cache.Dir != filepath.Join(wantData, "poscache") {
		t.Fatalf("unexpected cache dir: %q", cfg.Cache.Dir)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "stagehand.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Server.APIBind != "127.0.0.1:4000" {
		t.Fatalf("unexpected api bind: %q", cfg.Server.APIBind)
	}
	if cfg.Notify.SubscriberBuffer != config.Default().Notify.SubscriberBuffer {
		t.Fatalf("unexpected subscriber buffer: %d", cfg.Notify.SubscriberBuffer)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfgPath := filepath.Join(t.TempDir(), "stagehand.toml")
	payload := struct {
		Paths  config.Paths  `toml:"paths"`
		Server config.Server `toml:"server"`
		Cache  config.Cache  `toml:"cache"`
	}{
		Paths: config.Paths{DataDir: "~/show"},
		Server: config.Server{
			APIBind:           "0.0.0.0:9000",
			ReadHeaderTimeout: 1,
			WriteTimeout:      2,
			ShutdownTimeout:   3,
			AllowedOrigins:    []string{" http://editor.local ", ""},
		},
		Cache: config.Cache{InMemory: true, GCDiscardRatio: 0.7},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != cfgPath {
		t.Fatalf("expected config %q to be loaded, got %q (exists=%v)", cfgPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "show") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, "show", "logs") {
		t.Fatalf("expected log dir derived from data dir, got %q", cfg.Paths.LogDir)
	}
	if cfg.Server.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Server.APIBind)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://editor.local" {
		t.Fatalf("unexpected origins: %#v", cfg.Server.AllowedOrigins)
	}
	if cfg.Cache.Dir != "" {
		t.Fatalf("expected in-memory cache to clear dir, got %q", cfg.Cache.Dir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "stagehand.toml")
	if err := os.WriteFile(cfgPath, []byte("[server]\napi_bnd = \"x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(cfgPath); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestEnvOverridesAPIBind(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STAGEHAND_API_BIND", "127.0.0.1:4555")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.APIBind != "127.0.0.1:4555" {
		t.Fatalf("expected env api bind, got %q", cfg.Server.APIBind)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bind", func(c *config.Config) { c.Server.APIBind = "nope" }, "server.api_bind"},
		{"history", func(c *config.Config) { c.Notify.HistoryCapacity = 0 }, "notify.history_capacity"},
		{"discard", func(c *config.Config) { c.Cache.GCDiscardRatio = 1 }, "cache.gc_discard_ratio"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
