package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stagehand/internal/config"
	"stagehand/internal/frames"
	"stagehand/internal/pubsub"
	"stagehand/internal/roster"
	"stagehand/internal/server"
	"stagehand/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	serverURL  string
	configPath string
	hub        *pubsub.Hub
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("USER", "tester")

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	cache := testsupport.MustOpenCache(t, cfg, st)
	hub := pubsub.NewHub(64, 16, nil, nil)
	t.Cleanup(hub.Close)

	srv, err := server.New(cfg, server.Deps{
		Frames: frames.NewService(st, cache, hub, nil, nil),
		Roster: roster.NewService(st, cache, hub, nil),
		Hub:    hub,
		Store:  st,
		Cache:  cache,
	}, nil)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	configPath := filepath.Join(homeDir, ".config", "stagehand", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, serverURL: ts.URL, configPath: configPath, hub: hub}
}

func runCLI(t *testing.T, args []string, serverURL, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if serverURL != "" {
		flags = append(flags, "--server", serverURL)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[server]\napi_bind = %q\n\n[cache]\nin_memory = true\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Server.APIBind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
