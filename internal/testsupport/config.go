package testsupport

import (
	"path/filepath"
	"testing"

	"stagehand/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The position cache runs in memory unless WithDiskCache is supplied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.APIBind = "127.0.0.1:0"
	cfgVal.Cache.InMemory = true
	cfgVal.Cache.Dir = ""
	cfgVal.Cache.SyncWrites = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDiskCache places the position cache on disk under the test directory.
func WithDiskCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.InMemory = false
		b.cfg.Cache.Dir = filepath.Join(b.baseDir, "poscache")
	}
}

// WithNotifyBuffer overrides the per-subscriber buffer size.
func WithNotifyBuffer(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notify.SubscriberBuffer = size
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
