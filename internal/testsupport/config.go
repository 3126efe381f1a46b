package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dccpub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Project.Name = Project
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.SessionDir = filepath.Join(base, "sessions")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SettingsPath = filepath.Join(base, "settings.yaml")
	cfgVal.Paths.AssetDBPath = filepath.Join(base, "assets.db")

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

// WithHost selects the host adapter name.
func WithHost(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Host.Name = name
	}
}

// WithScene points the config at a scene document inside the temp dir.
func WithScene(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Host.ScenePath = filepath.Join(b.baseDir, name)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, a dccpub-export stub is written.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"dccpub-export"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
