package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dccpub/internal/assetdb"
	"dccpub/internal/config"
	"dccpub/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("DCCPUB_HOST", "")
	t.Setenv("DCCPUB_PROJECT", "")
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "dccpub.toml")
	writeTestConfig(t, configPath, cfg)
	seedAssets(t, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func seedAssets(t *testing.T, cfg *config.Config) {
	t.Helper()
	ctx := context.Background()
	db, err := assetdb.Open(ctx, cfg.Paths.AssetDBPath)
	if err != nil {
		t.Fatalf("assetdb.Open: %v", err)
	}
	defer db.Close()
	if _, err := db.Upsert(ctx, testsupport.AssetDoc()); err != nil {
		t.Fatalf("seed asset: %v", err)
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) writeScene(t *testing.T, content string) {
	t.Helper()
	if env.cfg.Host.ScenePath == "" {
		t.Fatal("config has no scene path")
	}
	if err := os.WriteFile(env.cfg.Host.ScenePath, []byte(content), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.configPath)
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("dccpub %s: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, stdout, stderr)
	}
	return stdout
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeJSON(t *testing.T, data string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("decode json: %v\n%s", err, data)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
