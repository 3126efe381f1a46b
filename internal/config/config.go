package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"dccpub/internal/textutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	StagingDir   string `toml:"staging_dir"`
	SessionDir   string `toml:"session_dir"`
	LogDir       string `toml:"log_dir"`
	SettingsPath string `toml:"settings_path"`
	AssetDBPath  string `toml:"asset_db_path"`
}

// Project identifies the project instances are published into.
type Project struct {
	Name string `toml:"name"`
}

// Host selects and configures the host adapter.
type Host struct {
	// Name is one of houdini, max, nuke, traypublisher.
	Name string `toml:"name"`
	// ScenePath is the scene document driven by the scene adapter.
	ScenePath string `toml:"scene_path"`
	// ExportCommand, when set, runs an external host process for exports.
	// Arguments may reference the export request with placeholders such as
	// {output}, {request}, {start} and {end}.
	ExportCommand []string `toml:"export_command"`
	// ExportTimeout bounds a single export call in seconds.
	ExportTimeout int `toml:"export_timeout"`
}

// Editorial contains timeline ingest settings.
type Editorial struct {
	// EDLFallbackRate is used for formats that do not embed a frame rate.
	EDLFallbackRate float64 `toml:"edl_fallback_rate"`
}

// Publish contains publish pass settings.
type Publish struct {
	ManifestName      string   `toml:"manifest_name"`
	StaleStagingHours int      `toml:"stale_staging_hours"`
	DisabledPlugins   []string `toml:"disabled_plugins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dccpub.
//
// Configuration sections:
//   - Paths: staging, session, log, settings, and asset database locations
//   - Project: active project name
//   - Host: host adapter selection and export command
//   - Editorial: timeline ingest defaults
//   - Publish: manifest naming, staging retention, disabled optional plugins
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Project   Project   `toml:"project"`
	Host      Host      `toml:"host"`
	Editorial Editorial `toml:"editorial"`
	Publish   Publish   `toml:"publish"`
	Logging   Logging   `toml:"logging"`
}

const defaultConfigPath = "~/.config/dccpub/config.toml"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dccpub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for a session.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.SessionDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.AssetDBPath); strings.TrimSpace(c.Paths.AssetDBPath) != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SessionStorePath returns the sqlite file holding the host context for the
// configured scene, one file per host and scene name.
func (c *Config) SessionStorePath() string {
	name := "untitled"
	if scene := strings.TrimSpace(c.Host.ScenePath); scene != "" {
		name = strings.TrimSuffix(filepath.Base(scene), filepath.Ext(scene))
	}
	return filepath.Join(c.Paths.SessionDir, textutil.SanitizeToken(c.Host.Name)+"-"+textutil.SanitizeToken(name)+".db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
