package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProject()
	if err := c.normalizeHost(); err != nil {
		return err
	}
	c.normalizePublish()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.staging_dir", &c.Paths.StagingDir},
		{"paths.session_dir", &c.Paths.SessionDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.settings_path", &c.Paths.SettingsPath},
		{"paths.asset_db_path", &c.Paths.AssetDBPath},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeProject() {
	c.Project.Name = strings.TrimSpace(c.Project.Name)
	if c.Project.Name == "" {
		if value, ok := os.LookupEnv("DCCPUB_PROJECT"); ok {
			c.Project.Name = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeHost() error {
	if value, ok := os.LookupEnv("DCCPUB_HOST"); ok && strings.TrimSpace(value) != "" {
		c.Host.Name = value
	}
	c.Host.Name = strings.ToLower(strings.TrimSpace(c.Host.Name))
	if c.Host.Name == "" {
		c.Host.Name = defaultHostName
	}
	if scene := strings.TrimSpace(c.Host.ScenePath); scene != "" {
		expanded, err := expandPath(scene)
		if err != nil {
			return fmt.Errorf("host.scene_path: %w", err)
		}
		c.Host.ScenePath = expanded
	}
	args := c.Host.ExportCommand[:0]
	for _, arg := range c.Host.ExportCommand {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Host.ExportCommand = args
	return nil
}

func (c *Config) normalizePublish() {
	c.Publish.ManifestName = strings.TrimSpace(c.Publish.ManifestName)
	if c.Publish.ManifestName == "" {
		c.Publish.ManifestName = defaultManifestName
	}
	plugins := c.Publish.DisabledPlugins[:0]
	for _, name := range c.Publish.DisabledPlugins {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			plugins = append(plugins, trimmed)
		}
	}
	c.Publish.DisabledPlugins = plugins
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
