package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Hosts lists the host adapters dccpub knows how to drive.
var Hosts = []string{"houdini", "max", "nuke", "traypublisher"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateHost(); err != nil {
		return err
	}
	if err := c.validateEditorial(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.SessionDir == "" {
		return errors.New("paths.session_dir must be set")
	}
	if c.Paths.AssetDBPath == "" {
		return errors.New("paths.asset_db_path must be set")
	}
	return nil
}

func (c *Config) validateHost() error {
	known := false
	for _, name := range Hosts {
		if c.Host.Name == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("host.name must be one of %s (got %q)", strings.Join(Hosts, ", "), c.Host.Name)
	}
	if c.Host.ExportTimeout <= 0 {
		return errors.New("host.export_timeout must be positive (seconds)")
	}
	if scene := c.Host.ScenePath; scene != "" {
		switch strings.ToLower(filepath.Ext(scene)) {
		case ".yaml", ".yml":
		default:
			return fmt.Errorf("host.scene_path must be a .yaml scene document (got %q)", scene)
		}
	}
	return nil
}

func (c *Config) validateEditorial() error {
	if c.Editorial.EDLFallbackRate <= 0 {
		return errors.New("editorial.edl_fallback_rate must be positive")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if strings.ContainsAny(c.Publish.ManifestName, `/\`) {
		return errors.New("publish.manifest_name must be a file name, not a path")
	}
	if c.Publish.StaleStagingHours < 0 {
		return errors.New("publish.stale_staging_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
