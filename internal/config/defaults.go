package config

const (
	defaultStagingDir        = "~/.local/share/dccpub/staging"
	defaultSessionDir        = "~/.local/share/dccpub/sessions"
	defaultLogDir            = "~/.local/share/dccpub/logs"
	defaultSettingsPath      = "~/.config/dccpub/settings.yaml"
	defaultAssetDBPath       = "~/.local/share/dccpub/assets.db"
	defaultHostName          = "houdini"
	defaultExportTimeout     = 600
	defaultEDLFallbackRate   = 25
	defaultManifestName      = "manifest.json"
	defaultStaleStagingHours = 72
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:   defaultStagingDir,
			SessionDir:   defaultSessionDir,
			LogDir:       defaultLogDir,
			SettingsPath: defaultSettingsPath,
			AssetDBPath:  defaultAssetDBPath,
		},
		Host: Host{
			Name:          defaultHostName,
			ExportTimeout: defaultExportTimeout,
		},
		Editorial: Editorial{
			EDLFallbackRate: defaultEDLFallbackRate,
		},
		Publish: Publish{
			ManifestName:      defaultManifestName,
			StaleStagingHours: defaultStaleStagingHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
