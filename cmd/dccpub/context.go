package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dccpub/internal/assetdb"
	"dccpub/internal/config"
	"dccpub/internal/host/scene"
	"dccpub/internal/hostctx"
	"dccpub/internal/logging"
	"dccpub/internal/settings"
	"dccpub/internal/staging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// JSONMode reports whether --json was passed.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// Logger returns the configured logger. Failures fall back to a no-op logger
// so a broken log directory never blocks a command.
func (c *commandContext) Logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// workspace bundles the collaborators of a host session.
type workspace struct {
	cfg      *config.Config
	logger   *slog.Logger
	settings *settings.Settings
	session  *hostctx.Session
	assets   *assetdb.SQLite
	scene    *scene.Scene
	staging  *staging.Allocator
}

// openWorkspace locks the session for the configured scene and opens the
// asset database. Callers must Close the workspace.
func (c *commandContext) openWorkspace(ctx context.Context) (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.Logger()

	studio, _, err := settings.LoadOrDefault(cfg.Paths.SettingsPath)
	if err != nil {
		return nil, err
	}
	sc, err := loadScene(cfg, logger)
	if err != nil {
		return nil, err
	}
	alloc, err := staging.NewAllocator(cfg.Paths.StagingDir)
	if err != nil {
		return nil, err
	}
	session, err := hostctx.OpenSession(ctx, cfg.SessionStorePath())
	if err != nil {
		if errors.Is(err, hostctx.ErrSessionLocked) {
			return nil, fmt.Errorf("%w; close the other dccpub process editing this scene", err)
		}
		return nil, err
	}
	assets, err := assetdb.Open(ctx, cfg.Paths.AssetDBPath)
	if err != nil {
		session.Close()
		return nil, err
	}
	return &workspace{
		cfg:      cfg,
		logger:   logger,
		settings: studio,
		session:  session,
		assets:   assets,
		scene:    sc,
		staging:  alloc,
	}, nil
}

func (c *commandContext) withWorkspace(ctx context.Context, fn func(*workspace) error) error {
	ws, err := c.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ws)
}

// Close releases the session lock and the asset database.
func (w *workspace) Close() error {
	return errors.Join(w.assets.Close(), w.session.Close())
}

// saveScene persists scene changes when the config names a scene document.
func (w *workspace) saveScene() error {
	if w.cfg.Host.ScenePath == "" {
		return nil
	}
	return w.scene.Save(w.cfg.Host.ScenePath)
}

// loadScene opens the configured scene document, or an empty scene when the
// document does not exist yet.
func loadScene(cfg *config.Config, logger *slog.Logger) (*scene.Scene, error) {
	var opts []scene.Option
	if len(cfg.Host.ExportCommand) > 0 {
		exporter, err := scene.NewCommandExporter(cfg.Host.ExportCommand, cfg.Host.ExportTimeout, scene.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		opts = append(opts, scene.WithExporter(exporter))
	}
	if cfg.Host.ScenePath == "" {
		return scene.New(cfg.Host.Name, opts...), nil
	}
	if _, err := os.Stat(cfg.Host.ScenePath); errors.Is(err, os.ErrNotExist) {
		return scene.New(cfg.Host.Name, opts...), nil
	}
	sc, err := scene.Load(cfg.Host.ScenePath, opts...)
	if err != nil {
		return nil, err
	}
	if sc.Name() != "" && sc.Name() != cfg.Host.Name {
		return nil, fmt.Errorf("scene %s belongs to host %q, config selects %q", cfg.Host.ScenePath, sc.Name(), cfg.Host.Name)
	}
	return sc, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
