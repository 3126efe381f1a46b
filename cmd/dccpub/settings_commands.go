package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dccpub/internal/logging"
	"dccpub/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Studio settings utilities",
	}

	settingsCmd.AddCommand(newSettingsValidateCommand(ctx))
	settingsCmd.AddCommand(newSettingsWatchCommand(ctx))
	settingsCmd.AddCommand(newSettingsInitCommand(ctx))

	return settingsCmd
}

func settingsPath(ctx *commandContext, flag string) (string, error) {
	if path := strings.TrimSpace(flag); path != "" {
		return path, nil
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.SettingsPath, nil
}

func newSettingsValidateCommand(ctx *commandContext) *cobra.Command {
	var pathFlag string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the studio settings document",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := settingsPath(ctx, pathFlag)
			if err != nil {
				return err
			}
			s, found, err := settings.LoadOrDefault(path)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"path":     path,
					"found":    found,
					"creators": len(s.Creators),
					"plugins":  len(s.Publish),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Settings path: %s\n", path)
			if !found {
				fmt.Fprintln(out, "Settings file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Settings valid")
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Settings file (defaults to paths.settings_path)")
	return cmd
}

func newSettingsInitCommand(ctx *commandContext) *cobra.Command {
	var pathFlag string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default studio settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := settingsPath(ctx, pathFlag)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("settings file already exists at %s (use --overwrite to replace it)", path)
				}
			}
			if err := settings.WriteFile(path, settings.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default settings to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Settings file (defaults to paths.settings_path)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing settings file")
	return cmd
}

func newSettingsWatchCommand(ctx *commandContext) *cobra.Command {
	var pathFlag string
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Validate the settings document whenever it changes",
		Long: `Watch the studio settings document and report every reload.

Invalid edits are logged and the last valid document stays in effect. Stop
with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := settingsPath(ctx, pathFlag)
			if err != nil {
				return err
			}
			logger := logging.NewComponentLogger(ctx.Logger(), "settings")
			out := cmd.OutOrStdout()
			return settings.Watch(cmd.Context(), path, debounce, logger, func(s *settings.Settings) {
				if ctx.JSONMode() {
					_ = writeJSON(cmd, map[string]any{
						"path":     path,
						"reloaded": time.Now().UTC(),
						"creators": len(s.Creators),
						"plugins":  len(s.Publish),
					})
					return
				}
				fmt.Fprintf(out, "%s reloaded %s (%d creators, %d plugins)\n",
					time.Now().Format(time.TimeOnly), path, len(s.Creators), len(s.Publish))
			})
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Settings file (defaults to paths.settings_path)")
	cmd.Flags().DurationVar(&debounce, "debounce", settings.DefaultDebounce, "Wait for writes to settle")
	return cmd
}
