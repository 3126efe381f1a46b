package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dccpub/internal/logging"
	"dccpub/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage staging directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staging directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			dirs, err := staging.ListDirectories(stagingDir)
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}
			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"staging_dir":      stagingDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging directories found")
				return nil
			}
			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)

			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				rows = append(rows, []string{dir.Name, formatDuration(age), humanBytes(dir.Size)})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Instance", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), humanBytes(totalSize))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var stale bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove orphaned staging directories",
		Long: `Remove staging directories not associated with any registered instance.

By default, only removes directories named after instances that are no longer
registered in the current scene's session.

Use --stale to remove every directory older than publish.stale_staging_hours
regardless of the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := logging.NewComponentLogger(ctx.Logger(), "staging")

			if stale {
				maxAge := time.Duration(cfg.Publish.StaleStagingHours) * time.Hour
				result := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, logger)
				return printStagingCleanResult(cmd, ctx.JSONMode(), result, "stale")
			}
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace) error {
				list, err := ws.session.List(cmd.Context())
				if err != nil {
					return err
				}
				active := make(map[string]struct{}, len(list))
				for _, inst := range list {
					active[strings.ToLower(inst.ID)] = struct{}{}
				}
				result := staging.CleanOrphaned(cmd.Context(), cfg.Paths.StagingDir, active, logger)
				return printStagingCleanResult(cmd, ctx.JSONMode(), result, "orphaned")
			})
		},
	}

	cmd.Flags().BoolVar(&stale, "stale", false, "Remove directories older than the retention window")

	return cmd
}

func printStagingCleanResult(cmd *cobra.Command, jsonMode bool, result staging.CleanResult, label string) error {
	if jsonMode {
		errs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
		}
		return writeJSON(cmd, map[string]any{
			"removed": len(result.Removed),
			"errors":  errs,
		})
	}
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s directories to clean\n", label)
		return nil
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d %s directories, %d errors\n", len(result.Removed), label, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d %s directories\n", len(result.Removed), label)
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
