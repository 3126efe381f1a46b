package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dccpub/internal/assetdb"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage the project asset database",
	}

	assetsCmd.AddCommand(newAssetsAddCommand(ctx))
	assetsCmd.AddCommand(newAssetsListCommand(ctx))
	assetsCmd.AddCommand(newAssetsRemoveCommand(ctx))

	return assetsCmd
}

func (c *commandContext) withAssets(ctx context.Context, fn func(db *assetdb.SQLite, project string) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Project.Name == "" {
		return errors.New("project.name is not configured (set it or export DCCPUB_PROJECT)")
	}
	db, err := assetdb.Open(ctx, cfg.Paths.AssetDBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, cfg.Project.Name)
}

func newAssetsAddCommand(ctx *commandContext) *cobra.Command {
	var (
		tasks       []string
		fps         float64
		frameStart  int
		frameEnd    int
		handleStart int
		handleEnd   int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace an asset of the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if frameEnd < frameStart {
				return fmt.Errorf("frame end %d is before frame start %d", frameEnd, frameStart)
			}
			if fps <= 0 {
				return fmt.Errorf("fps must be positive, got %v", fps)
			}
			return ctx.withAssets(cmd.Context(), func(db *assetdb.SQLite, project string) error {
				doc, err := db.Upsert(cmd.Context(), assetdb.AssetDoc{
					Project:     project,
					Name:        args[0],
					Tasks:       tasks,
					FPS:         fps,
					FrameStart:  frameStart,
					FrameEnd:    frameEnd,
					HandleStart: handleStart,
					HandleEnd:   handleEnd,
				})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved asset %s/%s (%d tasks)\n", doc.Project, doc.Name, len(doc.Tasks))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&tasks, "task", nil, "Task names (repeatable or comma separated)")
	cmd.Flags().Float64Var(&fps, "fps", 25, "Frame rate")
	cmd.Flags().IntVar(&frameStart, "frame-start", 1001, "First frame")
	cmd.Flags().IntVar(&frameEnd, "frame-end", 1100, "Last frame")
	cmd.Flags().IntVar(&handleStart, "handle-start", 0, "Head handle in frames")
	cmd.Flags().IntVar(&handleEnd, "handle-end", 0, "Tail handle in frames")
	return cmd
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List assets of the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAssets(cmd.Context(), func(db *assetdb.SQLite, project string) error {
				docs, err := db.List(cmd.Context(), project)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if docs == nil {
						docs = []*assetdb.AssetDoc{}
					}
					return writeJSON(cmd, docs)
				}
				out := cmd.OutOrStdout()
				if len(docs) == 0 {
					fmt.Fprintf(out, "No assets in project %s\n", project)
					return nil
				}
				rows := make([][]string, 0, len(docs))
				for _, doc := range docs {
					rows = append(rows, []string{
						doc.Name,
						strings.Join(doc.Tasks, ", "),
						strconv.FormatFloat(doc.FPS, 'f', -1, 64),
						fmt.Sprintf("%d-%d", doc.FrameStart, doc.FrameEnd),
						fmt.Sprintf("%d/%d", doc.HandleStart, doc.HandleEnd),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Asset", "Tasks", "FPS", "Frames", "Handles"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newAssetsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an asset of the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAssets(cmd.Context(), func(db *assetdb.SQLite, project string) error {
				removed, err := db.Delete(cmd.Context(), project, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("asset %s/%s not found", project, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed asset %s/%s\n", project, args[0])
				return nil
			})
		},
	}
}
