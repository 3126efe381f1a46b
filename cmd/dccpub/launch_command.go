package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dccpub/internal/launch"
)

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "launch <host> -- <executable> [args...]",
		Short: "Start a host application through its prelaunch hooks",
		Long: `Start a host application after the prelaunch hooks registered for it have
adjusted the command line and environment.

The project and host names are exported to the host process as
DCCPUB_PROJECT and DCCPUB_HOST. Use --dry-run to print the prepared command
without starting it.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			hostName := strings.ToLower(strings.TrimSpace(args[0]))
			lc := launch.NewLaunchContext(hostName, args[1:])
			lc.Logger = ctx.Logger()
			lc.Env["DCCPUB_HOST"] = hostName
			if cfg.Project.Name != "" {
				lc.Env["DCCPUB_PROJECT"] = cfg.Project.Name
			}
			if err := launch.Prepare(lc, launch.Builtin()); err != nil {
				return err
			}

			if dryRun {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"host": lc.Host, "args": lc.Args})
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lc.Args, " "))
				return nil
			}

			proc, err := launch.Command(cmd.Context(), lc)
			if err != nil {
				return err
			}
			proc.Stdin = cmd.InOrStdin()
			proc.Stdout = cmd.OutOrStdout()
			proc.Stderr = cmd.ErrOrStderr()
			if err := proc.Run(); err != nil {
				return fmt.Errorf("run %s: %w", lc.Args[0], err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the prepared command instead of running it")
	return cmd
}
