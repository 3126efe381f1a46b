package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dccpub/internal/deps"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report the external binaries dccpub depends on",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			missing := deps.Missing(statuses)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range dependencyLines(statuses, colorize) {
					fmt.Fprintln(out, line)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if s.Available {
			lines = append(lines, renderStatusLine(s.Name, statusOK, fmt.Sprintf("Ready (command: %s)", s.Command), colorize))
			continue
		}
		kind := statusError
		if s.Optional {
			kind = statusWarn
		}
		detail := s.Detail
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(s.Name, kind, detail, colorize))
	}
	return lines
}
