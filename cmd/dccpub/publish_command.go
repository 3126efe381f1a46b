package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dccpub/internal/extract"
	"dccpub/internal/publish"
)

// errPublishFailed makes the process exit non-zero after the report printed.
var errPublishFailed = errors.New("publish finished with errors")

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Run the extractors for every registered instance",
		Long: `Run the publish pass for the current scene.

Each active instance is handed to the extractors matching its family and the
configured host. Representations are written to the staging directory of the
instance together with a manifest. A failing instance does not stop the
others; the command exits non-zero when any error was reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace) error {
				report, err := publish.Run(cmd.Context(), publish.Options{
					Logger:   ws.logger,
					Store:    ws.session,
					Registry: extract.Builtin(),
					Env: &extract.Env{
						Adapter:  ws.scene,
						Staging:  ws.staging,
						Settings: ws.settings,
						Logger:   ws.logger,
						Disabled: ws.cfg.Publish.DisabledPlugins,
					},
					Host:         ws.cfg.Host.Name,
					ManifestName: ws.cfg.Publish.ManifestName,
					InstanceIDs:  ids,
				})
				if err != nil && report == nil {
					return err
				}
				if saveErr := ws.saveScene(); saveErr != nil {
					err = errors.Join(err, fmt.Errorf("save scene: %w", saveErr))
				}
				if ctx.JSONMode() {
					if jsonErr := writeJSON(cmd, report); jsonErr != nil {
						return jsonErr
					}
				} else {
					out := cmd.OutOrStdout()
					fmt.Fprint(out, renderReport(report, shouldColorize(out)))
				}
				if err != nil {
					return err
				}
				if report.HasErrors() {
					return errPublishFailed
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "instance", nil, "Only publish these instance ids (repeatable)")
	return cmd
}

func renderReport(report *publish.Report, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Publish "+report.RequestID[:8], colorize) {
		fmt.Fprintln(&b, line)
	}
	if len(report.Instances) == 0 {
		fmt.Fprintln(&b, renderStatusLine("Instances", statusInfo, "nothing to publish", colorize))
		return b.String()
	}
	for _, res := range report.Instances {
		kind, detail := instanceStatus(res)
		fmt.Fprintln(&b, renderStatusLine(res.Subset, kind, detail, colorize))
	}

	var notes []publish.Entry
	for _, e := range report.Entries {
		if e.Level != publish.LevelInfo {
			notes = append(notes, e)
		}
	}
	if len(notes) > 0 {
		fmt.Fprintln(&b)
		for _, line := range renderSectionHeader("Problems", colorize) {
			fmt.Fprintln(&b, line)
		}
		for _, e := range notes {
			writeEntry(&b, e, colorize)
		}
	}

	fmt.Fprintf(&b, "\n%d published, %d failed, %d skipped, %d warnings (%s)\n",
		countInstances(report, func(r publish.InstanceResult) bool { return !r.Failed && !r.Skipped }),
		len(report.Failed()),
		countInstances(report, func(r publish.InstanceResult) bool { return r.Skipped }),
		report.Count(publish.LevelWarning),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return b.String()
}

func instanceStatus(res publish.InstanceResult) (statusKind, string) {
	switch {
	case res.Failed:
		return statusError, res.Family
	case res.Skipped:
		return statusInfo, res.Family + ", skipped"
	default:
		detail := fmt.Sprintf("%s, %d representations", res.Family, res.Representations)
		if res.Manifest != "" {
			detail += " -> " + res.Manifest
		}
		return statusOK, detail
	}
}

func writeEntry(w io.Writer, e publish.Entry, colorize bool) {
	kind := statusWarn
	if e.Level == publish.LevelError {
		kind = statusError
	}
	label := e.Subset
	if e.Plugin != "" {
		label += " " + e.Plugin
	}
	message := e.Message
	if e.ErrorKind != "" {
		message = e.ErrorKind + ": " + message
	}
	fmt.Fprintln(w, renderStatusLine(label, kind, message, colorize))
}

func countInstances(report *publish.Report, match func(publish.InstanceResult) bool) int {
	n := 0
	for _, r := range report.Instances {
		if match(r) {
			n++
		}
	}
	return n
}
