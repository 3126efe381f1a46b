package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dccpub/internal/assetdb"
	"dccpub/internal/attrdef"
	"dccpub/internal/create"
	"dccpub/internal/instance"
	"dccpub/internal/services"
)

func (w *workspace) creators() (*create.Registry, error) {
	return create.Builtin(create.Deps{
		Store:    w.session,
		Assets:   assetdb.NewCached(w.assets),
		Adapter:  w.scene,
		Settings: w.settings,
		Project:  w.cfg.Project.Name,
		Logger:   w.logger,
	}, w.cfg.Editorial.EDLFallbackRate)
}

type familyRow struct {
	Family     string `json:"family"`
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Host       string `json:"host"`
	Current    bool   `json:"current_host"`
}

func newFamiliesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "families [family]",
		Short: "List the families that can be created",
		Long: `List the families that can be created. With a family argument, list the
options its creator accepts through "dccpub create --option".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace) error {
				reg, err := ws.creators()
				if err != nil {
					return err
				}
				if len(args) == 1 {
					c, ok := reg.ForFamily(args[0])
					if !ok {
						return fmt.Errorf("no creator for family %q", args[0])
					}
					return printCreatorOptions(cmd, ctx.JSONMode(), c)
				}
				var rows []familyRow
				for _, c := range reg.UserCreators() {
					rows = append(rows, familyRow{
						Family:     c.Family(),
						Identifier: c.Identifier(),
						Label:      c.Label(),
						Host:       c.Host(),
						Current:    c.Host() == ws.cfg.Host.Name,
					})
				}
				if ctx.JSONMode() {
					if rows == nil {
						rows = []familyRow{}
					}
					return writeJSON(cmd, rows)
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No creators enabled")
					return nil
				}
				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					hostLabel := r.Host
					if r.Current {
						hostLabel += " *"
					}
					table = append(table, []string{r.Family, r.Label, hostLabel, r.Identifier})
				}
				fmt.Fprint(out, renderTable([]string{"Family", "Label", "Host", "Identifier"}, table, nil))
				fmt.Fprintf(out, "* current host (%s)\n", ws.cfg.Host.Name)
				return nil
			})
		},
	}
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		variant  string
		subset   string
		asset    string
		task     string
		options  []string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "create <family>",
		Short: "Register a new instance in the current scene",
		Long: `Register a new instance with the creator of <family>.

Creator options are passed as --option key=value and are checked against the
creator's pre-create attributes. Use "dccpub families" to list families.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseOptions(options)
			if err != nil {
				return err
			}
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace) error {
				reg, err := ws.creators()
				if err != nil {
					return err
				}
				family := strings.TrimSpace(args[0])
				creator, ok := reg.ForFamily(family)
				if !ok {
					return fmt.Errorf("no creator for family %q (available: %s)", family, strings.Join(reg.Families(), ", "))
				}
				if creator.Host() != ws.cfg.Host.Name {
					return fmt.Errorf("family %q is created in %s, current host is %s", family, creator.Host(), ws.cfg.Host.Name)
				}
				defs, err := creator.PreCreateAttrDefs()
				if err != nil {
					return err
				}
				if err := defs.Validate(raw); err != nil {
					return err
				}

				name := strings.TrimSpace(subset)
				if name == "" {
					name = instance.SubsetName(family, variant)
				}
				data := map[string]any{
					create.KeyAsset:   asset,
					create.KeyTask:    task,
					create.KeyVariant: variant,
				}
				if inactive {
					data[create.KeyActive] = false
				}

				inst, createErr := creator.Create(cmd.Context(), name, data, raw)
				if inst == nil {
					return createErr
				}
				if err := ws.saveScene(); err != nil {
					return errors.Join(createErr, fmt.Errorf("save scene: %w", err))
				}
				if createErr != nil && services.IsWarning(createErr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", createErr)
					createErr = nil
				}
				if ctx.JSONMode() {
					if err := writeJSON(cmd, newInstanceView(inst)); err != nil {
						return err
					}
					return createErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) %s\n", inst.SubsetName, inst.Family(), inst.ID)
				return createErr
			})
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "main", "Variant used to derive the subset name")
	cmd.Flags().StringVar(&subset, "subset", "", "Explicit subset name")
	cmd.Flags().StringVar(&asset, "asset", "", "Asset the instance belongs to")
	cmd.Flags().StringVar(&task, "task", "", "Task the instance belongs to")
	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "Creator option as key=value (repeatable)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Register the instance disabled for publishing")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

// parseOptions turns key=value pairs into raw creator options. Values stay
// strings; attribute definitions coerce them.
func parseOptions(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q: expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

type optionRow struct {
	Key     string       `json:"key"`
	Label   string       `json:"label"`
	Type    attrdef.Type `json:"type"`
	Default any          `json:"default"`
	Hint    string       `json:"hint,omitempty"`
}

// optionHint summarizes what a definition accepts.
func optionHint(def attrdef.Definition) string {
	switch d := def.(type) {
	case *attrdef.Enum:
		return strings.Join(d.Options(), " ")
	case *attrdef.Text:
		hint := d.PlaceholderText()
		if d.IsMultiline() {
			hint = strings.TrimSpace(hint + " (multi-line)")
		}
		return hint
	case *attrdef.File:
		return strings.Join(d.Extensions(), " ")
	default:
		return ""
	}
}

func printCreatorOptions(cmd *cobra.Command, jsonMode bool, c create.Creator) error {
	defs, err := c.PreCreateAttrDefs()
	if err != nil {
		return err
	}
	rows := make([]optionRow, 0, defs.Len())
	for _, def := range defs.Definitions() {
		rows = append(rows, optionRow{
			Key:     def.Key(),
			Label:   def.Label(),
			Type:    def.Type(),
			Default: def.Default(),
			Hint:    optionHint(def),
		})
	}
	if jsonMode {
		return writeJSON(cmd, rows)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", c.Label(), c.Identifier())
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{r.Key, string(r.Type), fmt.Sprint(r.Default), r.Label, r.Hint})
	}
	fmt.Fprint(out, renderTable([]string{"Option", "Type", "Default", "Label", "Accepts"}, table, nil))
	return nil
}
