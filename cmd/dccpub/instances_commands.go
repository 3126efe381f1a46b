package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"dccpub/internal/instance"
)

type instanceView struct {
	ID                string                    `json:"id"`
	Family            string                    `json:"family"`
	Subset            string                    `json:"subset"`
	Asset             string                    `json:"asset"`
	Task              string                    `json:"task"`
	Variant           string                    `json:"variant,omitempty"`
	Creator           string                    `json:"creator_identifier"`
	Node              string                    `json:"instance_node,omitempty"`
	Active            bool                      `json:"active"`
	CreatorAttributes map[string]any            `json:"creator_attributes,omitempty"`
	PublishAttributes map[string]map[string]any `json:"publish_attributes,omitempty"`
	Data              map[string]any            `json:"data,omitempty"`
	Representations   []instance.Representation `json:"representations"`
}

func newInstanceView(inst *instance.Instance) instanceView {
	reps := inst.Representations()
	if reps == nil {
		reps = []instance.Representation{}
	}
	return instanceView{
		ID:                inst.ID,
		Family:            inst.Family(),
		Subset:            inst.SubsetName,
		Asset:             inst.Asset,
		Task:              inst.TaskName,
		Variant:           inst.Variant,
		Creator:           inst.CreatorIdentifier,
		Node:              inst.InstanceNode,
		Active:            inst.Active,
		CreatorAttributes: inst.CreatorAttributes,
		PublishAttributes: inst.PublishAttributes,
		Data:              inst.Data,
		Representations:   reps,
	}
}

func newInstancesCommand(ctx *commandContext) *cobra.Command {
	instancesCmd := &cobra.Command{
		Use:     "instances",
		Aliases: []string{"inst"},
		Short:   "Inspect and remove registered instances",
	}

	instancesCmd.AddCommand(newInstancesListCommand(ctx))
	instancesCmd.AddCommand(newInstancesShowCommand(ctx))
	instancesCmd.AddCommand(newInstancesRemoveCommand(ctx))

	return instancesCmd
}

func newInstancesListCommand(ctx *commandContext) *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List instances registered in the current scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace) error {
				list, err := ws.session.List(cmd.Context())
				if err != nil {
					return err
				}
				family = strings.TrimSpace(family)
				views := make([]instanceView, 0, len(list))
				for _, inst := range list {
					if family != "" && inst.Family() != family {
						continue
					}
					views = append(views, newInstanceView(inst))
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No instances registered")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{
						v.ID[:8],
						v.Subset,
						v.Family,
						v.Asset + "/" + v.Task,
						yesNo(v.Active),
						fmt.Sprintf("%d", len(v.Representations)),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Subset", "Family", "Context", "Active", "Reps"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "Only list instances of this family")
	return cmd
}

func newInstancesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace) error {
				inst, err := resolveInstance(cmd, ws, args[0])
				if err != nil {
					return err
				}
				view := newInstanceView(inst)
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID: %s\n", view.ID)
				fmt.Fprintf(out, "Subset: %s\n", view.Subset)
				fmt.Fprintf(out, "Family: %s\n", view.Family)
				fmt.Fprintf(out, "Asset: %s\n", view.Asset)
				fmt.Fprintf(out, "Task: %s\n", view.Task)
				if view.Variant != "" {
					fmt.Fprintf(out, "Variant: %s\n", view.Variant)
				}
				fmt.Fprintf(out, "Creator: %s\n", view.Creator)
				if view.Node != "" {
					fmt.Fprintf(out, "Node: %s\n", view.Node)
				}
				fmt.Fprintf(out, "Active: %s\n", yesNo(view.Active))
				printValues(out, "Creator attributes", view.CreatorAttributes)
				printValues(out, "Data", view.Data)
				if len(view.Representations) > 0 {
					rows := make([][]string, 0, len(view.Representations))
					for _, rep := range view.Representations {
						frames := ""
						if rep.FrameStart != nil && rep.FrameEnd != nil {
							frames = fmt.Sprintf("%d-%d", *rep.FrameStart, *rep.FrameEnd)
						}
						rows = append(rows, []string{rep.Name, rep.Ext, strings.Join(rep.Files, ", "), frames})
					}
					fmt.Fprintln(out, "Representations:")
					fmt.Fprint(out, renderTable([]string{"Name", "Ext", "Files", "Frames"}, rows, nil))
				}
				return nil
			})
		},
	}
}

func newInstancesRemoveCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "remove [id...]",
		Aliases: []string{"rm"},
		Short:   "Remove instances from the host context",
		Long: `Remove instances from the host context.

Only the registered records are removed; scene nodes created for them are
left in place. Use --all to clear every instance of the scene.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("pass instance ids or --all")
			}
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace) error {
				out := cmd.OutOrStdout()
				if all {
					removed, err := ws.session.Clear(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"removed": removed})
					}
					fmt.Fprintf(out, "Removed %d instances\n", removed)
					return nil
				}
				var removed []string
				for _, arg := range args {
					inst, err := resolveInstance(cmd, ws, arg)
					if err != nil {
						return err
					}
					if err := ws.session.Remove(cmd.Context(), inst.ID); err != nil {
						return err
					}
					removed = append(removed, inst.ID)
					if !ctx.JSONMode() {
						fmt.Fprintf(out, "Removed %s (%s)\n", inst.SubsetName, inst.ID)
					}
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": len(removed), "ids": removed})
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every instance")
	return cmd
}

// resolveInstance finds an instance by full id, unique id prefix, or subset
// name.
func resolveInstance(cmd *cobra.Command, ws *workspace, ref string) (*instance.Instance, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("instance id is required")
	}
	list, err := ws.session.List(cmd.Context())
	if err != nil {
		return nil, err
	}
	var matches []*instance.Instance
	for _, inst := range list {
		if inst.ID == ref {
			return inst, nil
		}
		if strings.HasPrefix(inst.ID, ref) || inst.SubsetName == ref {
			matches = append(matches, inst)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no instance matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d instances; use the full id", ref, len(matches))
	}
}

func printValues(out io.Writer, title string, values map[string]any) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, key := range slices.Sorted(maps.Keys(values)) {
		fmt.Fprintf(out, "  %s: %v\n", key, values[key])
	}
}
