package create

import (
	"context"
	"fmt"

	"dccpub/internal/attrdef"
	"dccpub/internal/instance"
)

// RenderTargets are where a Nuke write instance gets its frames from.
var RenderTargets = []string{"local", "frames", "frames_farm", "farm"}

// writeRenderPlugin is the settings plugin name whose node presets apply.
const writeRenderPlugin = "CreateWriteRender"

// NukeWrite creates a Write node in Nuke configured from the node presets in
// the imageio settings.
type NukeWrite struct {
	Base
}

// NewNukeWrite returns the Nuke render write creator.
func NewNukeWrite(deps Deps) *NukeWrite {
	return &NukeWrite{Base: newBase(deps, "create_write_render", "render", "Render (write)", "nuke")}
}

func (c *NukeWrite) PreCreateAttrDefs() (*attrdef.Set, error) {
	return attrdef.NewSet(append(baseDefs(),
		attrdef.EnumDef("render_target", "Render target", RenderTargets, "local"),
	)...)
}

func (c *NukeWrite) Create(ctx context.Context, subset string, instanceData, preCreate map[string]any) (*instance.Instance, error) {
	if err := c.requireAdapter(); err != nil {
		return nil, err
	}
	defs, err := c.PreCreateAttrDefs()
	if err != nil {
		return nil, err
	}
	options := resolveOptions(defs, preCreate)

	data := cloneData(instanceData)
	target := optionString(options, "render_target")
	data["render_target"] = target
	data[instance.KeyFarm] = target == "farm" || target == "frames_farm"

	return c.register(ctx, request{
		subset:  subset,
		data:    data,
		options: options,
		mutate: func(_ context.Context, inst *instance.Instance) error {
			return c.buildWrite(inst)
		},
	})
}

func (c *NukeWrite) buildWrite(inst *instance.Instance) error {
	a := c.deps.Adapter
	node, err := a.CreateNode("", "Write", inst.SubsetName)
	if err != nil {
		return fmt.Errorf("create write node: %w", err)
	}
	inst.InstanceNode = string(node)
	if err := c.imprint(node, inst); err != nil {
		return fmt.Errorf("imprint %s: %w", node, err)
	}
	knobs := c.deps.Settings.NodeKnobs(writeRenderPlugin, "Write", inst.SubsetName)
	params := make(map[string]any, len(knobs)+2)
	for _, knob := range knobs {
		params[knob.Name] = knob.Value()
	}
	ext, _ := params["file_type"].(string)
	if ext == "" {
		ext = "exr"
	}
	file := fmt.Sprintf("%s/renders/nuke/%s/%s.####.%s",
		a.ExpandString("$HIP"), inst.SubsetName, inst.SubsetName, ext)
	params["file"] = file
	// Knob presets win over file rules.
	if _, set := params["colorspace"]; !set {
		if colorspace, ok := c.deps.Settings.Colorspace(file); ok {
			params["colorspace"] = colorspace
		}
	}
	if err := a.SetParameters(node, params); err != nil {
		return fmt.Errorf("apply knobs on %s: %w", node, err)
	}
	return lockIdentity(a, node)
}
