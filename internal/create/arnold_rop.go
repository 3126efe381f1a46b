package create

import (
	"context"
	"fmt"

	"dccpub/internal/attrdef"
	"dccpub/internal/host"
	"dccpub/internal/instance"
)

// ImageFormats are the picture formats an Arnold ROP can write.
var ImageFormats = []string{
	"bmp", "cin", "exr", "jpg", "pic", "pic.gz", "png",
	"rad", "rat", "rta", "sgi", "tga", "tif",
}

const arnoldDefaultExt = "exr"

// ArnoldROP creates an Arnold render output node in Houdini.
type ArnoldROP struct {
	Base
}

// NewArnoldROP returns the Houdini Arnold ROP creator.
func NewArnoldROP(deps Deps) *ArnoldROP {
	return &ArnoldROP{Base: newBase(deps, "io.openpype.creators.houdini.arnold_rop", "arnold_rop", "Arnold ROP", "houdini")}
}

func (c *ArnoldROP) PreCreateAttrDefs() (*attrdef.Set, error) {
	farm := true
	ext := arnoldDefaultExt
	if cs, ok := c.deps.Settings.Creator(c.family); ok {
		if cs.Farm != nil {
			farm = *cs.Farm
		}
		if cs.ImageFormat != "" {
			ext = cs.ImageFormat
		}
	}
	return attrdef.NewSet(append(baseDefs(),
		attrdef.BoolDef("farm", "Submitting to Farm", farm),
		attrdef.EnumDef("image_format", "Image Format Options", ImageFormats, ext),
	)...)
}

func (c *ArnoldROP) chunkSize() int {
	if cs, ok := c.deps.Settings.Creator(c.family); ok && cs.ChunkSize > 0 {
		return cs.ChunkSize
	}
	return 1
}

// Create registers the instance and builds its ROP under /out. The ROP's
// bypass flag decides whether it publishes, so the active key is dropped.
func (c *ArnoldROP) Create(ctx context.Context, subset string, instanceData, preCreate map[string]any) (*instance.Instance, error) {
	if err := c.requireAdapter(); err != nil {
		return nil, err
	}
	defs, err := c.PreCreateAttrDefs()
	if err != nil {
		return nil, err
	}
	options := resolveOptions(defs, preCreate)

	data := cloneData(instanceData)
	delete(data, KeyActive)
	data[instance.KeyNodeType] = "arnold"
	data[instance.KeyChunkSize] = c.chunkSize()
	data[instance.KeyFarm] = optionBool(options, "farm")

	return c.register(ctx, request{
		subset:  subset,
		data:    data,
		options: options,
		mutate: func(_ context.Context, inst *instance.Instance) error {
			return c.buildROP(inst, optionString(options, "image_format"))
		},
	})
}

func (c *ArnoldROP) buildROP(inst *instance.Instance, ext string) error {
	a := c.deps.Adapter
	out, err := c.ensureNode("/out", "ropnet")
	if err != nil {
		return fmt.Errorf("resolve /out: %w", err)
	}
	node, err := a.CreateNode(out, "arnold", inst.SubsetName)
	if err != nil {
		return fmt.Errorf("create arnold node: %w", err)
	}
	inst.InstanceNode = string(node)
	if err := c.imprint(node, inst); err != nil {
		return fmt.Errorf("imprint %s: %w", node, err)
	}
	picture := fmt.Sprintf("%s/pyblish/renders/%s/%s.$F4.%s",
		a.ExpandString("$HIP"), inst.SubsetName, inst.SubsetName, ext)
	params := map[string]any{
		"trange":                1,
		"ar_picture":            picture,
		"ar_exr_half_precision": 1,
	}
	if err := a.SetParameters(node, params); err != nil {
		return fmt.Errorf("set parameters on %s: %w", node, err)
	}
	return lockIdentity(a, node)
}

func lockIdentity(a host.Adapter, node host.Node) error {
	if err := a.LockParameters(node, "family", "id"); err != nil {
		return fmt.Errorf("lock parameters on %s: %w", node, err)
	}
	return nil
}
