package create

import (
	"context"
	"fmt"

	"dccpub/internal/assetdb"
	"dccpub/internal/attrdef"
	"dccpub/internal/instance"
)

// MaxCamera creates a camera instance in 3ds Max. The instance node is a
// container whose members are the nodes selected at creation time.
type MaxCamera struct {
	Base
}

// NewMaxCamera returns the 3ds Max camera creator.
func NewMaxCamera(deps Deps) *MaxCamera {
	return &MaxCamera{Base: newBase(deps, "io.openpype.creators.max.camera", "camera", "Camera", "max")}
}

func (c *MaxCamera) PreCreateAttrDefs() (*attrdef.Set, error) {
	return attrdef.NewSet(baseDefs()...)
}

func (c *MaxCamera) InstanceAttrDefs() *attrdef.Set {
	return attrdef.MustSet(
		attrdef.BoolDef(instance.KeyCustomAttrs, "Export custom attributes", false),
	)
}

func (c *MaxCamera) Create(ctx context.Context, subset string, instanceData, preCreate map[string]any) (*instance.Instance, error) {
	if err := c.requireAdapter(); err != nil {
		return nil, err
	}
	defs, err := c.PreCreateAttrDefs()
	if err != nil {
		return nil, err
	}
	options := resolveOptions(defs, preCreate)

	data := cloneData(instanceData)
	members := []string{}
	if optionBool(options, "use_selection") {
		for _, node := range c.deps.Adapter.Selection() {
			members = append(members, string(node))
		}
	}
	data[instance.KeyMembers] = members
	if _, ok := data[instance.KeyCustomAttrs]; !ok {
		data[instance.KeyCustomAttrs] = false
	}

	return c.register(ctx, request{
		subset:  subset,
		data:    data,
		options: options,
		prepare: func(inst *instance.Instance, doc *assetdb.AssetDoc) error {
			start, end := doc.FrameRangeWithHandles()
			inst.Data[instance.KeyFrameStartHandle] = start
			inst.Data[instance.KeyFrameEndHandle] = end
			if doc.FPS > 0 {
				inst.Data[instance.KeyFPS] = doc.FPS
			}
			return nil
		},
		mutate: func(_ context.Context, inst *instance.Instance) error {
			return c.buildContainer(inst, members)
		},
	})
}

func (c *MaxCamera) buildContainer(inst *instance.Instance, members []string) error {
	a := c.deps.Adapter
	node, err := a.CreateNode("", "Container", inst.SubsetName)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	inst.InstanceNode = string(node)
	if err := c.imprint(node, inst); err != nil {
		return fmt.Errorf("imprint %s: %w", node, err)
	}
	if err := a.SetParameters(node, map[string]any{"members": members}); err != nil {
		return fmt.Errorf("set members on %s: %w", node, err)
	}
	return lockIdentity(a, node)
}
