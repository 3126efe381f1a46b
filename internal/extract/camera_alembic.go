package extract

import (
	"context"
	"fmt"
	"path/filepath"

	"dccpub/internal/host"
	"dccpub/internal/instance"
	"dccpub/internal/logging"
	"dccpub/internal/services"
	"dccpub/internal/textutil"
)

// CameraAlembic exports a 3ds Max camera instance to Alembic.
type CameraAlembic struct{}

func (CameraAlembic) Name() string       { return "ExtractCameraAlembic" }
func (CameraAlembic) Label() string      { return "Extract Alembic Camera" }
func (CameraAlembic) Order() float64     { return ExtractorOrder - 0.1 }
func (CameraAlembic) Families() []string { return []string{"camera"} }
func (CameraAlembic) Hosts() []string    { return []string{"max"} }
func (CameraAlembic) Optional() bool     { return true }

// Process selects the instance members (or the children of the instance
// node when there are none), exports them with refresh suspended, and
// appends an abc representation. Selection and refresh state are restored
// on every path.
func (c CameraAlembic) Process(ctx context.Context, env *Env, inst *instance.Instance) error {
	if !IsActive(env, c, inst) {
		return nil
	}
	if err := alreadyProcessed(c, inst, "abc"); err != nil {
		return err
	}
	if env.Adapter == nil {
		return services.Wrap(services.ErrConfiguration, "extract", c.Name(), "no host adapter configured", nil)
	}
	start, end, err := inst.FrameRange()
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", c.Name(), "frame range", err)
	}
	dir, err := env.StagingDir(inst)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", c.Name(), "staging dir", err)
	}
	filename := textutil.SanitizeFileName(inst.Name()) + ".abc"
	path := filepath.Join(dir, filename)
	custom, _ := inst.Bool(instance.KeyCustomAttrs)
	cfg := host.AlembicConfig(start, end, custom)

	a := env.Adapter
	err = host.WithSuspendedRefresh(a, func() error {
		return host.WithMaintainedSelection(a, func() error {
			nodes, err := exportNodes(a, inst)
			if err != nil {
				return err
			}
			if err := a.Select(nodes...); err != nil {
				return fmt.Errorf("select members: %w", err)
			}
			return a.ExportSelection(ctx, path, cfg)
		})
	})
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", c.Name(), fmt.Sprintf("export %s", path), err)
	}

	rep := instance.Representation{
		Name:       "abc",
		Ext:        "abc",
		Files:      instance.Single(filename),
		StagingDir: dir,
	}.WithFrames(start, end)
	if err := inst.AddRepresentation(rep); err != nil {
		return err
	}
	if env.Logger != nil {
		env.Logger.Info("extracted instance",
			logging.String(logging.FieldEventType, "extract_complete"),
			logging.String("path", path),
			logging.Int("frame_start", start),
			logging.Int("frame_end", end),
		)
	}
	return nil
}

func exportNodes(a host.Adapter, inst *instance.Instance) ([]host.Node, error) {
	var nodes []host.Node
	for _, member := range inst.Strings(instance.KeyMembers) {
		node, ok := a.FindNode(member)
		if !ok {
			return nil, fmt.Errorf("member %s: %w", member, host.ErrNodeNotFound)
		}
		nodes = append(nodes, node)
	}
	if len(nodes) > 0 {
		return nodes, nil
	}
	if inst.InstanceNode == "" {
		return nil, fmt.Errorf("instance %s has no members and no instance node", inst.SubsetName)
	}
	children, err := a.Children(host.Node(inst.InstanceNode), true)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", inst.InstanceNode, err)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("instance %s has nothing to export", inst.SubsetName)
	}
	return children, nil
}
