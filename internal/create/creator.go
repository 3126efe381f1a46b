package create

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"dccpub/internal/assetdb"
	"dccpub/internal/attrdef"
	"dccpub/internal/host"
	"dccpub/internal/hostctx"
	"dccpub/internal/instance"
	"dccpub/internal/logging"
	"dccpub/internal/services"
	"dccpub/internal/settings"
)

// Instance data keys consumed by Base rather than stored in Instance.Data.
const (
	KeyAsset             = "asset"
	KeyTask              = "task"
	KeyVariant           = "variant"
	KeyActive            = "active"
	KeyCreatorAttributes = "creator_attributes"
)

// Plugin is the identity shared by visible and invisible creators.
type Plugin interface {
	Identifier() string
	Family() string
	Label() string
	Host() string
}

// Creator is a user-invocable creator.
type Creator interface {
	Plugin
	Create(ctx context.Context, subset string, instanceData, preCreate map[string]any) (*instance.Instance, error)
	PreCreateAttrDefs() (*attrdef.Set, error)
	InstanceAttrDefs() *attrdef.Set
}

// InvisibleCreator is only called by other creators.
type InvisibleCreator interface {
	Plugin
	Create(ctx context.Context, instanceData, sourceData map[string]any) (*instance.Instance, error)
}

// Deps are the collaborators shared by every creator.
type Deps struct {
	Store    hostctx.Store
	Assets   assetdb.Database
	Adapter  host.Adapter
	Settings *settings.Settings
	Project  string
	Logger   *slog.Logger
}

func (d Deps) normalized() Deps {
	if d.Settings == nil {
		d.Settings = settings.Default()
	}
	d.Logger = logging.NewComponentLogger(d.Logger, "create")
	return d
}

// Base carries the identity of a creator and the shared create flow.
type Base struct {
	deps       Deps
	identifier string
	family     string
	label      string
	hostName   string
}

func newBase(deps Deps, identifier, family, label, hostName string) Base {
	return Base{
		deps:       deps.normalized(),
		identifier: identifier,
		family:     family,
		label:      label,
		hostName:   hostName,
	}
}

func (b *Base) Identifier() string { return b.identifier }
func (b *Base) Family() string     { return b.family }
func (b *Base) Label() string      { return b.label }
func (b *Base) Host() string       { return b.hostName }

// InstanceAttrDefs is empty unless a creator overrides it.
func (b *Base) InstanceAttrDefs() *attrdef.Set { return attrdef.MustSet() }

// baseDefs are the pre-create options every host creator offers.
func baseDefs() []attrdef.Definition {
	return []attrdef.Definition{
		attrdef.BoolDef("use_selection", "Use selection", false),
	}
}

// request is one pass through Base.register.
type request struct {
	subset  string
	data    map[string]any
	options map[string]any
	// prepare runs after asset resolution and before registration.
	prepare func(inst *instance.Instance, doc *assetdb.AssetDoc) error
	// mutate changes the host scene after registration.
	mutate func(ctx context.Context, inst *instance.Instance) error
}

// resolveOptions applies defs to raw pre-create values.
func resolveOptions(defs *attrdef.Set, raw map[string]any) map[string]any {
	if defs == nil {
		return maps.Clone(raw)
	}
	return defs.Resolve(raw)
}

func (b *Base) register(ctx context.Context, req request) (*instance.Instance, error) {
	subset := strings.TrimSpace(req.subset)
	if subset == "" {
		return nil, services.Wrap(services.ErrValidation, "create", b.identifier, "subset name is required", nil)
	}
	data := cloneData(req.data)
	asset := takeString(data, KeyAsset)
	task := takeString(data, KeyTask)
	variant := takeString(data, KeyVariant)

	doc, err := assetdb.Resolve(ctx, b.deps.Assets, b.deps.Project, asset, task)
	if err != nil {
		return nil, err
	}

	active := true
	if raw, ok := data[KeyActive]; ok {
		delete(data, KeyActive)
		if v, ok := raw.(bool); ok {
			active = v
		}
	}
	creatorAttrs, _ := data[KeyCreatorAttributes].(map[string]any)
	delete(data, KeyCreatorAttributes)

	inst, err := instance.New(b.family, subset, data)
	if err != nil {
		return nil, err
	}
	inst.Asset = doc.Name
	inst.TaskName = task
	inst.Variant = variant
	inst.CreatorIdentifier = b.identifier
	inst.Active = active
	if creatorAttrs != nil {
		inst.CreatorAttributes = maps.Clone(creatorAttrs)
	} else if req.options != nil {
		inst.CreatorAttributes = maps.Clone(req.options)
	}

	if req.prepare != nil {
		if err := req.prepare(inst, doc); err != nil {
			return nil, err
		}
	}

	if err := b.deps.Store.Add(ctx, inst); err != nil {
		return nil, err
	}
	logger := b.deps.Logger.With(
		logging.String(logging.FieldInstanceID, inst.ID),
		logging.String(logging.FieldFamily, inst.Family()),
		logging.String(logging.FieldSubset, inst.SubsetName),
	)
	logger.Info("instance registered",
		logging.String(logging.FieldEventType, "instance_registered"),
		logging.String("creator", b.identifier),
		logging.String("asset", inst.Asset),
	)

	if req.mutate == nil {
		return inst, nil
	}
	if err := req.mutate(ctx, inst); err != nil {
		wrapped := services.Wrap(services.ErrHostMutation, "create", b.identifier,
			fmt.Sprintf("host mutation for %s", inst.SubsetName), err)
		logging.WarnWithContext(logger, "host mutation failed", "host_mutation_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the host scene and remove or recreate the instance"),
			logging.String(logging.FieldImpact, "instance is registered without its host node"),
		)
		return inst, wrapped
	}
	if err := b.deps.Store.Update(ctx, inst.ID, inst); err != nil {
		return inst, err
	}
	return inst, nil
}

// imprint writes the instance identity onto node so the host scene can be
// matched back to its record.
func (b *Base) imprint(node host.Node, inst *instance.Instance) error {
	return b.deps.Adapter.SetParameters(node, map[string]any{
		"id":                 "pyblish.avalon.instance",
		"family":             inst.Family(),
		"subset":             inst.SubsetName,
		"asset":              inst.Asset,
		"instance_id":        inst.ID,
		"creator_identifier": b.identifier,
	})
}

// ensureNode returns the node at path, creating it as nodeType under the
// root when missing.
func (b *Base) ensureNode(path, nodeType string) (host.Node, error) {
	if node, ok := b.deps.Adapter.FindNode(path); ok {
		return node, nil
	}
	return b.deps.Adapter.CreateNode("", nodeType, strings.Trim(path, "/"))
}

func (b *Base) requireAdapter() error {
	if b.deps.Adapter == nil {
		return services.Wrap(services.ErrConfiguration, "create", b.identifier, "no host adapter configured", nil)
	}
	return nil
}

func takeString(data map[string]any, key string) string {
	raw, ok := data[key]
	if !ok {
		return ""
	}
	delete(data, key)
	s, _ := raw.(string)
	return strings.TrimSpace(s)
}

func optionBool(options map[string]any, key string) bool {
	v, _ := options[key].(bool)
	return v
}

func optionString(options map[string]any, key string) string {
	v, _ := options[key].(string)
	return v
}

func cloneData(data map[string]any) map[string]any {
	out := maps.Clone(data)
	if out == nil {
		out = map[string]any{}
	}
	return out
}
