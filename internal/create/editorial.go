package create

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"dccpub/internal/assetdb"
	"dccpub/internal/attrdef"
	"dccpub/internal/instance"
	"dccpub/internal/services"
	"dccpub/internal/timeline"
)

// Editorial data keys.
const (
	KeySequenceFile     = "sequence_filepath_data"
	KeySequencePath     = "sequence_filepath"
	KeyEditorialCreator = "editorial_creator"
	KeyParentInstanceID = "parent_instance_id"
	KeyShotName         = "shotName"
	KeyClipIn           = "clipIn"
	KeyClipOut          = "clipOut"
	KeySourceIn         = "sourceIn"
	KeySourceOut        = "sourceOut"
	KeyFrameStart       = "frameStart"
	KeyFrameEnd         = "frameEnd"
	KeyHandleStart      = "handleStart"
	KeyHandleEnd        = "handleEnd"
)

// WorkfileStartFrame is the first frame of a shot cut from an editorial.
const WorkfileStartFrame = 1001

// SequenceExtensions are the editorial files the creator accepts.
var SequenceExtensions = []string{".edl", ".xml", ".aaf", ".fcpxml", ".otio"}

// EditorialClip registers one clip instance per shot. It has no host node.
type EditorialClip struct {
	Base
}

// NewEditorialClip returns the invisible clip creator.
func NewEditorialClip(deps Deps) *EditorialClip {
	return &EditorialClip{Base: newBase(deps, "editorial.clip", "clip", "Editorial Clip", "traypublisher")}
}

// Create registers a clip named after sourceData's shotName. instanceData
// carries asset, task and variant.
func (c *EditorialClip) Create(ctx context.Context, instanceData, sourceData map[string]any) (*instance.Instance, error) {
	data := cloneData(instanceData)
	for key, value := range sourceData {
		data[key] = value
	}
	shot, _ := data[KeyShotName].(string)
	return c.register(ctx, request{
		subset: shot,
		data:   data,
		prepare: func(inst *instance.Instance, doc *assetdb.AssetDoc) error {
			start, err := intData(inst, KeyFrameStart)
			if err != nil {
				return err
			}
			end, err := intData(inst, KeyFrameEnd)
			if err != nil {
				return err
			}
			inst.Data[KeyHandleStart] = doc.HandleStart
			inst.Data[KeyHandleEnd] = doc.HandleEnd
			inst.Data[instance.KeyFrameStartHandle] = start - doc.HandleStart
			inst.Data[instance.KeyFrameEndHandle] = end + doc.HandleEnd
			return nil
		},
	})
}

func intData(inst *instance.Instance, key string) (int, error) {
	v, _, err := inst.Int(key)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "create", "editorial.clip", key, err)
	}
	return v, nil
}

// EditorialSimple reads an editorial sequence, registers an editorial
// instance for it and one clip instance per shot.
type EditorialSimple struct {
	Base
	clips        InvisibleCreator
	fallbackRate float64
}

// NewEditorialSimple returns the editorial creator. clips registers the
// per-shot instances. fallbackRate is the frame rate for EDL files; zero
// uses timeline.DefaultEDLRate.
func NewEditorialSimple(deps Deps, clips InvisibleCreator, fallbackRate float64) *EditorialSimple {
	if fallbackRate <= 0 {
		fallbackRate = timeline.DefaultEDLRate
	}
	return &EditorialSimple{
		Base:         newBase(deps, "editorial.simple", "editorial", "Editorial Simple", "traypublisher"),
		clips:        clips,
		fallbackRate: fallbackRate,
	}
}

func (c *EditorialSimple) variants() []string {
	if cs, ok := c.deps.Settings.Creator(c.family); ok && len(cs.DefaultVariants) > 0 {
		return cs.DefaultVariants
	}
	return []string{"main", "review"}
}

func sequenceDef() *attrdef.File {
	return attrdef.FileDef(KeySequenceFile, "Filepath", SequenceExtensions)
}

func (c *EditorialSimple) InstanceAttrDefs() *attrdef.Set {
	return attrdef.MustSet(sequenceDef())
}

func (c *EditorialSimple) PreCreateAttrDefs() (*attrdef.Set, error) {
	variants := c.variants()
	return attrdef.NewSet(
		sequenceDef(),
		attrdef.EnumDef(KeyVariant, "Variant", variants, variants[0]),
	)
}

func (c *EditorialSimple) Create(ctx context.Context, subset string, instanceData, preCreate map[string]any) (*instance.Instance, error) {
	defs, err := c.PreCreateAttrDefs()
	if err != nil {
		return nil, err
	}
	options := resolveOptions(defs, preCreate)
	path := optionString(options, KeySequenceFile)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "create", c.identifier,
			"an editorial file (.edl, .xml, .aaf, .fcpxml or .otio) is required", nil)
	}

	var hint *float64
	if strings.EqualFold(filepath.Ext(path), ".edl") {
		hint = timeline.Rate(c.fallbackRate)
	}
	tl, err := timeline.ReadFile(path, hint)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "create", c.identifier,
			fmt.Sprintf("read editorial %s", path), err)
	}

	data := cloneData(instanceData)
	if v, _ := data[KeyVariant].(string); strings.TrimSpace(v) == "" {
		data[KeyVariant] = optionString(options, KeyVariant)
	}
	data[KeyCreatorAttributes] = options
	data[KeyEditorialCreator] = true
	data[KeySequencePath] = path
	data[instance.KeyFPS] = tl.Rate

	inst, err := c.register(ctx, request{subset: subset, data: data, options: options})
	if err != nil {
		return nil, err
	}

	clipData := map[string]any{
		KeyAsset:   inst.Asset,
		KeyTask:    inst.TaskName,
		KeyVariant: inst.Variant,
	}
	var errs []error
	for _, shot := range tl.Shots {
		frameStart := WorkfileStartFrame
		source := map[string]any{
			KeyShotName:         shot.Name,
			KeyClipIn:           shot.Start,
			KeyClipOut:          shot.End - 1,
			KeySourceIn:         shot.SourceStart,
			KeySourceOut:        shot.SourceEnd - 1,
			KeyFrameStart:       frameStart,
			KeyFrameEnd:         frameStart + shot.Duration() - 1,
			instance.KeyFPS:     tl.Rate,
			KeyParentInstanceID: inst.ID,
		}
		if shot.Reel != "" {
			source["reel"] = shot.Reel
		}
		if _, err := c.clips.Create(ctx, clipData, source); err != nil {
			errs = append(errs, fmt.Errorf("shot %s: %w", shot.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return inst, err
	}
	return inst, nil
}
