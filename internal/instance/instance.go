package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dccpub/internal/services"
)

// Well-known Data keys shared by creators and extractors.
const (
	KeyFrameStartHandle = "frameStartHandle"
	KeyFrameEndHandle   = "frameEndHandle"
	KeyChunkSize        = "chunkSize"
	KeyFarm             = "farm"
	KeyNodeType         = "node_type"
	KeyMembers          = "members"
	KeyCustomAttrs      = "custom_attrs"
	KeyName             = "name"
	KeyFPS              = "fps"
)

// ErrAlreadyProcessed rejects a second representation with a name the
// instance already carries. Re-running an extractor never produces a second
// entry for the same output.
var ErrAlreadyProcessed = errors.New("representation already extracted")

// Instance is one unit of publishable work.
type Instance struct {
	ID                string
	SubsetName        string
	Asset             string
	TaskName          string
	Variant           string
	CreatorIdentifier string
	// InstanceNode is the host handle of the node backing this instance.
	// Empty when the family has no host node (clips, editorial).
	InstanceNode string
	Active       bool
	// CreatorAttributes holds the resolved pre-create options.
	CreatorAttributes map[string]any
	// PublishAttributes holds per-plugin toggles, keyed by plugin name.
	PublishAttributes map[string]map[string]any
	// Data holds creator-specific extra keys (chunkSize, farm, members, ...).
	Data map[string]any

	family          string
	representations []Representation
}

// New builds an active instance with a fresh identifier.
func New(family, subset string, data map[string]any) (*Instance, error) {
	family = strings.TrimSpace(family)
	subset = strings.TrimSpace(subset)
	if family == "" {
		return nil, services.Wrap(services.ErrValidation, "instance", "new", "family is required", nil)
	}
	if subset == "" {
		return nil, services.Wrap(services.ErrValidation, "instance", "new", "subset name is required", nil)
	}
	inst := &Instance{
		ID:                uuid.NewString(),
		SubsetName:        subset,
		Active:            true,
		CreatorAttributes: map[string]any{},
		PublishAttributes: map[string]map[string]any{},
		Data:              map[string]any{},
		family:            family,
	}
	maps.Copy(inst.Data, data)
	return inst, nil
}

// Family returns the family tag. It cannot change after construction.
func (i *Instance) Family() string { return i.family }

// Name is the base name for output files: Data["name"] when a creator set
// one, the subset name otherwise.
func (i *Instance) Name() string {
	if name := i.String(KeyName); name != "" {
		return name
	}
	return i.SubsetName
}

// Label is a human-readable identifier for reports.
func (i *Instance) Label() string {
	if i.Asset == "" {
		return i.SubsetName
	}
	return i.Asset + "/" + i.SubsetName
}

// Representations returns a copy of the appended representations.
func (i *Instance) Representations() []Representation {
	out := make([]Representation, len(i.representations))
	copy(out, i.representations)
	return out
}

// HasRepresentation reports whether a representation with name exists.
func (i *Instance) HasRepresentation(name string) bool {
	for _, rep := range i.representations {
		if rep.Name == name {
			return true
		}
	}
	return false
}

// AddRepresentation validates rep and appends it.
func (i *Instance) AddRepresentation(rep Representation) error {
	return i.AddRepresentations(rep)
}

// AddRepresentations validates every rep against the instance and each other
// and appends them together. Nothing is appended when any rep is rejected.
func (i *Instance) AddRepresentations(reps ...Representation) error {
	claimed := map[string]string{}
	names := map[string]struct{}{}
	for _, existing := range i.representations {
		names[existing.Name] = struct{}{}
		for _, path := range existing.Paths() {
			claimed[path] = existing.Name
		}
	}
	accepted := make([]Representation, 0, len(reps))
	for _, rep := range reps {
		if _, dup := names[rep.Name]; dup {
			return services.Wrap(services.ErrValidation, "instance", "add representation",
				fmt.Sprintf("%s already has a %q representation", i.SubsetName, rep.Name), ErrAlreadyProcessed)
		}
		if err := rep.Validate(); err != nil {
			return services.Wrap(services.ErrValidation, "instance", "add representation",
				fmt.Sprintf("representation %q", rep.Name), err)
		}
		for _, path := range rep.Paths() {
			if owner, ok := claimed[path]; ok {
				return services.Wrap(services.ErrValidation, "instance", "add representation",
					fmt.Sprintf("file %s already belongs to representation %q", path, owner), nil)
			}
		}
		for _, path := range rep.Paths() {
			claimed[path] = rep.Name
		}
		names[rep.Name] = struct{}{}
		rep.Files = append(Files{}, rep.Files...)
		accepted = append(accepted, rep)
	}
	i.representations = append(i.representations, accepted...)
	return nil
}

// Manifest returns the representation manifest for this instance.
func (i *Instance) Manifest() Manifest {
	return Manifest(i.Representations())
}

// Clone returns a deep-enough copy for independent mutation of maps and the
// representation list.
func (i *Instance) Clone() *Instance {
	clone := *i
	clone.CreatorAttributes = maps.Clone(i.CreatorAttributes)
	clone.Data = maps.Clone(i.Data)
	clone.PublishAttributes = make(map[string]map[string]any, len(i.PublishAttributes))
	for plugin, attrs := range i.PublishAttributes {
		clone.PublishAttributes[plugin] = maps.Clone(attrs)
	}
	clone.representations = i.Representations()
	return &clone
}

// String returns a string Data value or "".
func (i *Instance) String(key string) string {
	if v, ok := i.Data[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns a boolean Data value.
func (i *Instance) Bool(key string) (bool, bool) {
	switch v := i.Data[key].(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(v)
		return parsed, err == nil
	default:
		return false, false
	}
}

// Int returns an integral Data value. Floats with a fractional part are
// rejected rather than truncated.
func (i *Instance) Int(key string) (int, bool, error) {
	raw, ok := i.Data[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	v, err := toInt(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}

// Strings returns a list Data value (members, frame files).
func (i *Instance) Strings(key string) []string {
	switch v := i.Data[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// FrameRange returns frameStartHandle..frameEndHandle. Missing values
// default to the single frame [1,1]; a missing end repeats the start.
func (i *Instance) FrameRange() (int, int, error) {
	start, hasStart, err := i.Int(KeyFrameStartHandle)
	if err != nil {
		return 0, 0, err
	}
	end, hasEnd, err := i.Int(KeyFrameEndHandle)
	if err != nil {
		return 0, 0, err
	}
	if !hasStart {
		start = 1
	}
	if !hasEnd {
		end = start
	}
	if end < start {
		return 0, 0, fmt.Errorf("frame range %d-%d is inverted", start, end)
	}
	return start, end, nil
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%v is not a whole frame", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%q is not a whole number", v.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not a whole number", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported value %T", raw)
	}
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// SubsetName derives "<family><Variant>", e.g. arnold_rop + main gives
// arnold_ropMain.
func SubsetName(family, variant string) string {
	family = strings.TrimSpace(family)
	variant = strings.TrimSpace(variant)
	if variant == "" {
		return family
	}
	return family + titleCaser.String(variant)
}
