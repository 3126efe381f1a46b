package extract

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"dccpub/internal/host"
	"dccpub/internal/instance"
	"dccpub/internal/services"
	"dccpub/internal/settings"
	"dccpub/internal/staging"
)

// ExtractorOrder is the base order of the extraction step.
const ExtractorOrder = 2.0

// Extractor exports an instance and appends a representation.
type Extractor interface {
	Name() string
	Label() string
	Order() float64
	Families() []string
	Hosts() []string
	// Optional extractors can be toggled per instance.
	Optional() bool
	Process(ctx context.Context, env *Env, inst *instance.Instance) error
}

// Env is what an extractor may touch while processing.
type Env struct {
	Adapter  host.Adapter
	Staging  *staging.Allocator
	Settings *settings.Settings
	Logger   *slog.Logger
	// Disabled lists extractor names switched off by configuration.
	Disabled []string
}

// StagingDir returns the staging directory of inst, creating it if needed.
func (e *Env) StagingDir(inst *instance.Instance) (string, error) {
	if e.Staging == nil {
		return "", services.Wrap(services.ErrConfiguration, "extract", "staging dir", "no staging allocator configured", nil)
	}
	return e.Staging.Dir(inst)
}

// IsActive reports whether p should process inst. Inactive instances and
// disabled plugins never run. Optional plugins follow the instance's
// publish_attributes.<name>.active toggle, falling back to the settings
// default.
func IsActive(env *Env, p Extractor, inst *instance.Instance) bool {
	if !inst.Active {
		return false
	}
	var ps settings.PluginSettings
	if env != nil {
		if env.Settings != nil {
			ps = env.Settings.Plugin(p.Name())
		}
		if slices.Contains(env.Disabled, p.Name()) {
			return false
		}
	}
	if ps.Enabled != nil && !*ps.Enabled {
		return false
	}
	optional := p.Optional()
	if ps.Optional != nil {
		optional = *ps.Optional
	}
	if !optional {
		return true
	}
	active := true
	if ps.Active != nil {
		active = *ps.Active
	}
	if attrs, ok := inst.PublishAttributes[p.Name()]; ok {
		if v, ok := attrs["active"].(bool); ok {
			active = v
		}
	}
	return active
}

// Matches reports whether p handles instances of family in hostName.
func Matches(p Extractor, family, hostName string) bool {
	return slices.Contains(p.Families(), family) && slices.Contains(p.Hosts(), hostName)
}

// alreadyProcessed rejects a re-run before any output is written.
func alreadyProcessed(p Extractor, inst *instance.Instance, rep string) error {
	if !inst.HasRepresentation(rep) {
		return nil
	}
	return services.Wrap(services.ErrValidation, "extract", p.Name(),
		fmt.Sprintf("%s already has a %q representation", inst.SubsetName, rep), instance.ErrAlreadyProcessed)
}
