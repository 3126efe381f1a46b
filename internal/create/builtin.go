package create

import (
	"dccpub/internal/logging"
	"dccpub/internal/settings"
)

// Builtin registers every shipped creator. Creators disabled in the studio
// settings are left out; the clip creator is always registered because the
// editorial creator depends on it.
func Builtin(deps Deps, edlFallbackRate float64) (*Registry, error) {
	if deps.Settings == nil {
		deps.Settings = settings.Default()
	}
	logger := logging.NewComponentLogger(deps.Logger, "create")
	reg := NewRegistry()
	clips := NewEditorialClip(deps)
	if err := reg.RegisterInvisible(clips); err != nil {
		return nil, err
	}
	for _, c := range []Creator{
		NewArnoldROP(deps),
		NewMaxCamera(deps),
		NewNukeWrite(deps),
		NewEditorialSimple(deps, clips, edlFallbackRate),
	} {
		if !deps.Settings.CreatorEnabled(c.Family()) {
			logger.Debug("creator disabled by settings", logging.String("creator", c.Identifier()))
			continue
		}
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
