// Package settings loads the studio settings document: colour management
// for the Nuke host (OCIO config, file rules, required and override node
// knobs, read-node colourspace rules), per-family creator defaults, and
// publish plugin toggles.
//
// Documents are YAML or TOML, chosen by extension, and are validated once at
// load time. Consumers only ever see a validated *Settings.
package settings
