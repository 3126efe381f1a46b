package settings

import (
	"fmt"
	"regexp"
)

// Knob types.
const (
	KnobText     = "text"
	KnobBoolean  = "boolean"
	KnobNumber   = "number"
	KnobColorGUI = "color_gui"
)

// Workfile colour management workflows.
const (
	ColorManagementNuke = "Nuke"
	ColorManagementOCIO = "OCIO"
)

// NativeOCIOConfigs lists the OCIO configs bundled with the host.
var NativeOCIOConfigs = []string{
	"nuke-default",
	"spi-vfx",
	"spi-anim",
	"aces_0.1.1",
	"aces_0.7.1",
	"aces_1.0.1",
	"aces_1.0.3",
	"aces_1.1",
	"aces_1.2",
	"studio-config-v1.0.0_aces-v1.3_ocio-v2.1",
	"cg-config-v1.0.0_aces-v1.3_ocio-v2.1",
}

// Settings is the root of the settings document.
type Settings struct {
	ImageIO  ImageIO                    `yaml:"imageio" toml:"imageio" json:"imageio"`
	Creators map[string]CreatorSettings `yaml:"creators,omitempty" toml:"creators,omitempty" json:"creators,omitempty"`
	Publish  map[string]PluginSettings  `yaml:"publish,omitempty" toml:"publish,omitempty" json:"publish,omitempty"`
}

// ImageIO is the host colour management section.
type ImageIO struct {
	ActivateHostColorManagement bool             `yaml:"activate_host_color_management" toml:"activate_host_color_management" json:"activate_host_color_management"`
	OCIOConfig                  OCIOConfig       `yaml:"ocio_config" toml:"ocio_config" json:"ocio_config"`
	FileRules                   FileRules        `yaml:"file_rules" toml:"file_rules" json:"file_rules"`
	Viewer                      ViewProcess      `yaml:"viewer" toml:"viewer" json:"viewer"`
	Baking                      ViewProcess      `yaml:"baking" toml:"baking" json:"baking"`
	Workfile                    WorkfileSettings `yaml:"workfile" toml:"workfile" json:"workfile"`
	Nodes                       NodesSettings    `yaml:"nodes" toml:"nodes" json:"nodes"`
	RegexInputs                 RegexInputs      `yaml:"regex_inputs" toml:"regex_inputs" json:"regex_inputs"`
}

// OCIOConfig optionally overrides the global OCIO config.
type OCIOConfig struct {
	OverrideGlobalConfig bool     `yaml:"override_global_config" toml:"override_global_config" json:"override_global_config"`
	Filepath             []string `yaml:"filepath,omitempty" toml:"filepath,omitempty" json:"filepath,omitempty"`
}

// FileRules assign colourspaces to files by pattern.
type FileRules struct {
	ActivateHostRules bool       `yaml:"activate_host_rules" toml:"activate_host_rules" json:"activate_host_rules"`
	Rules             []FileRule `yaml:"rules,omitempty" toml:"rules,omitempty" json:"rules,omitempty"`
}

// FileRule matches files whose path matches Pattern and, when set, whose
// extension equals Ext.
type FileRule struct {
	Name       string `yaml:"name" toml:"name" json:"name"`
	Pattern    string `yaml:"pattern" toml:"pattern" json:"pattern"`
	Colorspace string `yaml:"colorspace" toml:"colorspace" json:"colorspace"`
	Ext        string `yaml:"ext,omitempty" toml:"ext,omitempty" json:"ext,omitempty"`

	re *regexp.Regexp
}

// ViewProcess names a viewer process.
type ViewProcess struct {
	ViewerProcess string `yaml:"viewerProcess" toml:"viewerProcess" json:"viewerProcess"`
}

// WorkfileSettings is the workfile colourspace preset.
type WorkfileSettings struct {
	ColorManagement  string `yaml:"color_management" toml:"color_management" json:"color_management"`
	NativeOCIOConfig string `yaml:"native_ocio_config" toml:"native_ocio_config" json:"native_ocio_config"`
	WorkingSpace     string `yaml:"working_space" toml:"working_space" json:"working_space"`
	ThumbnailSpace   string `yaml:"thumbnail_space" toml:"thumbnail_space" json:"thumbnail_space"`
}

// NodesSettings holds the knob presets applied to created nodes.
type NodesSettings struct {
	RequiredNodes []RequiredNode `yaml:"required_nodes,omitempty" toml:"required_nodes,omitempty" json:"required_nodes,omitempty"`
	OverrideNodes []OverrideNode `yaml:"override_nodes,omitempty" toml:"override_nodes,omitempty" json:"override_nodes,omitempty"`
}

// RequiredNode lists knobs every node of NodeClass created by Plugins gets.
type RequiredNode struct {
	Plugins   []string `yaml:"plugins" toml:"plugins" json:"plugins"`
	NodeClass string   `yaml:"nuke_node_class" toml:"nuke_node_class" json:"nuke_node_class"`
	Knobs     []Knob   `yaml:"knobs,omitempty" toml:"knobs,omitempty" json:"knobs,omitempty"`
}

// OverrideNode replaces knobs for the listed subsets. No subsets means every
// subset.
type OverrideNode struct {
	Plugins   []string `yaml:"plugins" toml:"plugins" json:"plugins"`
	NodeClass string   `yaml:"nuke_node_class" toml:"nuke_node_class" json:"nuke_node_class"`
	Subsets   []string `yaml:"subsets,omitempty" toml:"subsets,omitempty" json:"subsets,omitempty"`
	Knobs     []Knob   `yaml:"knobs,omitempty" toml:"knobs,omitempty" json:"knobs,omitempty"`
}

// Knob is a typed node knob value. Only the field named by Type is used.
type Knob struct {
	Type     string    `yaml:"type" toml:"type" json:"type"`
	Name     string    `yaml:"name" toml:"name" json:"name"`
	Text     string    `yaml:"text,omitempty" toml:"text,omitempty" json:"text,omitempty"`
	Boolean  bool      `yaml:"boolean,omitempty" toml:"boolean,omitempty" json:"boolean,omitempty"`
	Number   float64   `yaml:"number,omitempty" toml:"number,omitempty" json:"number,omitempty"`
	ColorGUI []float64 `yaml:"color_gui,omitempty" toml:"color_gui,omitempty" json:"color_gui,omitempty"`
}

// Value returns the knob value for its type.
func (k Knob) Value() any {
	switch k.Type {
	case KnobBoolean:
		return k.Boolean
	case KnobNumber:
		return k.Number
	case KnobColorGUI:
		return append([]float64(nil), k.ColorGUI...)
	default:
		return k.Text
	}
}

// String renders name=value.
func (k Knob) String() string {
	return fmt.Sprintf("%s=%v", k.Name, k.Value())
}

// RegexInputs assign colourspaces to read nodes.
type RegexInputs struct {
	Inputs []RegexInput `yaml:"inputs,omitempty" toml:"inputs,omitempty" json:"inputs,omitempty"`
}

// RegexInput maps a path regex to a colourspace.
type RegexInput struct {
	Regex      string `yaml:"regex" toml:"regex" json:"regex"`
	Colorspace string `yaml:"colorspace" toml:"colorspace" json:"colorspace"`

	re *regexp.Regexp
}

// CreatorSettings are per-family creator defaults.
type CreatorSettings struct {
	Enabled         *bool    `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	DefaultVariants []string `yaml:"default_variants,omitempty" toml:"default_variants,omitempty" json:"default_variants,omitempty"`
	ImageFormat     string   `yaml:"image_format,omitempty" toml:"image_format,omitempty" json:"image_format,omitempty"`
	Farm            *bool    `yaml:"farm,omitempty" toml:"farm,omitempty" json:"farm,omitempty"`
	ChunkSize       int      `yaml:"chunk_size,omitempty" toml:"chunk_size,omitempty" json:"chunk_size,omitempty"`
}

// PluginSettings toggle a publish plugin. Unset fields keep the plugin
// defaults.
type PluginSettings struct {
	Enabled  *bool `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	Optional *bool `yaml:"optional,omitempty" toml:"optional,omitempty" json:"optional,omitempty"`
	Active   *bool `yaml:"active,omitempty" toml:"active,omitempty" json:"active,omitempty"`
}
