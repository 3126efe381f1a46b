package settings

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Validate checks the document and compiles its regular expressions. All
// problems are reported together.
func (s *Settings) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	io := &s.ImageIO
	if err := uniqueNames("imageio.file_rules.rules", len(io.FileRules.Rules), func(i int) string { return io.FileRules.Rules[i].Name }); err != nil {
		errs = append(errs, err)
	}
	for i := range io.FileRules.Rules {
		rule := &io.FileRules.Rules[i]
		if strings.TrimSpace(rule.Pattern) == "" {
			add("imageio.file_rules.rules[%s]: pattern is required", rule.Name)
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			add("imageio.file_rules.rules[%s]: %w", rule.Name, err)
			continue
		}
		rule.re = re
		rule.Ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(rule.Ext)), ".")
	}

	if io.OCIOConfig.OverrideGlobalConfig && len(io.OCIOConfig.Filepath) == 0 {
		add("imageio.ocio_config: override_global_config requires at least one filepath")
	}

	wf := io.Workfile
	if wf.ColorManagement != "" && wf.ColorManagement != ColorManagementNuke && wf.ColorManagement != ColorManagementOCIO {
		add("imageio.workfile.color_management: %q must be %s or %s", wf.ColorManagement, ColorManagementNuke, ColorManagementOCIO)
	}
	if wf.NativeOCIOConfig != "" && !slices.Contains(NativeOCIOConfigs, wf.NativeOCIOConfig) {
		add("imageio.workfile.native_ocio_config: unknown config %q", wf.NativeOCIOConfig)
	}

	for i, node := range io.Nodes.RequiredNodes {
		where := fmt.Sprintf("imageio.nodes.required_nodes[%d]", i)
		errs = append(errs, validateNode(where, node.Plugins, node.NodeClass, node.Knobs)...)
	}
	for i, node := range io.Nodes.OverrideNodes {
		where := fmt.Sprintf("imageio.nodes.override_nodes[%d]", i)
		errs = append(errs, validateNode(where, node.Plugins, node.NodeClass, node.Knobs)...)
	}

	for i := range io.RegexInputs.Inputs {
		input := &io.RegexInputs.Inputs[i]
		re, err := regexp.Compile(input.Regex)
		if err != nil {
			add("imageio.regex_inputs.inputs[%d]: %w", i, err)
			continue
		}
		if strings.TrimSpace(input.Colorspace) == "" {
			add("imageio.regex_inputs.inputs[%d]: colorspace is required", i)
			continue
		}
		input.re = re
	}

	for family, creator := range s.Creators {
		if strings.TrimSpace(family) == "" {
			add("creators: empty family key")
		}
		if creator.ChunkSize < 0 {
			add("creators.%s.chunk_size: must not be negative", family)
		}
		if err := uniqueNames("creators."+family+".default_variants", len(creator.DefaultVariants), func(i int) string { return creator.DefaultVariants[i] }); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateNode(where string, plugins []string, nodeClass string, knobs []Knob) []error {
	var errs []error
	if len(plugins) == 0 {
		errs = append(errs, fmt.Errorf("%s: at least one plugin is required", where))
	}
	if strings.TrimSpace(nodeClass) == "" {
		errs = append(errs, fmt.Errorf("%s: nuke_node_class is required", where))
	}
	if err := uniqueNames(where+".knobs", len(knobs), func(i int) string { return knobs[i].Name }); err != nil {
		errs = append(errs, err)
	}
	for _, knob := range knobs {
		switch knob.Type {
		case KnobText, KnobBoolean, KnobNumber:
		case KnobColorGUI:
			if n := len(knob.ColorGUI); n != 3 && n != 4 {
				errs = append(errs, fmt.Errorf("%s.knobs[%s]: color_gui needs 3 or 4 components, got %d", where, knob.Name, n))
			}
		default:
			errs = append(errs, fmt.Errorf("%s.knobs[%s]: unknown knob type %q", where, knob.Name, knob.Type))
		}
	}
	return errs
}

// uniqueNames reports empty and repeated names among n sibling entries.
func uniqueNames(where string, n int, name func(int) string) error {
	seen := make(map[string]struct{}, n)
	var dups []string
	for i := range n {
		value := strings.TrimSpace(name(i))
		if value == "" {
			return fmt.Errorf("%s[%d]: name is required", where, i)
		}
		if _, ok := seen[value]; ok {
			dups = append(dups, value)
			continue
		}
		seen[value] = struct{}{}
	}
	if len(dups) > 0 {
		return fmt.Errorf("%s: duplicate names %s", where, strings.Join(dups, ", "))
	}
	return nil
}
