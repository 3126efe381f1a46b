package settings

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// Match returns the first rule matching path. Rules only apply when host
// rules are active.
func (r FileRules) Match(path string) (FileRule, bool) {
	if !r.ActivateHostRules {
		return FileRule{}, false
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, rule := range r.Rules {
		if rule.Ext != "" && rule.Ext != ext {
			continue
		}
		re := rule.re
		if re == nil {
			compiled, err := regexp.Compile(rule.Pattern)
			if err != nil {
				continue
			}
			re = compiled
		}
		if re.MatchString(path) {
			return rule, true
		}
	}
	return FileRule{}, false
}

// Match returns the colourspace of the first input regex matching path.
func (r RegexInputs) Match(path string) (string, bool) {
	for _, input := range r.Inputs {
		re := input.re
		if re == nil {
			compiled, err := regexp.Compile(input.Regex)
			if err != nil {
				continue
			}
			re = compiled
		}
		if re.MatchString(path) {
			return input.Colorspace, true
		}
	}
	return "", false
}

// Colorspace resolves the colourspace for a file path: file rules first,
// then read-node regex inputs.
func (s *Settings) Colorspace(path string) (string, bool) {
	if !s.ImageIO.ActivateHostColorManagement {
		return "", false
	}
	if rule, ok := s.ImageIO.FileRules.Match(path); ok {
		return rule.Colorspace, true
	}
	return s.ImageIO.RegexInputs.Match(path)
}

// RequiredNode returns the first required-node entry for plugin and class.
func (s *Settings) RequiredNode(plugin, nodeClass string) (RequiredNode, bool) {
	for _, node := range s.ImageIO.Nodes.RequiredNodes {
		if node.NodeClass == nodeClass && slices.Contains(node.Plugins, plugin) {
			return node, true
		}
	}
	return RequiredNode{}, false
}

// OverrideKnobs returns override entries for plugin, class and subset in
// document order.
func (s *Settings) OverrideKnobs(plugin, nodeClass, subset string) []Knob {
	var knobs []Knob
	for _, node := range s.ImageIO.Nodes.OverrideNodes {
		if node.NodeClass != nodeClass || !slices.Contains(node.Plugins, plugin) {
			continue
		}
		if len(node.Subsets) > 0 && !slices.Contains(node.Subsets, subset) {
			continue
		}
		knobs = append(knobs, node.Knobs...)
	}
	return knobs
}

// NodeKnobs merges the required knobs with the subset overrides. Overrides
// replace required knobs of the same name in place; new names are appended.
func (s *Settings) NodeKnobs(plugin, nodeClass, subset string) []Knob {
	var knobs []Knob
	if required, ok := s.RequiredNode(plugin, nodeClass); ok {
		knobs = append(knobs, required.Knobs...)
	}
	for _, override := range s.OverrideKnobs(plugin, nodeClass, subset) {
		idx := slices.IndexFunc(knobs, func(k Knob) bool { return k.Name == override.Name })
		if idx >= 0 {
			knobs[idx] = override
			continue
		}
		knobs = append(knobs, override)
	}
	return knobs
}

// Creator returns the creator defaults for family.
func (s *Settings) Creator(family string) (CreatorSettings, bool) {
	c, ok := s.Creators[family]
	return c, ok
}

// CreatorEnabled reports whether family's creator is enabled. Creators are
// enabled unless disabled explicitly.
func (s *Settings) CreatorEnabled(family string) bool {
	c, ok := s.Creators[family]
	return !ok || c.Enabled == nil || *c.Enabled
}

// Plugin returns the toggles configured for a publish plugin.
func (s *Settings) Plugin(name string) PluginSettings {
	return s.Publish[name]
}
