package attrdef

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Type tags a definition's value kind.
type Type string

const (
	TypeBoolean Type = "boolean"
	TypeEnum    Type = "enum"
	TypeNumber  Type = "number"
	TypeText    Type = "text"
	TypeFile    Type = "file"
)

// Definition is one typed option. Coerce converts raw form input into the
// definition's value type, reporting false when the input is unusable.
type Definition interface {
	Key() string
	Label() string
	Type() Type
	Default() any
	Coerce(raw any) (any, bool)
}

type base struct {
	key   string
	label string
}

func (b base) Key() string { return b.key }

func (b base) Label() string {
	if b.label != "" {
		return b.label
	}
	return b.key
}

// Bool is a checkbox option.
type Bool struct {
	base
	def bool
}

// BoolDef declares a boolean option.
func BoolDef(key, label string, def bool) *Bool {
	return &Bool{base: base{key: key, label: label}, def: def}
}

func (d *Bool) Type() Type   { return TypeBoolean }
func (d *Bool) Default() any { return d.def }

func (d *Bool) Coerce(raw any) (any, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, false
		}
		return parsed, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		return v != 0, true
	default:
		return nil, false
	}
}

// Enum is a choice among ordered options.
type Enum struct {
	base
	options []string
	def     string
}

// EnumDef declares an enum option. The default must be one of options;
// NewSet reports a violation as a configuration error.
func EnumDef(key, label string, options []string, def string) *Enum {
	return &Enum{base: base{key: key, label: label}, options: slices.Clone(options), def: def}
}

func (d *Enum) Type() Type        { return TypeEnum }
func (d *Enum) Default() any      { return d.def }
func (d *Enum) Options() []string { return slices.Clone(d.options) }

func (d *Enum) Coerce(raw any) (any, bool) {
	value, ok := raw.(string)
	if !ok {
		return nil, false
	}
	value = strings.TrimSpace(value)
	if !slices.Contains(d.options, value) {
		return nil, false
	}
	return value, true
}

func (d *Enum) validate() error {
	if len(d.options) == 0 {
		return fmt.Errorf("enum %q has no options", d.key)
	}
	seen := make(map[string]struct{}, len(d.options))
	for _, option := range d.options {
		if _, dup := seen[option]; dup {
			return fmt.Errorf("enum %q repeats option %q", d.key, option)
		}
		seen[option] = struct{}{}
	}
	if !slices.Contains(d.options, d.def) {
		return fmt.Errorf("enum %q default %q is not one of %s", d.key, d.def, strings.Join(d.options, ", "))
	}
	return nil
}

// Number is a bounded numeric option. Decimals of zero makes it an integer.
type Number struct {
	base
	def      float64
	min, max *float64
	decimals int
}

// NumberOption configures a Number definition.
type NumberOption func(*Number)

// WithMin sets an inclusive lower bound.
func WithMin(v float64) NumberOption { return func(d *Number) { d.min = &v } }

// WithMax sets an inclusive upper bound.
func WithMax(v float64) NumberOption { return func(d *Number) { d.max = &v } }

// WithDecimals allows fractional values with the given precision.
func WithDecimals(n int) NumberOption { return func(d *Number) { d.decimals = n } }

// NumberDef declares a numeric option.
func NumberDef(key, label string, def float64, opts ...NumberOption) *Number {
	d := &Number{base: base{key: key, label: label}, def: def}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Number) Type() Type { return TypeNumber }

func (d *Number) Default() any { return d.value(d.def) }

func (d *Number) value(v float64) any {
	if d.decimals == 0 {
		return int(v)
	}
	scale := math.Pow(10, float64(d.decimals))
	return math.Round(v*scale) / scale
}

func (d *Number) Coerce(raw any) (any, bool) {
	var v float64
	switch n := raw.(type) {
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case float64:
		v = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, false
		}
		v = parsed
	default:
		return nil, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	if d.decimals == 0 && v != math.Trunc(v) {
		return nil, false
	}
	if d.min != nil && v < *d.min {
		return nil, false
	}
	if d.max != nil && v > *d.max {
		return nil, false
	}
	return d.value(v), true
}

func (d *Number) validate() error {
	if d.min != nil && d.max != nil && *d.min > *d.max {
		return fmt.Errorf("number %q has min %v above max %v", d.key, *d.min, *d.max)
	}
	if _, ok := d.Coerce(d.def); !ok {
		return fmt.Errorf("number %q default %v is out of bounds", d.key, d.def)
	}
	return nil
}

// Text is a free-form string option.
type Text struct {
	base
	def         string
	multiline   bool
	placeholder string
}

// TextDef declares a text option.
func TextDef(key, label, def string) *Text {
	return &Text{base: base{key: key, label: label}, def: def}
}

// Multiline marks the field as a multi-line text area.
func (d *Text) Multiline() *Text { d.multiline = true; return d }

// Placeholder sets the hint shown in empty fields.
func (d *Text) Placeholder(hint string) *Text { d.placeholder = hint; return d }

func (d *Text) Type() Type              { return TypeText }
func (d *Text) Default() any            { return d.def }
func (d *Text) IsMultiline() bool       { return d.multiline }
func (d *Text) PlaceholderText() string { return d.placeholder }

func (d *Text) Coerce(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return nil, false
	}
}

// File is a path option restricted to an extension allow-list.
type File struct {
	base
	extensions     []string
	allowSequences bool
	allowFolders   bool
}

// FileDef declares a file option. Extensions are matched case-insensitively
// and include the leading dot (".edl").
func FileDef(key, label string, extensions []string) *File {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return &File{base: base{key: key, label: label}, extensions: exts}
}

// AllowSequences accepts a list of frame files instead of a single path.
func (d *File) AllowSequences() *File { d.allowSequences = true; return d }

// AllowFolders accepts directories.
func (d *File) AllowFolders() *File { d.allowFolders = true; return d }

func (d *File) Type() Type             { return TypeFile }
func (d *File) Default() any           { return "" }
func (d *File) Extensions() []string   { return slices.Clone(d.extensions) }
func (d *File) SequencesAllowed() bool { return d.allowSequences }
func (d *File) FoldersAllowed() bool   { return d.allowFolders }

func (d *File) Coerce(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		if v == "" || d.accepts(v) {
			return v, true
		}
		return nil, false
	case []string:
		if len(v) == 1 {
			return d.Coerce(v[0])
		}
		if !d.allowSequences {
			return nil, false
		}
		for _, path := range v {
			if !d.accepts(path) {
				return nil, false
			}
		}
		return slices.Clone(v), true
	case []any:
		paths := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			paths = append(paths, s)
		}
		return d.Coerce(paths)
	case map[string]any:
		// {"directory": dir, "filenames": [name, ...]} as sent by file pickers.
		dir, _ := v["directory"].(string)
		var names []string
		switch f := v["filenames"].(type) {
		case []string:
			names = f
		case []any:
			for _, item := range f {
				if s, ok := item.(string); ok {
					names = append(names, s)
				}
			}
		}
		if len(names) == 0 {
			return nil, false
		}
		paths := make([]string, len(names))
		for i, name := range names {
			paths[i] = filepath.Join(dir, name)
		}
		return d.Coerce(paths)
	default:
		return nil, false
	}
}

func (d *File) accepts(path string) bool {
	if len(d.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return d.allowFolders
	}
	return slices.Contains(d.extensions, ext)
}
