package attrdef

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dccpub/internal/services"
)

// ErrDuplicateKey marks a set built with two definitions sharing a key.
var ErrDuplicateKey = errors.New("duplicate attribute key")

// Set is an ordered, key-unique collection of definitions. It is immutable
// once built.
type Set struct {
	defs  []Definition
	index map[string]int
}

// NewSet builds a set, failing with a configuration error on duplicate or
// empty keys and on definitions whose own constraints are inconsistent.
func NewSet(defs ...Definition) (*Set, error) {
	set := &Set{defs: make([]Definition, 0, len(defs)), index: make(map[string]int, len(defs))}
	for _, def := range defs {
		if def == nil {
			continue
		}
		key := def.Key()
		if strings.TrimSpace(key) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "attrdef", "build set", "definition key is empty", nil)
		}
		if _, dup := set.index[key]; dup {
			return nil, services.Wrap(services.ErrConfiguration, "attrdef", "build set",
				fmt.Sprintf("key %q defined twice", key), ErrDuplicateKey)
		}
		if v, ok := def.(interface{ validate() error }); ok {
			if err := v.validate(); err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "attrdef", "build set", "", err)
			}
		}
		set.index[key] = len(set.defs)
		set.defs = append(set.defs, def)
	}
	return set, nil
}

// MustSet is NewSet for package-level definitions known to be valid.
func MustSet(defs ...Definition) *Set {
	set, err := NewSet(defs...)
	if err != nil {
		panic(err)
	}
	return set
}

// Extend returns a new set with defs appended after the receiver's
// definitions. The receiver is unchanged.
func (s *Set) Extend(defs ...Definition) (*Set, error) {
	combined := make([]Definition, 0, s.Len()+len(defs))
	if s != nil {
		combined = append(combined, s.defs...)
	}
	combined = append(combined, defs...)
	return NewSet(combined...)
}

// Definitions returns the definitions in declared order.
func (s *Set) Definitions() []Definition {
	if s == nil {
		return nil
	}
	out := make([]Definition, len(s.defs))
	copy(out, s.defs)
	return out
}

// Len reports the number of definitions.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.defs)
}

// Get returns the definition for key.
func (s *Set) Get(key string) (Definition, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.defs[i], true
}

// Defaults returns every key mapped to its default value.
func (s *Set) Defaults() map[string]any {
	return s.Resolve(nil)
}

// Resolve maps user input onto the set. Keys outside the set are ignored,
// missing keys and values that fail coercion fall back to the default.
func (s *Set) Resolve(values map[string]any) map[string]any {
	out := make(map[string]any, s.Len())
	if s == nil {
		return out
	}
	for _, def := range s.defs {
		raw, present := values[def.Key()]
		if present && raw != nil {
			if coerced, ok := def.Coerce(raw); ok {
				out[def.Key()] = coerced
				continue
			}
		}
		out[def.Key()] = def.Default()
	}
	return out
}

// FieldError describes one rejected value.
type FieldError struct {
	Key   string
	Value any
	Type  Type
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %v is not a valid %s value", e.Key, e.Value, e.Type)
}

// Validate reports every supplied value that the set would discard, plus
// unknown keys. Callers that prefer silent fallback use Resolve directly.
func (s *Set) Validate(values map[string]any) error {
	var errs []error
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		def, ok := s.Get(key)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unknown option", key))
			continue
		}
		if _, ok := def.Coerce(values[key]); !ok {
			errs = append(errs, FieldError{Key: key, Value: values[key], Type: def.Type()})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "attrdef", "validate", "", errors.Join(errs...))
}
