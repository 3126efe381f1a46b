package extract

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"dccpub/internal/services"
)

// Registry holds extractors in run order: ascending Order, then name.
type Registry struct {
	extractors []Extractor
}

// NewRegistry registers extractors. Duplicate names are configuration
// errors.
func NewRegistry(extractors ...Extractor) (*Registry, error) {
	r := &Registry{}
	for _, e := range extractors {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Builtin returns the shipped extractors.
func Builtin() *Registry {
	r, err := NewRegistry(CameraAlembic{}, EditorialOTIO{})
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds e.
func (r *Registry) Register(e Extractor) error {
	name := strings.TrimSpace(e.Name())
	if name == "" {
		return services.Wrap(services.ErrConfiguration, "extract", "register", "extractor name is empty", nil)
	}
	if slices.ContainsFunc(r.extractors, func(existing Extractor) bool { return existing.Name() == name }) {
		return services.Wrap(services.ErrConfiguration, "extract", "register",
			fmt.Sprintf("extractor %q registered twice", name), nil)
	}
	r.extractors = append(r.extractors, e)
	slices.SortStableFunc(r.extractors, func(a, b Extractor) int {
		if c := cmp.Compare(a.Order(), b.Order()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name(), b.Name())
	})
	return nil
}

// All returns every extractor in run order.
func (r *Registry) All() []Extractor {
	return slices.Clone(r.extractors)
}

// For returns the extractors for family in hostName, in run order.
func (r *Registry) For(family, hostName string) []Extractor {
	var out []Extractor
	for _, e := range r.extractors {
		if Matches(e, family, hostName) {
			out = append(out, e)
		}
	}
	return out
}
