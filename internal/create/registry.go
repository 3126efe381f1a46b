package create

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"dccpub/internal/services"
)

// ErrDuplicateCreator rejects a second creator with the same identifier, or a
// second user creator for the same family.
var ErrDuplicateCreator = errors.New("duplicate creator")

// Registry resolves creators by identifier and family. It is filled once at
// startup.
type Registry struct {
	creators  map[string]Creator
	invisible map[string]InvisibleCreator
	byFamily  map[string]string
	order     []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		creators:  make(map[string]Creator),
		invisible: make(map[string]InvisibleCreator),
		byFamily:  make(map[string]string),
	}
}

// Register adds a user creator.
func (r *Registry) Register(c Creator) error {
	if err := r.checkIdentifier(c); err != nil {
		return err
	}
	family := strings.TrimSpace(c.Family())
	if owner, ok := r.byFamily[family]; ok {
		return services.Wrap(services.ErrConfiguration, "create", "register",
			fmt.Sprintf("family %q already served by %s", family, owner), ErrDuplicateCreator)
	}
	r.creators[c.Identifier()] = c
	r.byFamily[family] = c.Identifier()
	r.order = append(r.order, c.Identifier())
	return nil
}

// RegisterInvisible adds a creator that is only reachable through other
// creators.
func (r *Registry) RegisterInvisible(c InvisibleCreator) error {
	if err := r.checkIdentifier(c); err != nil {
		return err
	}
	r.invisible[c.Identifier()] = c
	return nil
}

func (r *Registry) checkIdentifier(p Plugin) error {
	id := strings.TrimSpace(p.Identifier())
	if id == "" {
		return services.Wrap(services.ErrConfiguration, "create", "register", "creator identifier is empty", nil)
	}
	_, visible := r.creators[id]
	_, hidden := r.invisible[id]
	if visible || hidden {
		return services.Wrap(services.ErrConfiguration, "create", "register",
			fmt.Sprintf("identifier %q registered twice", id), ErrDuplicateCreator)
	}
	return nil
}

// Creator looks a user creator up by identifier.
func (r *Registry) Creator(identifier string) (Creator, bool) {
	c, ok := r.creators[identifier]
	return c, ok
}

// ForFamily looks a user creator up by family.
func (r *Registry) ForFamily(family string) (Creator, bool) {
	id, ok := r.byFamily[strings.TrimSpace(family)]
	if !ok {
		return nil, false
	}
	return r.creators[id], true
}

// Invisible looks an invisible creator up by identifier.
func (r *Registry) Invisible(identifier string) (InvisibleCreator, bool) {
	c, ok := r.invisible[identifier]
	return c, ok
}

// UserCreators lists the visible creators in registration order.
func (r *Registry) UserCreators() []Creator {
	out := make([]Creator, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.creators[id])
	}
	return out
}

// HostCreators lists the visible creators that run in hostName.
func (r *Registry) HostCreators(hostName string) []Creator {
	var out []Creator
	for _, c := range r.UserCreators() {
		if strings.EqualFold(c.Host(), hostName) {
			out = append(out, c)
		}
	}
	return out
}

// Families returns the sorted families of the visible creators.
func (r *Registry) Families() []string {
	out := make([]string, 0, len(r.byFamily))
	for family := range r.byFamily {
		out = append(out, family)
	}
	slices.Sort(out)
	return out
}
