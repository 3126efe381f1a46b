package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dccpub/internal/instance"
	"dccpub/internal/textutil"
)

// Allocator hands out one staging directory per instance.
type Allocator struct {
	root string
}

// NewAllocator roots directories at root, which must be absolute so every
// representation records an absolute staging dir.
func NewAllocator(root string) (*Allocator, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("staging root required")
	}
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("staging root %q must be absolute", root)
	}
	return &Allocator{root: filepath.Clean(root)}, nil
}

// Root returns the staging root.
func (a *Allocator) Root() string { return a.root }

// Path returns the directory for inst without creating it.
func (a *Allocator) Path(inst *instance.Instance) string {
	segment := textutil.SanitizeSegment(strings.ToLower(inst.ID), "instance")
	return filepath.Join(a.root, segment)
}

// Dir returns the directory for inst, creating it if needed. Repeated calls
// for the same instance return the same directory.
func (a *Allocator) Dir(inst *instance.Instance) (string, error) {
	dir := a.Path(inst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	return dir, nil
}
