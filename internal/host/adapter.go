package host

import (
	"context"
	"errors"
)

// Node is an opaque host handle. Scene-graph hosts use the node path.
type Node string

// ErrNodeNotFound is returned when a handle does not resolve.
var ErrNodeNotFound = errors.New("node not found")

// ExportConfig configures a selection export.
type ExportConfig struct {
	Format           string `json:"format"`
	ArchiveType      string `json:"archive_type"`
	CoordinateSystem string `json:"coordinate_system"`
	StartFrame       int    `json:"start_frame"`
	EndFrame         int    `json:"end_frame"`
	CustomAttributes bool   `json:"custom_attributes"`
}

// AlembicConfig returns the Ogawa/Maya-axis Alembic settings used for camera
// caches.
func AlembicConfig(start, end int, customAttributes bool) ExportConfig {
	return ExportConfig{
		Format:           "abc",
		ArchiveType:      "ogawa",
		CoordinateSystem: "maya",
		StartFrame:       start,
		EndFrame:         end,
		CustomAttributes: customAttributes,
	}
}

// Adapter is implemented once per host application.
type Adapter interface {
	// Name returns the host identifier (houdini, max, nuke, traypublisher).
	Name() string
	FindNode(path string) (Node, bool)
	// CreateNode creates a child of parent. An empty parent means the scene
	// root.
	CreateNode(parent Node, nodeType, name string) (Node, error)
	SetParameters(node Node, params map[string]any) error
	Parameters(node Node) (map[string]any, error)
	LockParameters(node Node, names ...string) error
	Select(nodes ...Node) error
	Selection() []Node
	ExportSelection(ctx context.Context, path string, cfg ExportConfig) error
	Children(node Node, recursive bool) ([]Node, error)
	RefreshSuspended() bool
	SetRefreshSuspended(suspended bool)
	// ExpandString resolves host variables such as $HIP.
	ExpandString(s string) string
}
