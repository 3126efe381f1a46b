package assetdb

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"dccpub/internal/services"
)

// AssetDoc is the subset of an asset document creators read.
type AssetDoc struct {
	ID          string   `json:"id"`
	Project     string   `json:"project"`
	Name        string   `json:"name"`
	Tasks       []string `json:"tasks"`
	FPS         float64  `json:"fps"`
	FrameStart  int      `json:"frame_start"`
	FrameEnd    int      `json:"frame_end"`
	HandleStart int      `json:"handle_start"`
	HandleEnd   int      `json:"handle_end"`
}

// HasTask reports whether the asset defines task.
func (d *AssetDoc) HasTask(task string) bool {
	return slices.Contains(d.Tasks, task)
}

// FrameRangeWithHandles returns the frame range extended by the handles.
func (d *AssetDoc) FrameRangeWithHandles() (int, int) {
	return d.FrameStart - d.HandleStart, d.FrameEnd + d.HandleEnd
}

// Database looks assets up by name. Unknown assets return nil, nil.
type Database interface {
	AssetByName(ctx context.Context, project, name string) (*AssetDoc, error)
}

// Resolve fetches asset and checks that task exists on it. Unknown assets and
// tasks are reported with services.ErrUnknownAsset. An empty task skips the
// task check.
func Resolve(ctx context.Context, db Database, project, asset, task string) (*AssetDoc, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return nil, services.Wrap(services.ErrUnknownAsset, "assetdb", "resolve", "asset name is empty", nil)
	}
	doc, err := db.AssetByName(ctx, project, asset)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "assetdb", "resolve",
			fmt.Sprintf("look up %s/%s", project, asset), err)
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrUnknownAsset, "assetdb", "resolve",
			fmt.Sprintf("asset %q not found in project %q", asset, project), nil)
	}
	task = strings.TrimSpace(task)
	if task != "" && !doc.HasTask(task) {
		return nil, services.Wrap(services.ErrUnknownAsset, "assetdb", "resolve",
			fmt.Sprintf("task %q not defined on asset %q", task, asset), nil)
	}
	return doc, nil
}

// Memory is an in-process Database keyed by project and asset name.
type Memory struct {
	docs map[string]*AssetDoc
}

// NewMemory returns a Memory database holding docs.
func NewMemory(docs ...AssetDoc) *Memory {
	m := &Memory{docs: make(map[string]*AssetDoc, len(docs))}
	for _, doc := range docs {
		m.Put(doc)
	}
	return m
}

// Put adds or replaces doc.
func (m *Memory) Put(doc AssetDoc) {
	doc.Tasks = slices.Clone(doc.Tasks)
	m.docs[memoryKey(doc.Project, doc.Name)] = &doc
}

func (m *Memory) AssetByName(_ context.Context, project, name string) (*AssetDoc, error) {
	doc, ok := m.docs[memoryKey(project, name)]
	if !ok {
		return nil, nil
	}
	return cloneDoc(doc), nil
}

func cloneDoc(doc *AssetDoc) *AssetDoc {
	if doc == nil {
		return nil
	}
	clone := *doc
	clone.Tasks = slices.Clone(doc.Tasks)
	return &clone
}

func memoryKey(project, name string) string {
	return project + "\x00" + name
}
