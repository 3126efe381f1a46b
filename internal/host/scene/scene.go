package scene

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"dccpub/internal/host"
)

// ErrLockedParameter is returned when a locked parameter is written.
var ErrLockedParameter = errors.New("parameter is locked")

// Document is the YAML form of a scene.
type Document struct {
	Host             string            `yaml:"host"`
	Variables        map[string]string `yaml:"variables,omitempty"`
	Nodes            []NodeDocument    `yaml:"nodes"`
	Selection        []string          `yaml:"selection,omitempty"`
	RefreshSuspended bool              `yaml:"refresh_suspended,omitempty"`
}

// NodeDocument is one node entry. Parents must precede their children.
type NodeDocument struct {
	Path   string         `yaml:"path"`
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params,omitempty"`
	Locked []string       `yaml:"locked,omitempty"`
}

type node struct {
	path     string
	nodeType string
	params   map[string]any
	locked   map[string]struct{}
	children []string
}

// Option configures a Scene.
type Option func(*Scene)

// WithExporter sets the exporter used by ExportSelection.
func WithExporter(exporter Exporter) Option {
	return func(s *Scene) {
		if exporter != nil {
			s.exporter = exporter
		}
	}
}

// WithVariable defines a host variable for ExpandString.
func WithVariable(name, value string) Option {
	return func(s *Scene) {
		s.variables[name] = value
	}
}

// Scene is a mutable scene graph.
type Scene struct {
	mu        sync.Mutex
	hostName  string
	nodes     map[string]*node
	roots     []string
	selection []host.Node
	refresh   bool
	variables map[string]string
	exporter  Exporter
}

var _ host.Adapter = (*Scene)(nil)

// New returns an empty scene for hostName.
func New(hostName string, opts ...Option) *Scene {
	s := &Scene{
		hostName:  strings.TrimSpace(hostName),
		nodes:     make(map[string]*node),
		variables: make(map[string]string),
		exporter:  ManifestExporter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads a scene document. $HIP defaults to the document directory.
func Load(file string, opts ...Option) (*Scene, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", file, err)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	defaults := []Option{
		WithVariable("HIP", filepath.Dir(abs)),
		WithVariable("HIPNAME", strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))),
	}
	return FromDocument(doc, append(defaults, opts...)...)
}

// FromDocument builds a scene from doc.
func FromDocument(doc Document, opts ...Option) (*Scene, error) {
	s := New(doc.Host, opts...)
	for name, value := range doc.Variables {
		if _, set := s.variables[name]; !set {
			s.variables[name] = value
		}
	}
	for _, entry := range doc.Nodes {
		clean := cleanPath(entry.Path)
		parent, name := path.Split(clean)
		parent = strings.TrimSuffix(parent, "/")
		created, err := s.CreateNode(host.Node(parent), entry.Type, name)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", entry.Path, err)
		}
		n := s.nodes[string(created)]
		maps.Copy(n.params, entry.Params)
		for _, lockedName := range entry.Locked {
			n.locked[lockedName] = struct{}{}
		}
	}
	selection := make([]host.Node, 0, len(doc.Selection))
	for _, p := range doc.Selection {
		selection = append(selection, host.Node(cleanPath(p)))
	}
	if err := s.Select(selection...); err != nil {
		return nil, fmt.Errorf("scene selection: %w", err)
	}
	s.refresh = doc.RefreshSuspended
	return s, nil
}

// Document snapshots the scene in depth-first creation order.
func (s *Scene) Document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := Document{
		Host:             s.hostName,
		RefreshSuspended: s.refresh,
	}
	if len(s.variables) > 0 {
		doc.Variables = maps.Clone(s.variables)
	}
	var walk func(paths []string)
	walk = func(paths []string) {
		for _, p := range paths {
			n := s.nodes[p]
			entry := NodeDocument{Path: n.path, Type: n.nodeType}
			if len(n.params) > 0 {
				entry.Params = maps.Clone(n.params)
			}
			if len(n.locked) > 0 {
				entry.Locked = slices.Sorted(maps.Keys(n.locked))
			}
			doc.Nodes = append(doc.Nodes, entry)
			walk(n.children)
		}
	}
	walk(s.roots)
	for _, sel := range s.selection {
		doc.Selection = append(doc.Selection, string(sel))
	}
	return doc
}

// Save writes the scene document to file.
func (s *Scene) Save(file string) error {
	data, err := yaml.Marshal(s.Document())
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("create scene dir: %w", err)
	}
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace scene: %w", err)
	}
	return nil
}

func (s *Scene) Name() string { return s.hostName }

func (s *Scene) FindNode(p string) (host.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clean := cleanPath(p)
	if _, ok := s.nodes[clean]; ok {
		return host.Node(clean), true
	}
	return "", false
}

func (s *Scene) CreateNode(parent host.Node, nodeType, name string) (host.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid node name %q", name)
	}
	if strings.TrimSpace(nodeType) == "" {
		return "", fmt.Errorf("node %q: type required", name)
	}
	parentPath := ""
	if parent != "" && parent != "/" {
		parentPath = cleanPath(string(parent))
		if _, ok := s.nodes[parentPath]; !ok {
			return "", fmt.Errorf("parent %s: %w", parentPath, host.ErrNodeNotFound)
		}
	}
	full := parentPath + "/" + name
	if _, exists := s.nodes[full]; exists {
		return "", fmt.Errorf("node %s already exists", full)
	}
	s.nodes[full] = &node{
		path:     full,
		nodeType: nodeType,
		params:   make(map[string]any),
		locked:   make(map[string]struct{}),
	}
	if parentPath == "" {
		s.roots = append(s.roots, full)
	} else {
		p := s.nodes[parentPath]
		p.children = append(p.children, full)
	}
	return host.Node(full), nil
}

// NodeType returns the type a node was created with.
func (s *Scene) NodeType(n host.Node) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookup(n)
	if err != nil {
		return "", err
	}
	return entry.nodeType, nil
}

func (s *Scene) SetParameters(n host.Node, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookup(n)
	if err != nil {
		return err
	}
	for name := range params {
		if _, locked := entry.locked[name]; locked {
			return fmt.Errorf("%s.%s: %w", n, name, ErrLockedParameter)
		}
	}
	maps.Copy(entry.params, params)
	return nil
}

func (s *Scene) Parameters(n host.Node) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookup(n)
	if err != nil {
		return nil, err
	}
	return maps.Clone(entry.params), nil
}

func (s *Scene) LockParameters(n host.Node, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookup(n)
	if err != nil {
		return err
	}
	for _, name := range names {
		entry.locked[name] = struct{}{}
	}
	return nil
}

// LockedParameters lists the locked parameter names in sorted order.
func (s *Scene) LockedParameters(n host.Node) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookup(n)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(entry.locked)), nil
}

func (s *Scene) Select(nodes ...host.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]host.Node, 0, len(nodes))
	for _, n := range nodes {
		if _, err := s.lookup(n); err != nil {
			return err
		}
		clean := host.Node(cleanPath(string(n)))
		if !slices.Contains(next, clean) {
			next = append(next, clean)
		}
	}
	s.selection = next
	return nil
}

func (s *Scene) Selection() []host.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selection)
}

func (s *Scene) ExportSelection(ctx context.Context, output string, cfg host.ExportConfig) error {
	s.mu.Lock()
	req := ExportRequest{
		Host:   s.hostName,
		Output: output,
		Config: cfg,
	}
	for _, sel := range s.selection {
		n := s.nodes[string(sel)]
		req.Nodes = append(req.Nodes, ExportedNode{Path: n.path, Type: n.nodeType, Params: maps.Clone(n.params)})
	}
	exporter := s.exporter
	s.mu.Unlock()

	if len(req.Nodes) == 0 {
		return errors.New("export selection: nothing selected")
	}
	return exporter.Export(ctx, req)
}

func (s *Scene) Children(n host.Node, recursive bool) ([]host.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.lookup(n)
	if err != nil {
		return nil, err
	}
	var out []host.Node
	var walk func(paths []string)
	walk = func(paths []string) {
		for _, p := range paths {
			out = append(out, host.Node(p))
			if recursive {
				walk(s.nodes[p].children)
			}
		}
	}
	walk(entry.children)
	return out, nil
}

func (s *Scene) RefreshSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *Scene) SetRefreshSuspended(suspended bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = suspended
}

// ExpandString replaces $NAME and ${NAME} with scene variables. Unknown
// variables such as the $F4 frame token are kept.
func (s *Scene) ExpandString(in string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.Expand(in, func(name string) string {
		if value, ok := s.variables[name]; ok {
			return value
		}
		return "$" + name
	})
}

func (s *Scene) lookup(n host.Node) (*node, error) {
	entry, ok := s.nodes[cleanPath(string(n))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", n, host.ErrNodeNotFound)
	}
	return entry, nil
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
