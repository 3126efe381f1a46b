package scene_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"dccpub/internal/host"
	"dccpub/internal/host/scene"
	"dccpub/internal/services"
)

const sampleScene = `host: houdini
variables:
  JOB: /projects/demo
nodes:
  - path: /out
    type: ropnet
  - path: /obj
    type: subnet
  - path: /obj/rig
    type: "null"
    params:
      tx: 1.5
  - path: /obj/rig/cam
    type: cam
    locked: [id]
selection: [/obj/rig]
`

func writeScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.yaml")
	if err := os.WriteFile(path, []byte(sampleScene), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

func TestLoadBuildsGraph(t *testing.T) {
	path := writeScene(t)
	s, err := scene.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name() != "houdini" {
		t.Fatalf("host = %q", s.Name())
	}
	if _, ok := s.FindNode("/obj/rig/cam"); !ok {
		t.Fatal("expected nested camera node")
	}
	children, err := s.Children("/obj", true)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if !slices.Equal(children, []host.Node{"/obj/rig", "/obj/rig/cam"}) {
		t.Fatalf("recursive children = %v", children)
	}
	direct, _ := s.Children("/obj", false)
	if len(direct) != 1 {
		t.Fatalf("direct children = %v", direct)
	}
	if got := s.Selection(); !slices.Equal(got, []host.Node{"/obj/rig"}) {
		t.Fatalf("selection = %v", got)
	}
	if got := s.ExpandString("$HIP/render.$F4.exr"); got != filepath.Dir(path)+"/render.$F4.exr" {
		t.Fatalf("ExpandString = %q", got)
	}
	if got := s.ExpandString("${JOB}/x"); got != "/projects/demo/x" {
		t.Fatalf("ExpandString = %q", got)
	}
}

func TestLockedParametersRejectWrites(t *testing.T) {
	s, err := scene.Load(writeScene(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = s.SetParameters("/obj/rig/cam", map[string]any{"id": "x"})
	if !errors.Is(err, scene.ErrLockedParameter) {
		t.Fatalf("expected locked parameter error, got %v", err)
	}
	if err := s.SetParameters("/obj/rig/cam", map[string]any{"focal": 35}); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	params, _ := s.Parameters("/obj/rig/cam")
	if params["focal"] != 35 {
		t.Fatalf("params = %v", params)
	}
}

func TestCreateNodeValidation(t *testing.T) {
	s := scene.New("houdini")
	if _, err := s.CreateNode("/missing", "arnold", "rop"); !errors.Is(err, host.ErrNodeNotFound) {
		t.Fatalf("expected missing parent, got %v", err)
	}
	if _, err := s.CreateNode("", "ropnet", "out"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if _, err := s.CreateNode("/out", "arnold", "rop"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if _, err := s.CreateNode("/out", "arnold", "rop"); err == nil {
		t.Fatal("expected duplicate node to fail")
	}
	if err := s.Select("/nope"); !errors.Is(err, host.ErrNodeNotFound) {
		t.Fatalf("expected select of missing node to fail, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	s, err := scene.Load(writeScene(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	node, err := s.CreateNode("/out", "arnold", "arnold_ropMain")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := s.SetParameters(node, map[string]any{"trange": 1}); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	if err := s.LockParameters(node, "family", "id"); err != nil {
		t.Fatalf("LockParameters: %v", err)
	}
	out := filepath.Join(t.TempDir(), "saved.yaml")
	if err := s.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := scene.Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	nodeType, err := reloaded.NodeType("/out/arnold_ropMain")
	if err != nil || nodeType != "arnold" {
		t.Fatalf("NodeType = %q (%v)", nodeType, err)
	}
	locked, _ := reloaded.LockedParameters("/out/arnold_ropMain")
	if !slices.Equal(locked, []string{"family", "id"}) {
		t.Fatalf("locked = %v", locked)
	}
	params, _ := reloaded.Parameters("/out/arnold_ropMain")
	if params["trange"] != 1 {
		t.Fatalf("params = %v", params)
	}
}

func TestManifestExporterWritesSelection(t *testing.T) {
	s, err := scene.Load(writeScene(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out := filepath.Join(t.TempDir(), "cam.abc")
	if err := s.ExportSelection(context.Background(), out, host.AlembicConfig(1, 24, false)); err != nil {
		t.Fatalf("ExportSelection: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var req scene.ExportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(req.Nodes) != 1 || req.Nodes[0].Path != "/obj/rig" || req.Config.EndFrame != 24 {
		t.Fatalf("unexpected export request %+v", req)
	}
}

func TestExportSelectionRequiresSelection(t *testing.T) {
	s := scene.New("max")
	if err := s.ExportSelection(context.Background(), filepath.Join(t.TempDir(), "x.abc"), host.ExportConfig{}); err == nil {
		t.Fatal("expected empty selection export to fail")
	}
}

type recordingExecutor struct {
	binary string
	args   []string
	write  bool
	err    error
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string, onOutput func(string)) error {
	r.binary = binary
	r.args = args
	onOutput("exporting")
	if r.err != nil {
		return r.err
	}
	if r.write {
		return os.WriteFile(args[len(args)-1], []byte("abc"), 0o644)
	}
	return nil
}

func TestCommandExporterExpandsTemplates(t *testing.T) {
	exec := &recordingExecutor{write: true}
	exporter, err := scene.NewCommandExporter(
		[]string{"hython", "export.py", "--range", "{start}-{end}", "--nodes", "{nodes}", "--request", "{request}", "{output}"},
		30,
		scene.WithExecutor(exec),
	)
	if err != nil {
		t.Fatalf("NewCommandExporter: %v", err)
	}
	out := filepath.Join(t.TempDir(), "cam.abc")
	req := scene.ExportRequest{
		Host:   "max",
		Output: out,
		Config: host.AlembicConfig(1001, 1010, false),
		Nodes:  []scene.ExportedNode{{Path: "/camA"}, {Path: "/camB"}},
	}
	if err := exporter.Export(context.Background(), req); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exec.binary != "hython" {
		t.Fatalf("binary = %q", exec.binary)
	}
	joined := strings.Join(exec.args, " ")
	if !strings.Contains(joined, "--range 1001-1010") || !strings.Contains(joined, "--nodes /camA,/camB") {
		t.Fatalf("args = %v", exec.args)
	}
	if !strings.HasSuffix(exec.args[6], ".request.json") {
		t.Fatalf("request arg = %q", exec.args[6])
	}
	if _, err := os.Stat(out + ".request.json"); !os.IsNotExist(err) {
		t.Fatalf("request file should be removed, stat err = %v", err)
	}
}

func TestCommandExporterFailures(t *testing.T) {
	if _, err := scene.NewCommandExporter(nil, 0); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	req := scene.ExportRequest{Output: filepath.Join(t.TempDir(), "cam.abc")}

	failing, _ := scene.NewCommandExporter([]string{"tool", "{output}"}, 0, scene.WithExecutor(&recordingExecutor{err: errors.New("exit status 1")}))
	if err := failing.Export(context.Background(), req); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	silent, _ := scene.NewCommandExporter([]string{"tool", "{output}"}, 0, scene.WithExecutor(&recordingExecutor{}))
	if err := silent.Export(context.Background(), req); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected missing output to fail, got %v", err)
	}
}
