package create_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"dccpub/internal/create"
	"dccpub/internal/host"
	"dccpub/internal/host/scene"
	"dccpub/internal/hostctx"
	"dccpub/internal/instance"
	"dccpub/internal/services"
	"dccpub/internal/settings"
	"dccpub/internal/testsupport"
	"dccpub/internal/timeline"
)

func newDeps(adapter host.Adapter, s *settings.Settings) (create.Deps, *hostctx.Memory) {
	store := hostctx.NewMemory()
	return create.Deps{
		Store:    store,
		Assets:   testsupport.NewAssets(),
		Adapter:  adapter,
		Settings: s,
		Project:  testsupport.Project,
	}, store
}

func shotData(variant string) map[string]any {
	return map[string]any{
		"asset":   testsupport.Asset,
		"task":    testsupport.Task,
		"variant": variant,
		"active":  true,
	}
}

func listAll(t *testing.T, store hostctx.Store) []*instance.Instance {
	t.Helper()
	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return list
}

func TestArnoldROPBuildsRenderNode(t *testing.T) {
	sc := testsupport.NewScene(t, "houdini", scene.WithVariable("HIP", "/proj/sh010"))
	deps, store := newDeps(sc, nil)
	creator := create.NewArnoldROP(deps)

	inst, err := creator.Create(context.Background(), "arnold_ropMain", shotData("main"),
		map[string]any{"farm": true, "image_format": "png"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if inst.Family() != "arnold_rop" || inst.CreatorIdentifier != "io.openpype.creators.houdini.arnold_rop" {
		t.Fatalf("unexpected identity %q %q", inst.Family(), inst.CreatorIdentifier)
	}
	if got := inst.String(instance.KeyNodeType); got != "arnold" {
		t.Fatalf("node_type = %q", got)
	}
	if chunk, _, _ := inst.Int(instance.KeyChunkSize); chunk != 1 {
		t.Fatalf("chunkSize = %d", chunk)
	}
	if farm, ok := inst.Bool(instance.KeyFarm); !ok || !farm {
		t.Fatalf("farm = %v %v", farm, ok)
	}
	if _, ok := inst.Data["active"]; ok {
		t.Fatal("active must not be stored in data")
	}
	if len(inst.Representations()) != 0 {
		t.Fatal("expected no representations after create")
	}
	if inst.InstanceNode != "/out/arnold_ropMain" {
		t.Fatalf("instance node = %q", inst.InstanceNode)
	}

	node := host.Node(inst.InstanceNode)
	nodeType, err := sc.NodeType(node)
	if err != nil || nodeType != "arnold" {
		t.Fatalf("node type = %q, %v", nodeType, err)
	}
	params, err := sc.Parameters(node)
	if err != nil {
		t.Fatalf("Parameters: %v", err)
	}
	if params["trange"] != 1 || params["ar_exr_half_precision"] != 1 {
		t.Fatalf("unexpected render params %v", params)
	}
	want := "/proj/sh010/pyblish/renders/arnold_ropMain/arnold_ropMain.$F4.png"
	if params["ar_picture"] != want {
		t.Fatalf("ar_picture = %v, want %s", params["ar_picture"], want)
	}
	locked, _ := sc.LockedParameters(node)
	if !slices.Equal(locked, []string{"family", "id"}) {
		t.Fatalf("locked = %v", locked)
	}

	stored, err := store.Get(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.InstanceNode != inst.InstanceNode {
		t.Fatalf("stored instance node = %q", stored.InstanceNode)
	}
}

func TestArnoldROPDefaultsFollowSettings(t *testing.T) {
	s := settings.Default()
	farm := false
	s.Creators["arnold_rop"] = settings.CreatorSettings{ImageFormat: "tif", Farm: &farm}
	deps, _ := newDeps(testsupport.NewScene(t, "houdini"), s)

	defs, err := create.NewArnoldROP(deps).PreCreateAttrDefs()
	if err != nil {
		t.Fatalf("PreCreateAttrDefs: %v", err)
	}
	defaults := defs.Defaults()
	if defaults["image_format"] != "tif" || defaults["farm"] != false {
		t.Fatalf("unexpected defaults %v", defaults)
	}
	if defaults["use_selection"] != false {
		t.Fatalf("expected base use_selection option, got %v", defaults)
	}
}

func TestCreateRejectsEmptySubset(t *testing.T) {
	deps, store := newDeps(testsupport.NewScene(t, "houdini"), nil)
	_, err := create.NewArnoldROP(deps).Create(context.Background(), "  ", shotData("main"), nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(listAll(t, store)) != 0 {
		t.Fatal("nothing should be registered")
	}
}

func TestCreateUnknownAssetIsNotRegistered(t *testing.T) {
	sc := testsupport.NewScene(t, "houdini")
	deps, store := newDeps(sc, nil)
	data := shotData("main")
	data["asset"] = "sh999"

	inst, err := create.NewArnoldROP(deps).Create(context.Background(), "arnold_ropMain", data, nil)
	if !errors.Is(err, services.ErrUnknownAsset) {
		t.Fatalf("expected unknown asset, got %v", err)
	}
	if inst != nil || len(listAll(t, store)) != 0 {
		t.Fatal("unknown asset must not register an instance")
	}
	if _, ok := sc.FindNode("/out/arnold_ropMain"); ok {
		t.Fatal("unknown asset must not touch the scene")
	}

	data = shotData("main")
	data["task"] = "compositing"
	if _, err := create.NewArnoldROP(deps).Create(context.Background(), "arnold_ropMain", data, nil); !errors.Is(err, services.ErrUnknownAsset) {
		t.Fatalf("expected unknown task error, got %v", err)
	}
}

func TestHostMutationFailureKeepsRecord(t *testing.T) {
	sc := testsupport.NewScene(t, "houdini")
	out, err := sc.CreateNode("", "ropnet", "out")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if _, err := sc.CreateNode(out, "mantra", "arnold_ropMain"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	deps, store := newDeps(sc, nil)

	inst, err := create.NewArnoldROP(deps).Create(context.Background(), "arnold_ropMain", shotData("main"), nil)
	if !errors.Is(err, services.ErrHostMutation) {
		t.Fatalf("expected host mutation error, got %v", err)
	}
	if !services.IsWarning(err) {
		t.Fatal("host mutation failures are warnings")
	}
	if inst == nil {
		t.Fatal("expected the registered instance to be returned")
	}
	list := listAll(t, store)
	if len(list) != 1 || list[0].ID != inst.ID {
		t.Fatalf("expected record kept, got %d", len(list))
	}
}

func TestDuplicateSubsetRejected(t *testing.T) {
	deps, _ := newDeps(testsupport.NewScene(t, "houdini"), nil)
	creator := create.NewArnoldROP(deps)
	if _, err := creator.Create(context.Background(), "arnold_ropMain", shotData("main"), nil); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := creator.Create(context.Background(), "arnold_ropMain", shotData("main"), nil)
	if !errors.Is(err, hostctx.ErrSubsetExists) {
		t.Fatalf("expected subset conflict, got %v", err)
	}
}

func TestMaxCameraRecordsSelectionAndHandles(t *testing.T) {
	sc := testsupport.NewScene(t, "max")
	cam, err := sc.CreateNode("", "Camera", "shotCam")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if _, err := sc.CreateNode(cam, "Target", "aim"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := sc.Select(cam); err != nil {
		t.Fatalf("Select: %v", err)
	}
	deps, _ := newDeps(sc, nil)

	inst, err := create.NewMaxCamera(deps).Create(context.Background(), "cameraMain", shotData("main"),
		map[string]any{"use_selection": true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := inst.Strings(instance.KeyMembers); !slices.Equal(got, []string{"/shotCam"}) {
		t.Fatalf("members = %v", got)
	}
	start, end, err := inst.FrameRange()
	if err != nil || start != 991 || end != 1110 {
		t.Fatalf("frame range = %d-%d %v", start, end, err)
	}
	if _, ok := sc.FindNode("/cameraMain"); !ok {
		t.Fatal("expected container node")
	}

	noSel, err := create.NewMaxCamera(deps).Create(context.Background(), "cameraAlt", shotData("alt"), nil)
	if err != nil {
		t.Fatalf("Create without selection: %v", err)
	}
	if got := noSel.Strings(instance.KeyMembers); len(got) != 0 {
		t.Fatalf("expected no members, got %v", got)
	}
}

func TestNukeWriteAppliesNodePresets(t *testing.T) {
	s := settings.Default()
	s.ImageIO.Nodes.OverrideNodes = []settings.OverrideNode{{
		Plugins:   []string{"CreateWriteRender"},
		NodeClass: "Write",
		Subsets:   []string{"renderPreview"},
		Knobs:     []settings.Knob{{Type: settings.KnobText, Name: "file_type", Text: "png"}},
	}}
	sc := testsupport.NewScene(t, "nuke")
	deps, _ := newDeps(sc, s)
	creator := create.NewNukeWrite(deps)

	main, err := creator.Create(context.Background(), "renderMain", shotData("main"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	params, _ := sc.Parameters(host.Node(main.InstanceNode))
	if params["file_type"] != "exr" || params["datatype"] != "16 bit half" {
		t.Fatalf("unexpected required knobs %v", params)
	}
	if params["create_directories"] != true {
		t.Fatalf("expected boolean knob, got %v", params["create_directories"])
	}

	preview, err := creator.Create(context.Background(), "renderPreview", shotData("preview"),
		map[string]any{"render_target": "farm"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	params, _ = sc.Parameters(host.Node(preview.InstanceNode))
	if params["file_type"] != "png" {
		t.Fatalf("expected override knob, got %v", params["file_type"])
	}
	if farm, _ := preview.Bool(instance.KeyFarm); !farm {
		t.Fatal("farm render target should mark the instance for the farm")
	}
}

func TestEditorialSimpleCreatesClipPerShot(t *testing.T) {
	path := testsupport.WriteText(t, t.TempDir(), "cut.edl", testsupport.ThreeShotEDL)
	deps, store := newDeps(nil, nil)
	clips := create.NewEditorialClip(deps)
	creator := create.NewEditorialSimple(deps, clips, 0)

	inst, err := creator.Create(context.Background(), "editorialMain",
		map[string]any{"asset": testsupport.Asset, "task": "edit"},
		map[string]any{"sequence_filepath_data": path})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inst.Variant != "main" {
		t.Fatalf("variant = %q", inst.Variant)
	}
	if v, _ := inst.Bool(create.KeyEditorialCreator); !v {
		t.Fatal("expected editorial_creator flag")
	}
	if inst.CreatorAttributes["sequence_filepath_data"] != path {
		t.Fatalf("creator attributes = %v", inst.CreatorAttributes)
	}

	list := listAll(t, store)
	if len(list) != 4 {
		t.Fatalf("expected 1 editorial + 3 clips, got %d", len(list))
	}
	var editorial int
	var shots []string
	for _, item := range list {
		switch item.Family() {
		case "editorial":
			editorial++
		case "clip":
			shots = append(shots, item.SubsetName)
			if item.String(create.KeyParentInstanceID) != inst.ID {
				t.Fatalf("clip %s parent = %q", item.SubsetName, item.String(create.KeyParentInstanceID))
			}
			if item.CreatorIdentifier != "editorial.clip" {
				t.Fatalf("clip creator = %q", item.CreatorIdentifier)
			}
		}
	}
	if editorial != 1 || !slices.Equal(shots, []string{"sh010", "sh020", "sh030"}) {
		t.Fatalf("editorial=%d shots=%v", editorial, shots)
	}

	second := list[2]
	checks := map[string]int{
		"clipIn": 25, "clipOut": 74, "sourceIn": 180250, "sourceOut": 180299,
		"frameStart": 1001, "frameEnd": 1050,
	}
	for key, want := range checks {
		got, _, err := second.Int(key)
		if err != nil || got != want {
			t.Fatalf("%s = %d (%v), want %d", key, got, err, want)
		}
	}
	start, end, err := second.FrameRange()
	if err != nil || start != 991 || end != 1060 {
		t.Fatalf("clip frame range %d-%d %v", start, end, err)
	}
	if fps, ok := second.Data["fps"].(float64); !ok || fps != timeline.DefaultEDLRate {
		t.Fatalf("fps = %v", second.Data["fps"])
	}
}

func TestEditorialAcceptsFilePickerShape(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteText(t, dir, "cut.edl", testsupport.ThreeShotEDL)
	deps, _ := newDeps(nil, nil)
	creator := create.NewEditorialSimple(deps, create.NewEditorialClip(deps), 24)

	inst, err := creator.Create(context.Background(), "editorialReview",
		map[string]any{"asset": testsupport.Asset, "task": "edit", "variant": "review"},
		map[string]any{"sequence_filepath_data": map[string]any{
			"directory": dir,
			"filenames": []any{"cut.edl"},
		}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := inst.String(create.KeySequencePath); got != filepath.Join(dir, "cut.edl") {
		t.Fatalf("sequence path = %q", got)
	}
	if fps, _ := inst.Data["fps"].(float64); fps != 24 {
		t.Fatalf("expected configured fallback rate, got %v", inst.Data["fps"])
	}
}

func TestEditorialRejectsMissingOrUnsupportedFile(t *testing.T) {
	deps, store := newDeps(nil, nil)
	creator := create.NewEditorialSimple(deps, create.NewEditorialClip(deps), 0)
	data := map[string]any{"asset": testsupport.Asset, "task": "edit"}

	if _, err := creator.Create(context.Background(), "editorialMain", data, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without a file, got %v", err)
	}
	xml := testsupport.WriteText(t, t.TempDir(), "cut.xml", "<xmeml/>")
	_, err := creator.Create(context.Background(), "editorialMain", data, map[string]any{"sequence_filepath_data": xml})
	if !errors.Is(err, timeline.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if len(listAll(t, store)) != 0 {
		t.Fatal("failed reads must not register instances")
	}
}

func TestNukeWriteColorspaceFollowsFileRules(t *testing.T) {
	s := settings.Default()
	s.ImageIO.FileRules = settings.FileRules{
		ActivateHostRules: true,
		Rules: []settings.FileRule{
			{Name: "plates", Pattern: `/plates/`, Colorspace: "ACES - ACES2065-1", Ext: "exr"},
			{Name: "renders", Pattern: `/renders/nuke/`, Colorspace: "ACES - ACEScg", Ext: "exr"},
		},
	}
	s.ImageIO.Nodes.OverrideNodes = []settings.OverrideNode{{
		Plugins:   []string{"CreateWriteRender"},
		NodeClass: "Write",
		Subsets:   []string{"renderPreview"},
		Knobs:     []settings.Knob{{Type: settings.KnobText, Name: "colorspace", Text: "sRGB"}},
	}}
	sc := testsupport.NewScene(t, "nuke")
	deps, _ := newDeps(sc, s)
	creator := create.NewNukeWrite(deps)

	main, err := creator.Create(context.Background(), "renderMain", shotData("main"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	params, _ := sc.Parameters(host.Node(main.InstanceNode))
	file, _ := params["file"].(string)
	if !strings.HasSuffix(file, "/renders/nuke/renderMain/renderMain.####.exr") {
		t.Fatalf("unexpected file knob %q", file)
	}
	if params["colorspace"] != "ACES - ACEScg" {
		t.Fatalf("colorspace = %v, want the renders rule", params["colorspace"])
	}

	preview, err := creator.Create(context.Background(), "renderPreview", shotData("preview"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	params, _ = sc.Parameters(host.Node(preview.InstanceNode))
	if params["colorspace"] != "sRGB" {
		t.Fatalf("knob preset should win over file rules, got %v", params["colorspace"])
	}
}
