package instance_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"dccpub/internal/instance"
	"dccpub/internal/services"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newInstance(t *testing.T) *instance.Instance {
	t.Helper()
	inst, err := instance.New("camera", "cameraMain", map[string]any{
		instance.KeyFrameStartHandle: 1001,
		instance.KeyFrameEndHandle:   1100,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return inst
}

func TestNewRequiresFamilyAndSubset(t *testing.T) {
	if _, err := instance.New("", "x", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty family, got %v", err)
	}
	if _, err := instance.New("camera", " ", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty subset, got %v", err)
	}
}

func TestNewAssignsIdentity(t *testing.T) {
	a := newInstance(t)
	b := newInstance(t)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	if !a.Active {
		t.Fatal("new instances should be active")
	}
	if a.Family() != "camera" {
		t.Fatalf("family = %q", a.Family())
	}
}

func TestAddRepresentationValidates(t *testing.T) {
	dir := t.TempDir()
	inst := newInstance(t)

	missing := instance.Representation{Name: "abc", Ext: "abc", Files: instance.Single("cameraMain.abc"), StagingDir: dir}
	if err := inst.AddRepresentation(missing); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}

	writeFile(t, dir, "cameraMain.abc")
	wrongExt := instance.Representation{Name: "abc", Ext: "fbx", Files: instance.Single("cameraMain.abc"), StagingDir: dir}
	if err := inst.AddRepresentation(wrongExt); err == nil {
		t.Fatal("expected ext mismatch to fail")
	}
	if len(inst.Representations()) != 0 {
		t.Fatal("failed additions must not be recorded")
	}

	ok := instance.Representation{Name: "abc", Ext: "abc", Files: instance.Single("cameraMain.abc"), StagingDir: dir}
	if err := inst.AddRepresentation(ok.WithFrames(1001, 1100)); err != nil {
		t.Fatalf("AddRepresentation: %v", err)
	}
	reps := inst.Representations()
	if len(reps) != 1 || *reps[0].FrameStart != 1001 || *reps[0].FrameEnd != 1100 {
		t.Fatalf("unexpected representations: %+v", reps)
	}
}

func TestAddRepresentationRejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cameraMain.abc")
	inst := newInstance(t)
	rep := instance.Representation{Name: "abc", Ext: "abc", Files: instance.Single("cameraMain.abc"), StagingDir: dir}
	if err := inst.AddRepresentation(rep); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := inst.AddRepresentation(rep)
	if !errors.Is(err, instance.ErrAlreadyProcessed) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected already processed validation error, got %v", err)
	}
	if len(inst.Representations()) != 1 {
		t.Fatalf("expected a single representation, got %d", len(inst.Representations()))
	}
}

func TestAddRepresentationRejectsSharedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cameraMain.abc")
	inst := newInstance(t)
	first := instance.Representation{Name: "abc", Ext: "abc", Files: instance.Single("cameraMain.abc"), StagingDir: dir}
	if err := inst.AddRepresentation(first); err != nil {
		t.Fatalf("first add: %v", err)
	}
	second := first
	second.Name = "abc_alt"
	if err := inst.AddRepresentation(second); err == nil {
		t.Fatal("expected a second representation of the same file to fail")
	}
}

func TestAddRepresentationsIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "editorialMain.otio")
	inst := newInstance(t)
	good := instance.Representation{Name: "otio", Ext: "otio", Files: instance.Single("editorialMain.otio"), StagingDir: dir}
	missing := instance.Representation{Name: "edl", Ext: "edl", Files: instance.Single("cut.edl"), StagingDir: dir}

	if err := inst.AddRepresentations(good, missing); err == nil {
		t.Fatal("expected the missing file to reject the batch")
	}
	if n := len(inst.Representations()); n != 0 {
		t.Fatalf("rejected batch appended %d representation(s)", n)
	}

	twin := good
	twin.Name = "otio_copy"
	if err := inst.AddRepresentations(good, twin); err == nil {
		t.Fatal("expected a file shared inside the batch to be rejected")
	}
	if err := inst.AddRepresentations(good, good); !errors.Is(err, instance.ErrAlreadyProcessed) {
		t.Fatalf("expected duplicate name inside the batch to be rejected, got %v", err)
	}
	if n := len(inst.Representations()); n != 0 {
		t.Fatalf("rejected batches appended %d representation(s)", n)
	}
	if err := inst.AddRepresentations(good); err != nil {
		t.Fatalf("AddRepresentations: %v", err)
	}
}

func TestRepresentationsAreAppendOnly(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir, err := os.MkdirTemp("", "reps")
		if err != nil {
			rt.Fatalf("mkdir: %v", err)
		}
		defer os.RemoveAll(dir)

		inst, err := instance.New("render", "renderMain", nil)
		if err != nil {
			rt.Fatalf("New: %v", err)
		}
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,6}`), 1, 6, rapid.ID[string]).Draw(rt, "names")
		var added []string
		for _, name := range names {
			file := name + ".exr"
			if err := os.WriteFile(filepath.Join(dir, file), nil, 0o644); err != nil {
				rt.Fatalf("write: %v", err)
			}
			if err := inst.AddRepresentation(instance.Representation{Name: name, Ext: "exr", Files: instance.Single(file), StagingDir: dir}); err != nil {
				rt.Fatalf("add %s: %v", name, err)
			}
			added = append(added, name)
			repeat := rapid.Bool().Draw(rt, "repeat")
			if repeat {
				_ = inst.AddRepresentation(instance.Representation{Name: name, Ext: "exr", Files: instance.Single(file), StagingDir: dir})
			}
			var got []string
			for _, rep := range inst.Representations() {
				got = append(got, rep.Name)
			}
			if diff := cmp.Diff(added, got); diff != "" {
				rt.Fatalf("representation order mismatch (-want +got):\n%s", diff)
			}
		}
	})
}

func TestRepresentationsReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cameraMain.abc")
	inst := newInstance(t)
	if err := inst.AddRepresentation(instance.Representation{Name: "abc", Ext: "abc", Files: instance.Single("cameraMain.abc"), StagingDir: dir}); err != nil {
		t.Fatalf("add: %v", err)
	}
	reps := inst.Representations()
	reps[0].Name = "changed"
	if inst.Representations()[0].Name != "abc" {
		t.Fatal("caller mutation leaked into the instance")
	}
}

func TestFrameRange(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		start, end int
		wantErr    bool
	}{
		{name: "defaults", data: nil, start: 1, end: 1},
		{name: "ints", data: map[string]any{"frameStartHandle": 1001, "frameEndHandle": 1100}, start: 1001, end: 1100},
		{name: "whole floats", data: map[string]any{"frameStartHandle": 10.0, "frameEndHandle": 20.0}, start: 10, end: 20},
		{name: "start only", data: map[string]any{"frameStartHandle": 5}, start: 5, end: 5},
		{name: "fractional", data: map[string]any{"frameStartHandle": 1.5}, wantErr: true},
		{name: "inverted", data: map[string]any{"frameStartHandle": 10, "frameEndHandle": 2}, wantErr: true},
		{name: "garbage", data: map[string]any{"frameStartHandle": "abc"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := instance.New("camera", "cameraMain", tt.data)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			start, end, err := inst.FrameRange()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d-%d", start, end)
				}
				return
			}
			if err != nil {
				t.Fatalf("FrameRange: %v", err)
			}
			if start != tt.start || end != tt.end {
				t.Fatalf("range = %d-%d, want %d-%d", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestStoreRoundTripKeepsFamilyAndRepresentations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cameraMain.abc")
	inst := newInstance(t)
	inst.Asset = "sh010"
	inst.TaskName = "layout"
	inst.CreatorIdentifier = "io.openpype.creators.max.camera"
	inst.InstanceNode = "cameraMain"
	inst.CreatorAttributes["use_selection"] = true
	if err := inst.AddRepresentation(instance.Representation{Name: "abc", Ext: "abc", Files: instance.Single("cameraMain.abc"), StagingDir: dir}); err != nil {
		t.Fatalf("add: %v", err)
	}

	payload, err := inst.ToStore()
	if err != nil {
		t.Fatalf("ToStore: %v", err)
	}
	restored, err := instance.FromStore(payload)
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if restored.ID != inst.ID || restored.Family() != "camera" || restored.Asset != "sh010" {
		t.Fatalf("identity lost: %+v", restored)
	}
	if diff := cmp.Diff(inst.Representations(), restored.Representations()); diff != "" {
		t.Fatalf("representations mismatch (-want +got):\n%s", diff)
	}
	start, end, err := restored.FrameRange()
	if err != nil || start != 1001 || end != 1100 {
		t.Fatalf("frame range after round trip = %d-%d (%v)", start, end, err)
	}
}

func TestFromStoreRejectsIncompletePayload(t *testing.T) {
	if _, err := instance.FromStore([]byte(`{"family":"camera"}`)); err == nil {
		t.Fatal("expected missing id and subset to fail")
	}
}

func TestSubsetName(t *testing.T) {
	cases := map[[2]string]string{
		{"arnold_rop", "main"}:    "arnold_ropMain",
		{"render", "beautyPass"}:  "renderBeautyPass",
		{"camera", ""}:            "camera",
		{"editorial", " review "}: "editorialReview",
	}
	for in, want := range cases {
		if got := instance.SubsetName(in[0], in[1]); got != want {
			t.Fatalf("SubsetName(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func TestManifestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.0001.exr")
	writeFile(t, dir, "a.0002.exr")
	writeFile(t, dir, "a.abc")
	manifest := instance.Manifest{
		{Name: "exr", Ext: "exr", Files: instance.Sequence("a.0001.exr", "a.0002.exr"), StagingDir: dir},
		{Name: "abc", Ext: "abc", Files: instance.Single("a.abc"), StagingDir: dir},
	}
	path := filepath.Join(dir, "manifest.json")
	if err := manifest.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !containsAll(string(raw), `"files": "a.abc"`, `"stagingDir"`, `"a.0002.exr"`) {
		t.Fatalf("unexpected manifest shape:\n%s", raw)
	}
	loaded, err := instance.ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if diff := cmp.Diff(manifest, loaded); diff != "" {
		t.Fatalf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}
