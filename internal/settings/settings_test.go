package settings_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"dccpub/internal/services"
	"dccpub/internal/settings"
)

const sampleYAML = `imageio:
  activate_host_color_management: true
  ocio_config:
    override_global_config: false
  file_rules:
    activate_host_rules: true
    rules:
      - name: plates
        pattern: "/plates/"
        colorspace: ACEScg
        ext: exr
      - name: anything-exr
        pattern: ".*"
        colorspace: linear
        ext: exr
  viewer:
    viewerProcess: sRGB
  baking:
    viewerProcess: rec709
  workfile:
    color_management: OCIO
    native_ocio_config: aces_1.2
    working_space: ACES - ACEScg
    thumbnail_space: sRGB
  nodes:
    required_nodes:
      - plugins: [CreateWriteRender]
        nuke_node_class: Write
        knobs:
          - {type: text, name: file_type, text: exr}
          - {type: boolean, name: autocrop, boolean: true}
          - {type: color_gui, name: tile_color, color_gui: [186, 35, 35]}
    override_nodes:
      - plugins: [CreateWriteRender]
        nuke_node_class: Write
        subsets: [renderLighting]
        knobs:
          - {type: text, name: file_type, text: png}
          - {type: number, name: quality, number: 0.9}
  regex_inputs:
    inputs:
      - regex: "[Rr]enders"
        colorspace: linear
creators:
  arnold_rop:
    image_format: png
    farm: false
  editorial:
    default_variants: [main, review]
publish:
  ExtractCameraAlembic:
    optional: true
    active: false
`

func writeSettings(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	s, err := settings.Load(writeSettings(t, "settings.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ImageIO.Workfile.ColorManagement != settings.ColorManagementOCIO {
		t.Fatalf("color management = %q", s.ImageIO.Workfile.ColorManagement)
	}
	creator, ok := s.Creator("arnold_rop")
	if !ok || creator.ImageFormat != "png" || creator.Farm == nil || *creator.Farm {
		t.Fatalf("creator settings = %+v", creator)
	}
	plugin := s.Plugin("ExtractCameraAlembic")
	if plugin.Active == nil || *plugin.Active {
		t.Fatalf("plugin settings = %+v", plugin)
	}
}

func TestFileRulesFirstMatchWins(t *testing.T) {
	s, err := settings.Load(writeSettings(t, "settings.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rule, ok := s.ImageIO.FileRules.Match("/show/plates/sh010.1001.exr")
	if !ok || rule.Name != "plates" {
		t.Fatalf("rule = %+v ok=%v", rule, ok)
	}
	rule, ok = s.ImageIO.FileRules.Match("/show/comp/sh010.1001.EXR")
	if !ok || rule.Name != "anything-exr" {
		t.Fatalf("rule = %+v ok=%v", rule, ok)
	}
	if _, ok := s.ImageIO.FileRules.Match("/show/plates/sh010.mov"); ok {
		t.Fatal("ext filter should exclude .mov")
	}
	if cs, ok := s.Colorspace("/show/Renders/beauty.mov"); !ok || cs != "linear" {
		t.Fatalf("regex input colorspace = %q ok=%v", cs, ok)
	}

	s.ImageIO.FileRules.ActivateHostRules = false
	if _, ok := s.ImageIO.FileRules.Match("/show/plates/sh010.1001.exr"); ok {
		t.Fatal("inactive host rules must not match")
	}
}

func TestNodeKnobsAppliesOverrides(t *testing.T) {
	s, err := settings.Load(writeSettings(t, "settings.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	base := s.NodeKnobs("CreateWriteRender", "Write", "renderMain")
	if len(base) != 3 || base[0].Value() != "exr" {
		t.Fatalf("base knobs = %v", base)
	}
	overridden := s.NodeKnobs("CreateWriteRender", "Write", "renderLighting")
	want := []settings.Knob{
		{Type: "text", Name: "file_type", Text: "png"},
		{Type: "boolean", Name: "autocrop", Boolean: true},
		{Type: "color_gui", Name: "tile_color", ColorGUI: []float64{186, 35, 35}},
		{Type: "number", Name: "quality", Number: 0.9},
	}
	if diff := cmp.Diff(want, overridden); diff != "" {
		t.Fatalf("knobs mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.RequiredNode("CreateWritePrerender", "Write"); ok {
		t.Fatal("unexpected required node")
	}
}

func TestValidationFailures(t *testing.T) {
	cases := map[string]string{
		"duplicate rule names": `imageio:
  file_rules:
    rules:
      - {name: a, pattern: x, colorspace: c}
      - {name: a, pattern: y, colorspace: c}
`,
		"bad regex": `imageio:
  file_rules:
    rules:
      - {name: a, pattern: "(", colorspace: c}
`,
		"bad enum": `imageio:
  workfile:
    color_management: Blender
`,
		"unknown ocio": `imageio:
  workfile:
    native_ocio_config: aces_9
`,
		"duplicate knobs": `imageio:
  nodes:
    required_nodes:
      - plugins: [CreateWriteRender]
        nuke_node_class: Write
        knobs:
          - {type: text, name: file_type, text: exr}
          - {type: text, name: file_type, text: png}
`,
		"unknown knob type": `imageio:
  nodes:
    required_nodes:
      - plugins: [CreateWriteRender]
        nuke_node_class: Write
        knobs:
          - {type: vector, name: x}
`,
		"unknown key": `imageio:
  colour: true
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := settings.Load(writeSettings(t, "settings.yaml", body))
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestTOMLMatchesYAML(t *testing.T) {
	fromYAML, err := settings.Load(writeSettings(t, "settings.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	var buf bytes.Buffer
	if err := settings.Encode(&buf, fromYAML, ".toml"); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	fromTOML, err := settings.Load(writeSettings(t, "settings.toml", buf.String()))
	if err != nil {
		t.Fatalf("Load toml: %v\n%s", err, buf.String())
	}
	opts := cmp.Options{
		cmpopts.IgnoreUnexported(settings.FileRule{}, settings.RegexInput{}),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(fromYAML, fromTOML, opts); diff != "" {
		t.Fatalf("toml round trip mismatch (-yaml +toml):\n%s", diff)
	}
}

func TestLoadOrDefault(t *testing.T) {
	s, found, err := settings.LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if _, ok := s.RequiredNode("CreateWriteRender", "Write"); !ok {
		t.Fatal("defaults should include the render write node")
	}
	if !s.CreatorEnabled("camera") {
		t.Fatal("creators are enabled by default")
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestWriteFileReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio", "settings.yaml")
	if err := settings.WriteFile(path, settings.Default()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, found, err := settings.LoadOrDefault(path)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	knobs := s.NodeKnobs("CreateWriteRender", "Write", "renderMain")
	if len(knobs) == 0 {
		t.Fatal("expected render write knobs after reload")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
}

func TestUnsupportedExtension(t *testing.T) {
	if _, err := settings.Decode(strings.NewReader("{}"), ".json"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestWatchReloadsValidChanges(t *testing.T) {
	path := writeSettings(t, "settings.yaml", sampleYAML)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	changes := make(chan *settings.Settings, 4)
	done := make(chan error, 1)
	go func() {
		done <- settings.Watch(ctx, path, 20*time.Millisecond, nil, func(s *settings.Settings) {
			changes <- s
		})
	}()

	updated := strings.Replace(sampleYAML, "image_format: png", "image_format: tif", 1)
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	// Keep rewriting until the watcher has registered and reports the change.
	for {
		select {
		case s := <-changes:
			creator, _ := s.Creator("arnold_rop")
			if creator.ImageFormat != "tif" {
				t.Fatalf("image format = %q", creator.ImageFormat)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch: %v", err)
			}
			return
		case <-ticker.C:
			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				t.Fatalf("rewrite: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}
