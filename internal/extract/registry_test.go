package extract_test

import (
	"context"
	"errors"
	"testing"

	"dccpub/internal/extract"
	"dccpub/internal/instance"
	"dccpub/internal/services"
)

type fakeExtractor struct {
	name  string
	order float64
}

func (f fakeExtractor) Name() string       { return f.name }
func (f fakeExtractor) Label() string      { return f.name }
func (f fakeExtractor) Order() float64     { return f.order }
func (f fakeExtractor) Families() []string { return []string{"camera"} }
func (f fakeExtractor) Hosts() []string    { return []string{"max"} }
func (f fakeExtractor) Optional() bool     { return false }
func (f fakeExtractor) Process(context.Context, *extract.Env, *instance.Instance) error {
	return nil
}

func TestRegistryOrdersByOrderThenName(t *testing.T) {
	reg, err := extract.NewRegistry(
		fakeExtractor{name: "b", order: 2},
		fakeExtractor{name: "a", order: 2},
		fakeExtractor{name: "z", order: 1},
		extract.CameraAlembic{},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	var names []string
	for _, e := range reg.For("camera", "max") {
		names = append(names, e.Name())
	}
	want := []string{"z", "ExtractCameraAlembic", "a", "b"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if got := reg.For("camera", "houdini"); len(got) != 0 {
		t.Fatalf("expected no houdini extractors, got %d", len(got))
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := extract.NewRegistry(extract.CameraAlembic{}, extract.CameraAlembic{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuiltinExtractors(t *testing.T) {
	reg := extract.Builtin()
	if len(reg.All()) != 2 {
		t.Fatalf("expected two builtin extractors, got %d", len(reg.All()))
	}
	if got := reg.For("editorial", "traypublisher"); len(got) != 1 || got[0].Name() != "ExtractEditorialOTIO" {
		t.Fatalf("unexpected editorial extractors %v", got)
	}
}
