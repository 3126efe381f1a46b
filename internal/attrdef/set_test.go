package attrdef_test

import (
	"errors"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"

	"dccpub/internal/attrdef"
	"dccpub/internal/services"
)

func TestNewSetRejectsDuplicateKeys(t *testing.T) {
	_, err := attrdef.NewSet(
		attrdef.BoolDef("farm", "Submitting to Farm", true),
		attrdef.EnumDef("farm", "Farm", []string{"a", "b"}, "a"),
	)
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !errors.Is(err, attrdef.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key marker, got %v", err)
	}
}

func TestExtendRejectsKeysFromBase(t *testing.T) {
	base := attrdef.MustSet(attrdef.BoolDef("use_selection", "Use selection", true))
	if _, err := base.Extend(attrdef.BoolDef("use_selection", "again", false)); !errors.Is(err, attrdef.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	extended, err := base.Extend(attrdef.BoolDef("farm", "Farm", true))
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if base.Len() != 1 || extended.Len() != 2 {
		t.Fatalf("expected base untouched, got base=%d extended=%d", base.Len(), extended.Len())
	}
	if extended.Definitions()[0].Key() != "use_selection" {
		t.Fatal("expected base definitions first")
	}
}

func TestEnumDefaultMustBeMember(t *testing.T) {
	_, err := attrdef.NewSet(attrdef.EnumDef("image_format", "Image Format", []string{"exr", "png"}, "tif"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestResolveAppliesDefaultsAndIgnoresUnknownKeys(t *testing.T) {
	set := attrdef.MustSet(
		attrdef.BoolDef("farm", "Farm", true),
		attrdef.EnumDef("image_format", "Image Format", []string{"exr", "png"}, "exr"),
		attrdef.NumberDef("chunk", "Chunk", 1, attrdef.WithMin(1), attrdef.WithMax(100)),
		attrdef.TextDef("comment", "Comment", ""),
		attrdef.FileDef("sequence_filepath_data", "Filepath", []string{".edl", ".otio"}),
	)

	got := set.Resolve(map[string]any{
		"farm":                   "false",
		"image_format":           "jpg",
		"chunk":                  "10",
		"unknown":                1,
		"sequence_filepath_data": "/edit/cut.EDL",
	})
	if got["farm"] != false {
		t.Fatalf("expected farm=false, got %v", got["farm"])
	}
	if got["image_format"] != "exr" {
		t.Fatalf("expected invalid enum to fall back to default, got %v", got["image_format"])
	}
	if got["chunk"] != 10 {
		t.Fatalf("expected chunk=10, got %#v", got["chunk"])
	}
	if got["comment"] != "" {
		t.Fatalf("expected default comment, got %v", got["comment"])
	}
	if got["sequence_filepath_data"] != "/edit/cut.EDL" {
		t.Fatalf("expected file path kept, got %v", got["sequence_filepath_data"])
	}
	if _, ok := got["unknown"]; ok {
		t.Fatal("expected unknown key to be ignored")
	}
}

func TestNumberBoundsAndIntegers(t *testing.T) {
	def := attrdef.NumberDef("chunk", "Chunk", 1, attrdef.WithMin(1), attrdef.WithMax(10))
	if _, ok := def.Coerce(11); ok {
		t.Fatal("expected value above max to be rejected")
	}
	if _, ok := def.Coerce(2.5); ok {
		t.Fatal("expected fractional value to be rejected for integer number")
	}
	fps := attrdef.NumberDef("fps", "FPS", 25, attrdef.WithDecimals(3))
	if v, ok := fps.Coerce("23.976"); !ok || v != 23.976 {
		t.Fatalf("expected decimal coercion, got %v %v", v, ok)
	}
}

func TestFileDefSequences(t *testing.T) {
	single := attrdef.FileDef("edl", "EDL", []string{"edl"})
	if _, ok := single.Coerce([]string{"a.edl", "b.edl"}); ok {
		t.Fatal("expected sequence rejected without AllowSequences")
	}
	seq := attrdef.FileDef("plates", "Plates", []string{".exr"}).AllowSequences()
	if _, ok := seq.Coerce([]any{"a.0001.exr", "a.0002.exr"}); !ok {
		t.Fatal("expected sequence accepted")
	}
	if _, ok := seq.Coerce([]string{"a.0001.exr", "a.0002.png"}); ok {
		t.Fatal("expected mixed extensions rejected")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	set := attrdef.MustSet(
		attrdef.BoolDef("farm", "Farm", true),
		attrdef.EnumDef("image_format", "Image Format", []string{"exr", "png"}, "exr"),
	)
	err := set.Validate(map[string]any{"farm": "maybe", "image_format": "png", "other": 1})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var fieldErr attrdef.FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Key != "farm" {
		t.Fatalf("expected farm field error, got %v", err)
	}
	if err := set.Validate(map[string]any{"image_format": "png"}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestResolveAlwaysCoversEveryKey(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}`), 1, 6, rapid.ID[string]).Draw(t, "keys")
		defs := make([]attrdef.Definition, 0, len(keys))
		for _, key := range keys {
			defs = append(defs, attrdef.BoolDef(key, key, rapid.Bool().Draw(t, "default")))
		}
		set, err := attrdef.NewSet(defs...)
		if err != nil {
			t.Fatalf("NewSet failed: %v", err)
		}
		input := map[string]any{}
		for _, key := range rapid.SliceOf(rapid.StringMatching(`[a-z]{1,8}`)).Draw(t, "input") {
			input[key] = rapid.OneOf(rapid.Just[any](true), rapid.Just[any]("junk"), rapid.Just[any](0)).Draw(t, "value")
		}
		resolved := set.Resolve(input)
		if len(resolved) != len(keys) {
			t.Fatalf("expected %d keys, got %d", len(keys), len(resolved))
		}
		for _, key := range keys {
			if _, ok := resolved[key].(bool); !ok {
				t.Fatalf("expected bool for %q, got %#v", key, resolved[key])
			}
		}
	})
}

func TestDuplicateKeysAlwaysFail(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z_]{1,12}`).Draw(t, "key")
		others := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z]{1,4}`), 0, 4, rapid.ID[string]).Draw(t, "others")
		defs := []attrdef.Definition{attrdef.TextDef(key, "first", "")}
		for _, other := range others {
			defs = append(defs, attrdef.TextDef(other, other, ""))
		}
		defs = append(defs, attrdef.BoolDef(key, "second", false))
		if _, err := attrdef.NewSet(defs...); !errors.Is(err, attrdef.ErrDuplicateKey) {
			t.Fatalf("expected duplicate key error, got %v", err)
		}
	})
}

func TestFileDefDirectoryShape(t *testing.T) {
	def := attrdef.FileDef("sequence_filepath_data", "Sequence", []string{".edl", ".otio"})
	v, ok := def.Coerce(map[string]any{"directory": "/edit", "filenames": []any{"cut.edl"}})
	if !ok {
		t.Fatal("expected directory shape accepted")
	}
	if v != filepath.Join("/edit", "cut.edl") {
		t.Fatalf("unexpected path %v", v)
	}
	if _, ok := def.Coerce(map[string]any{"directory": "/edit"}); ok {
		t.Fatal("expected empty filenames rejected")
	}
}
