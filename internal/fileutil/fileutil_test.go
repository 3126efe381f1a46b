package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cut.edl")
	dst := filepath.Join(dir, "out", "cut.edl")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	content := []byte("TITLE: reel_01\n")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	digest, err := CopyVerified(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(content)
	if digest != hex.EncodeToString(sum[:]) {
		t.Fatalf("digest = %s", digest)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}

	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the copied file, found %d entries", len(entries))
	}
}

func TestCopyVerifiedOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.otio")
	dst := filepath.Join(dir, "dst.otio")
	if err := os.WriteFile(dst, []byte("stale content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CopyVerified(src, dst); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "{}" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst.txt")
	if _, err := CopyVerified(filepath.Join(dir, "missing.txt"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("destination must not exist after a failed copy")
	}
}

func TestCopyVerifiedRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := CopyVerified(dir, filepath.Join(dir, "copy")); err == nil {
		t.Fatal("expected error for directory source")
	}
}

func TestStageInto(t *testing.T) {
	src := filepath.Join(t.TempDir(), "cut.edl")
	if err := os.WriteFile(src, []byte("001"), 0o644); err != nil {
		t.Fatal(err)
	}
	staging := t.TempDir()

	name, digest, err := StageInto(src, staging)
	if err != nil {
		t.Fatal(err)
	}
	if name != "cut.edl" || digest == "" {
		t.Fatalf("name=%q digest=%q", name, digest)
	}
	if _, err := os.Stat(filepath.Join(staging, name)); err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
}
