package testsupport

import (
	"context"
	"testing"

	"dccpub/internal/assetdb"
	"dccpub/internal/config"
	"dccpub/internal/host/scene"
	"dccpub/internal/hostctx"
)

// Fixture names shared across package tests.
const (
	Project = "demo"
	Asset   = "sh010"
	Task    = "lighting"
)

// AssetDoc returns the default seeded asset: frames 1001-1100 at 25 fps with
// 10 frame handles.
func AssetDoc() assetdb.AssetDoc {
	return assetdb.AssetDoc{
		Project:     Project,
		Name:        Asset,
		Tasks:       []string{Task, "animation", "edit"},
		FPS:         25,
		FrameStart:  1001,
		FrameEnd:    1100,
		HandleStart: 10,
		HandleEnd:   10,
	}
}

// NewAssets returns an in-memory database holding AssetDoc plus docs.
func NewAssets(docs ...assetdb.AssetDoc) *assetdb.Memory {
	return assetdb.NewMemory(append([]assetdb.AssetDoc{AssetDoc()}, docs...)...)
}

// MustOpenAssets opens the sqlite asset database at the configured path,
// seeds AssetDoc, and registers cleanup.
func MustOpenAssets(t testing.TB, cfg *config.Config) *assetdb.SQLite {
	t.Helper()

	db, err := assetdb.Open(context.Background(), cfg.Paths.AssetDBPath)
	if err != nil {
		t.Fatalf("assetdb.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if _, err := db.Upsert(context.Background(), AssetDoc()); err != nil {
		t.Fatalf("seed asset: %v", err)
	}
	return db
}

// MustOpenSession opens the host context session for cfg and registers
// cleanup.
func MustOpenSession(t testing.TB, cfg *config.Config) *hostctx.Session {
	t.Helper()

	session, err := hostctx.OpenSession(context.Background(), cfg.SessionStorePath())
	if err != nil {
		t.Fatalf("hostctx.OpenSession: %v", err)
	}
	t.Cleanup(func() {
		session.Close()
	})
	return session
}

// NewScene returns an empty scene for hostName with $HIP set to a temp dir.
func NewScene(t testing.TB, hostName string, opts ...scene.Option) *scene.Scene {
	t.Helper()

	opts = append([]scene.Option{scene.WithVariable("HIP", t.TempDir())}, opts...)
	return scene.New(hostName, opts...)
}
