package hostctx_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"dccpub/internal/hostctx"
	"dccpub/internal/instance"
	"dccpub/internal/services"
)

func stores(t *testing.T) map[string]hostctx.Store {
	t.Helper()
	sqlite, err := hostctx.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]hostctx.Store{
		"memory": hostctx.NewMemory(),
		"sqlite": sqlite,
	}
}

func newInstance(t *testing.T, family, subset string) *instance.Instance {
	t.Helper()
	inst, err := instance.New(family, subset, map[string]any{"chunkSize": 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	inst.Asset = "sh010"
	inst.TaskName = "lighting"
	return inst
}

func TestStoreContract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := newInstance(t, "arnold_rop", "arnold_ropMain")
			second := newInstance(t, "camera", "cameraMain")
			if err := store.Add(ctx, first); err != nil {
				t.Fatalf("Add first: %v", err)
			}
			if err := store.Add(ctx, second); err != nil {
				t.Fatalf("Add second: %v", err)
			}

			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
				t.Fatalf("List order = %v", list)
			}

			got, err := store.Get(ctx, first.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Family() != "arnold_rop" || got.Asset != "sh010" {
				t.Fatalf("Get = %+v", got)
			}
			if n, _, _ := got.Int("chunkSize"); n != 1 {
				t.Fatalf("chunkSize = %d", n)
			}

			got.Active = false
			got.Data["farm"] = true
			if err := store.Update(ctx, got.ID, got); err != nil {
				t.Fatalf("Update: %v", err)
			}
			reloaded, _ := store.Get(ctx, first.ID)
			if reloaded.Active {
				t.Fatal("update not persisted")
			}
			if farm, ok := reloaded.Bool("farm"); !ok || !farm {
				t.Fatal("data update not persisted")
			}

			if err := store.Remove(ctx, second.ID); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, err := store.Get(ctx, second.ID); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
			if err := store.Remove(ctx, second.ID); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected not found on second remove, got %v", err)
			}

			removed, err := store.Clear(ctx)
			if err != nil || removed != 1 {
				t.Fatalf("Clear = %d (%v)", removed, err)
			}
		})
	}
}

func TestStoreRejectsDuplicateSubset(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Add(ctx, newInstance(t, "render", "renderMain")); err != nil {
				t.Fatalf("Add: %v", err)
			}
			err := store.Add(ctx, newInstance(t, "render", "renderMain"))
			if !errors.Is(err, hostctx.ErrSubsetExists) {
				t.Fatalf("expected subset exists, got %v", err)
			}

			other := newInstance(t, "render", "renderMain")
			other.TaskName = "comp"
			if err := store.Add(ctx, other); err != nil {
				t.Fatalf("same subset under another task should be allowed: %v", err)
			}
		})
	}
}

func TestStoreRejectsDuplicateID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			inst := newInstance(t, "render", "renderMain")
			if err := store.Add(ctx, inst); err != nil {
				t.Fatalf("Add: %v", err)
			}
			again := inst.Clone()
			again.TaskName = "comp"
			err := store.Add(ctx, again)
			if !errors.Is(err, hostctx.ErrInstanceExists) || errors.Is(err, hostctx.ErrSubsetExists) {
				t.Fatalf("expected instance exists, got %v", err)
			}
			if !strings.Contains(err.Error(), inst.ID) {
				t.Fatalf("error should name the instance id: %v", err)
			}
		})
	}
}

func TestStoreUpdateGuards(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			inst := newInstance(t, "camera", "cameraMain")
			if err := store.Add(ctx, inst); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if err := store.Update(ctx, "other-id", inst); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected id mismatch validation error, got %v", err)
			}
			missing := newInstance(t, "camera", "cameraAlt")
			if err := store.Update(ctx, missing.ID, missing); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}

			payload, _ := inst.ToStore()
			payload = []byte(strings.Replace(string(payload), `"family":"camera"`, `"family":"pointcache"`, 1))
			changed, err := instance.FromStore(payload)
			if err != nil {
				t.Fatalf("FromStore: %v", err)
			}
			if err := store.Update(ctx, inst.ID, changed); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected family change to be rejected, got %v", err)
			}
		})
	}
}

func TestSessionIsExclusive(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "houdini-shot.db")
	first, err := hostctx.OpenSession(ctx, path)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if _, err := hostctx.OpenSession(ctx, path); !errors.Is(err, hostctx.ErrSessionLocked) {
		t.Fatalf("expected locked session, got %v", err)
	}
	if err := first.Add(ctx, newInstance(t, "camera", "cameraMain")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := hostctx.OpenSession(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	list, err := second.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v (%v)", list, err)
	}
}
