package credentials_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

func setupFileStore(t *testing.T) *credentials.FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session", "credentials.json")
	store, err := credentials.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFileStore_MissingFileIsSignedOut(t *testing.T) {
	t.Parallel()
	store := setupFileStore(t)

	// no file yet means no credentials
	_, ok, err := store.Get(context.Background(), credentials.KeyAccess)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected no access credential")
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := setupFileStore(t)

	if err := credentials.SavePair(ctx, store, "acc", "ref"); err != nil {
		t.Fatalf("SavePair failed: %v", err)
	}

	// a second store on the same path sees the saved pair
	reopened, err := credentials.NewFileStore(store.Path())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	refresh, ok, _ := reopened.Get(ctx, credentials.KeyRefresh)
	if !ok || refresh != "ref" {
		t.Errorf("refresh = %q (ok=%v), want ref", refresh, ok)
	}
}

func TestFileStore_OwnerOnlyPermissions(t *testing.T) {
	t.Parallel()
	store := setupFileStore(t)

	_ = store.Set(context.Background(), credentials.KeyAccess, "acc")

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestFileStore_RemoveMissingKey(t *testing.T) {
	t.Parallel()
	store := setupFileStore(t)

	// removing an absent key is not an error
	if err := store.Remove(context.Background(), credentials.KeyUser); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("not-json"), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// unreadable file is rejected up front
	if _, err := credentials.NewFileStore(path); err == nil {
		t.Fatal("expected error for corrupt credential file")
	}
}

func TestFileStore_WatchSeesExternalPurge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := setupFileStore(t)

	// setup
	if err := credentials.SavePair(ctx, store, "acc", "ref"); err != nil {
		t.Fatalf("SavePair failed: %v", err)
	}

	changed := make(chan struct{}, 8)
	if err := store.Watch(func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// another process signs out by purging through its own store
	other, err := credentials.NewFileStore(store.Path())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := credentials.Purge(ctx, other); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-changed:
			if _, ok, _ := store.Get(ctx, credentials.KeyRefresh); !ok {
				return
			}
		case <-deadline:
			t.Fatal("watched store never observed the external purge")
		}
	}
}
