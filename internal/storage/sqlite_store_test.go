package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStoreSaveOverwriteAndLookup(t *testing.T) {
	store, err := NewStore(TypeSQLite, filepath.Join(t.TempDir(), "directory.sqlite"), Options{})
	if err != nil {
		t.Fatalf("NewStore sqlite: %v", err)
	}
	defer store.Close()

	if err := store.Save("telegram", "carol", "10"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save("telegram", "carol", "11"); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	value, found, err := store.Lookup("telegram", "carol")
	if err != nil || !found {
		t.Fatalf("Lookup: found=%v err=%v", found, err)
	}
	if value != "11" {
		t.Fatalf("expected overwritten value 11, got %q", value)
	}
}

func TestSQLiteStoreHonoursTTL(t *testing.T) {
	raw, err := openSQLite(filepath.Join(t.TempDir(), "directory.sqlite"), Options{
		EntryTTL:        time.Second,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("openSQLite: %v", err)
	}
	store := raw.(*sqliteStore)
	defer store.Close()

	if err := store.Save("telegram", "dave", "12"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(2100 * time.Millisecond)

	if _, found, err := store.Lookup("telegram", "dave"); err != nil || found {
		t.Fatalf("expected expired entry to be hidden, found=%v err=%v", found, err)
	}
}
