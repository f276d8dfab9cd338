package storage

import (
	"testing"
	"time"
)

func TestBoltStoreSavesAndExpiresEntries(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		EntryTTL:        1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/directory.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	_, found, err := store.Lookup("telegram", "alice")
	if err != nil || found {
		t.Fatalf("expected missing entry, found=%v err=%v", found, err)
	}

	if err := store.Save("telegram", "alice", "4242"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	value, found, err := store.Lookup("telegram", "alice")
	if err != nil || !found || value != "4242" {
		t.Fatalf("expected saved entry, got value=%q found=%v err=%v", value, found, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	_, found, err = store.Lookup("telegram", "alice")
	if err != nil {
		t.Fatalf("Lookup after expiry: %v", err)
	}
	if found {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestBoltStoreNamespacesAreIsolated(t *testing.T) {
	store, err := NewStore(TypeBBolt, t.TempDir()+"/directory.db", Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.Save("telegram", "bob", "1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, found, _ := store.Lookup("line", "bob"); found {
		t.Fatalf("expected lookup in another namespace to miss")
	}
}

func TestDecodeEntryRejectsShortValues(t *testing.T) {
	if _, _, ok := decodeEntry([]byte{1, 2}); ok {
		t.Fatalf("expected short entry to be rejected")
	}
	expiry, value, ok := decodeEntry(encodeEntry(time.Unix(100, 0), "x"))
	if !ok || value != "x" || expiry.Unix() != 100 {
		t.Fatalf("round trip failed: %v %q %v", expiry, value, ok)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Save("x", "y", "z"); err != nil {
		t.Fatalf("noop store Save: %v", err)
	}
	if _, found, _ := store.Lookup("x", "y"); found {
		t.Fatalf("noop store should never find entries")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "/tmp/x", Options{}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
}
