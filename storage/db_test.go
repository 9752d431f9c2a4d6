package storage

import (
	"errors"
	"testing"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	if err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("a"))
	if err != nil || string(got) != "1" {
		t.Fatalf("get: %q %v", got, err)
	}
	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.Delete([]byte("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := db.Has([]byte("a")); ok {
		t.Fatalf("key should be gone")
	}
}

func TestCacheDBCommitAndDiscard(t *testing.T) {
	parent := NewMemDB()
	_ = parent.Put([]byte("keep"), []byte("v0"))
	_ = parent.Put([]byte("drop"), []byte("v0"))

	cache := NewCacheDB(parent)
	_ = cache.Put([]byte("keep"), []byte("v1"))
	_ = cache.Delete([]byte("drop"))
	_ = cache.Put([]byte("new"), []byte("v2"))

	if v, _ := parent.Get([]byte("keep")); string(v) != "v0" {
		t.Fatalf("parent mutated before commit: %q", v)
	}
	if _, err := cache.Get([]byte("drop")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted key visible through overlay: %v", err)
	}

	cache.Discard()
	if cache.Dirty() {
		t.Fatalf("discard left writes behind")
	}
	if v, _ := cache.Get([]byte("keep")); string(v) != "v0" {
		t.Fatalf("discard did not restore parent view: %q", v)
	}

	_ = cache.Put([]byte("keep"), []byte("v1"))
	_ = cache.Delete([]byte("drop"))
	if err := cache.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if v, _ := parent.Get([]byte("keep")); string(v) != "v1" {
		t.Fatalf("commit not applied: %q", v)
	}
	if ok, _ := parent.Has([]byte("drop")); ok {
		t.Fatalf("delete not applied")
	}
}

func TestCacheDBIterateMergesOverlay(t *testing.T) {
	parent := NewMemDB()
	_ = parent.Put([]byte("p/1"), []byte("a"))
	_ = parent.Put([]byte("p/2"), []byte("b"))
	_ = parent.Put([]byte("q/1"), []byte("x"))

	cache := NewCacheDB(parent)
	_ = cache.Delete([]byte("p/1"))
	_ = cache.Put([]byte("p/3"), []byte("c"))

	var keys []string
	if err := cache.Iterate([]byte("p/"), func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(keys) != 2 || keys[0] != "p/2" || keys[1] != "p/3" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestLevelDBBatchCommit(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	cache := NewCacheDB(db)
	_ = cache.Put([]byte("k1"), []byte("v1"))
	_ = cache.Put([]byte("k2"), []byte("v2"))
	if err := cache.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	v, err := db.Get([]byte("k2"))
	if err != nil || string(v) != "v2" {
		t.Fatalf("leveldb get: %q %v", v, err)
	}
	if _, err := db.Get([]byte("nope")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
