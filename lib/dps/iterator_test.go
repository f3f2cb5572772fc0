package dps

import (
	"bytes"
	"fmt"
	"testing"
)

func TestIteratorYieldsAllItems(t *testing.T) {
	store := newTestStore(t, "iterable")

	const items = 20
	want := make(map[string]string, items)
	for i := 0; i < items; i++ {
		key := fmt.Sprintf("key-%d", i)
		value := fmt.Sprintf("value-%d", i)
		want[key] = value
		if err := store.Put([]byte(key), []byte(value)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	it, err := store.NewIterator()
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Close()

	seen := make(map[string]string, items)
	for {
		key, value, ok, err := it.GetNext()
		if err != nil {
			t.Fatalf("GetNext failed: %v", err)
		}
		if !ok {
			break
		}
		if _, dup := seen[string(key)]; dup {
			t.Errorf("iterator yielded key %q twice", key)
		}
		seen[string(key)] = string(value)
	}

	if len(seen) != items {
		t.Fatalf("expected %d items, got %d", items, len(seen))
	}
	for key, value := range want {
		if seen[key] != value {
			t.Errorf("key %q: expected %q, got %q", key, value, seen[key])
		}
	}

	// exhausted iterators keep reporting exhaustion
	if _, _, ok, err := it.GetNext(); ok || err != nil {
		t.Errorf("expected exhaustion, got ok=%v err=%v", ok, err)
	}
}

func TestIteratorOnEmptyStore(t *testing.T) {
	store := newTestStore(t, "empty")

	it, err := store.NewIterator()
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Close()

	// the reserved metadata fields must never surface as items
	if key, _, ok, err := it.GetNext(); ok || err != nil {
		t.Errorf("expected no items, got key=%q ok=%v err=%v", key, ok, err)
	}
}

func TestIteratorSkipsRemovedItems(t *testing.T) {
	store := newTestStore(t, "shrinking")

	for i := 0; i < 5; i++ {
		if err := store.Put([]byte(fmt.Sprintf("k%d", i)), []byte("v")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	it, err := store.NewIterator()
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Close()

	// force the snapshot, then remove an item behind the iterator's back
	key, _, ok, err := it.GetNext()
	if err != nil || !ok {
		t.Fatalf("first GetNext failed: ok=%v err=%v", ok, err)
	}
	first := string(key)

	removed := ""
	for i := 0; i < 5; i++ {
		candidate := fmt.Sprintf("k%d", i)
		if candidate != first {
			removed = candidate
			break
		}
	}
	if _, err := store.Remove([]byte(removed)); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	count := 1
	for {
		key, _, ok, err := it.GetNext()
		if err != nil {
			t.Fatalf("GetNext failed: %v", err)
		}
		if !ok {
			break
		}
		if bytes.Equal(key, []byte(removed)) {
			t.Errorf("iterator yielded removed key %q", removed)
		}
		count++
	}
	if count != 4 {
		t.Errorf("expected 4 surviving items, got %d", count)
	}
}

func TestIteratorValuesAreLive(t *testing.T) {
	store := newTestStore(t, "live")

	if err := store.Put([]byte("k"), []byte("old")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	it, err := store.NewIterator()
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Close()

	// an iterator that was never stepped has no snapshot yet, so the
	// update below is visible to it
	if err := store.Put([]byte("k"), []byte("new")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, value, ok, err := it.GetNext()
	if err != nil || !ok {
		t.Fatalf("GetNext failed: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(value, []byte("new")) {
		t.Errorf("expected live value new, got %q", value)
	}
}

func TestClosedIteratorFails(t *testing.T) {
	store := newTestStore(t, "closable")

	it, err := store.NewIterator()
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, _, _, err := it.GetNext(); CodeOf(err) != CodeInvalidInput {
		t.Errorf("expected CodeInvalidInput from closed iterator, got %v", err)
	}
}

func TestIteratorOnRemovedStore(t *testing.T) {
	reg := newTestRegistry(t)
	store, err := reg.CreateStore("vanishing", "rstring", "rstring")
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	if err := reg.RemoveStore(store); err != nil {
		t.Fatalf("RemoveStore failed: %v", err)
	}

	// a stale handle must not hand out an iterator over nothing
	if _, err := store.NewIterator(); CodeOf(err) != CodeNotFound {
		t.Errorf("expected CodeNotFound, got %v", err)
	}
}
