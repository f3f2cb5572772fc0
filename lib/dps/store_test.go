package dps

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/memdriver"
	"github.com/ValentinKolb/dPS/lib/lockmgr"
)

func newTestStore(t *testing.T, name string) IStore {
	t.Helper()
	reg := newTestRegistry(t)
	store, err := reg.CreateStore(name, "int64", "rstring")
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	return store
}

func TestPutGetRemove(t *testing.T) {
	store := newTestStore(t, "basic")

	if err := store.Put([]byte("answer"), []byte("42")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, loaded, err := store.Get([]byte("answer"))
	if err != nil || !loaded {
		t.Fatalf("Get failed: loaded=%v err=%v", loaded, err)
	}
	if !bytes.Equal(value, []byte("42")) {
		t.Errorf("expected 42, got %q", value)
	}

	ok, err := store.Has([]byte("answer"))
	if err != nil || !ok {
		t.Errorf("expected key to be present, got ok=%v err=%v", ok, err)
	}
	ok, err = store.Has([]byte("question"))
	if err != nil || ok {
		t.Errorf("expected key to be absent, got ok=%v err=%v", ok, err)
	}

	found, err := store.Remove([]byte("answer"))
	if err != nil || !found {
		t.Errorf("expected removal to report found, got found=%v err=%v", found, err)
	}
	found, err = store.Remove([]byte("answer"))
	if err != nil || found {
		t.Errorf("expected second removal to report absent, got found=%v err=%v", found, err)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := newTestStore(t, "overwrite")

	if err := store.Put([]byte("k"), []byte("first")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put([]byte("k"), []byte("second")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, _, err := store.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(value, []byte("second")) {
		t.Errorf("expected second, got %q", value)
	}

	size, err := store.Size()
	if err != nil || size != 1 {
		t.Errorf("expected size 1, got %d (err=%v)", size, err)
	}
}

func TestSafeVariants(t *testing.T) {
	store := newTestStore(t, "safe")

	if err := store.PutSafe([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("PutSafe failed: %v", err)
	}
	value, loaded, err := store.GetSafe([]byte("k"))
	if err != nil || !loaded {
		t.Fatalf("GetSafe failed: loaded=%v err=%v", loaded, err)
	}
	if !bytes.Equal(value, []byte("v")) {
		t.Errorf("expected v, got %q", value)
	}
}

func TestSizeAndClear(t *testing.T) {
	store := newTestStore(t, "sized")

	size, err := store.Size()
	if err != nil || size != 0 {
		t.Fatalf("expected empty store, got size=%d err=%v", size, err)
	}

	const items = 25
	for i := 0; i < items; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		if err := store.Put(key, []byte("v")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	size, err = store.Size()
	if err != nil || size != items {
		t.Fatalf("expected size %d, got %d (err=%v)", items, size, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	size, err = store.Size()
	if err != nil || size != 0 {
		t.Errorf("expected empty store after Clear, got size=%d err=%v", size, err)
	}

	// metadata must survive the wipe
	keyType, err := store.KeyType()
	if err != nil || keyType != "int64" {
		t.Errorf("expected key type int64, got %q (err=%v)", keyType, err)
	}
	valueType, err := store.ValueType()
	if err != nil || valueType != "rstring" {
		t.Errorf("expected value type rstring, got %q (err=%v)", valueType, err)
	}
}

func TestTypeTags(t *testing.T) {
	store := newTestStore(t, "typed")

	keyType, err := store.KeyType()
	if err != nil || keyType != "int64" {
		t.Errorf("expected int64, got %q (err=%v)", keyType, err)
	}
	valueType, err := store.ValueType()
	if err != nil || valueType != "rstring" {
		t.Errorf("expected rstring, got %q (err=%v)", valueType, err)
	}
}

func TestBulkOperations(t *testing.T) {
	store := newTestStore(t, "bulk")

	entries := []Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
	}
	if err := store.PutAll(entries); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}

	keys := [][]byte{[]byte("a"), []byte("missing"), []byte("c")}
	values, found, err := store.GetAll(keys)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if !found[0] || found[1] || !found[2] {
		t.Errorf("unexpected found vector: %v", found)
	}
	if !bytes.Equal(values[0], []byte("1")) || !bytes.Equal(values[2], []byte("3")) {
		t.Errorf("unexpected values: %q %q", values[0], values[2])
	}

	has, err := store.HasAll(keys)
	if err != nil {
		t.Fatalf("HasAll failed: %v", err)
	}
	if !has[0] || has[1] || !has[2] {
		t.Errorf("unexpected has vector: %v", has)
	}

	if err := store.RemoveAll([][]byte{[]byte("a"), []byte("b")}); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	size, err := store.Size()
	if err != nil || size != 1 {
		t.Errorf("expected size 1 after RemoveAll, got %d (err=%v)", size, err)
	}

	// empty slices are no-ops
	if err := store.PutAll(nil); err != nil {
		t.Errorf("PutAll(nil) failed: %v", err)
	}
	if err := store.RemoveAll(nil); err != nil {
		t.Errorf("RemoveAll(nil) failed: %v", err)
	}
}

func TestBinaryKeysAndValues(t *testing.T) {
	store := newTestStore(t, "binary")

	key := []byte{0x00, 0xff, 0x10, 0x80}
	value := []byte{0x01, 0x00, 0xfe}

	if err := store.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, loaded, err := store.Get(key)
	if err != nil || !loaded {
		t.Fatalf("Get failed: loaded=%v err=%v", loaded, err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("expected %v, got %v", value, got)
	}

	size, err := store.Size()
	if err != nil || size != 1 {
		t.Errorf("expected size 1, got %d (err=%v)", size, err)
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	store := newTestStore(t, "validation")

	if err := store.Put(nil, []byte("v")); CodeOf(err) != CodeInvalidInput {
		t.Errorf("expected CodeInvalidInput from Put, got %v", err)
	}
	if _, _, err := store.Get(nil); CodeOf(err) != CodeInvalidInput {
		t.Errorf("expected CodeInvalidInput from Get, got %v", err)
	}
	if _, err := store.Remove(nil); CodeOf(err) != CodeInvalidInput {
		t.Errorf("expected CodeInvalidInput from Remove, got %v", err)
	}
}

func TestSizeAfterRemoveStore(t *testing.T) {
	reg := newTestRegistry(t)
	store, err := reg.CreateStore("doomed", "rstring", "rstring")
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	if err := reg.RemoveStore(store); err != nil {
		t.Fatalf("RemoveStore failed: %v", err)
	}

	// a stale handle must report the store as gone, not as empty
	if _, err := store.Size(); CodeOf(err) != CodeNotFound {
		t.Errorf("expected CodeNotFound from stale handle, got %v", err)
	}
}

func TestRemoveRequiresStoreLock(t *testing.T) {
	conn := memdriver.New(nil)
	t.Cleanup(func() { _ = conn.Close() })

	// a small retry budget so the contended case fails fast
	locks := lockmgr.NewLockManager(conn, &lockmgr.Options{
		LeaseSeconds:  1,
		MaxRetries:    3,
		BaseSleep:     100 * time.Microsecond,
		BackoffModulo: 10,
	})
	reg := NewRegistry(conn, locks)

	store, err := reg.CreateStore("guarded", "rstring", "rstring")
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	if err := store.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// while another holder owns the store lock, Remove must not proceed
	if err := locks.LockStore(store.ID()); err != nil {
		t.Fatalf("LockStore failed: %v", err)
	}
	if _, err := store.Remove([]byte("k")); CodeOf(err) != CodeLockTimeout {
		t.Errorf("expected CodeLockTimeout while the store lock is held, got %v", err)
	}
	if ok, _ := store.Has([]byte("k")); !ok {
		t.Error("expected key to survive the blocked removal")
	}

	locks.UnlockStore(store.ID())
	found, err := store.Remove([]byte("k"))
	if err != nil || !found {
		t.Errorf("expected removal to succeed after unlock, got found=%v err=%v", found, err)
	}
}

func TestSafeVariantsCheckStoreExistence(t *testing.T) {
	reg := newTestRegistry(t)
	store, err := reg.CreateStore("ghost", "rstring", "rstring")
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	if err := reg.RemoveStore(store); err != nil {
		t.Fatalf("RemoveStore failed: %v", err)
	}

	if err := store.PutSafe([]byte("a"), []byte("1")); CodeOf(err) != CodeNotFound {
		t.Errorf("expected CodeNotFound from PutSafe, got %v", err)
	}
	if _, _, err := store.GetSafe([]byte("a")); CodeOf(err) != CodeNotFound {
		t.Errorf("expected CodeNotFound from GetSafe, got %v", err)
	}

	// the failed writes must not have recreated any part of the store
	if ok, _ := reg.StoreExists("ghost"); ok {
		t.Error("expected store to stay removed")
	}
	if _, err := reg.FindStore("ghost"); CodeOf(err) != CodeNotFound {
		t.Errorf("expected CodeNotFound from FindStore, got %v", err)
	}
}

// countingConn wraps a driver connection and counts the hash reads that
// pass through, to tell value fetches and existence checks apart.
type countingConn struct {
	driver.IConn
	hGets   int
	hExists int
}

func (c *countingConn) HGet(key, field string) ([]byte, bool, error) {
	c.hGets++
	return c.IConn.HGet(key, field)
}

func (c *countingConn) HExists(key, field string) (bool, error) {
	c.hExists++
	return c.IConn.HExists(key, field)
}

func TestHasFetchesNoValue(t *testing.T) {
	mem := memdriver.New(nil)
	t.Cleanup(func() { _ = mem.Close() })
	conn := &countingConn{IConn: mem}

	locks := lockmgr.NewLockManager(conn, &lockmgr.Options{
		LeaseSeconds:  1,
		MaxRetries:    1000,
		BaseSleep:     100 * time.Microsecond,
		BackoffModulo: 100,
	})
	reg := NewRegistry(conn, locks)

	store, err := reg.CreateStore("bulky", "rstring", "rstring")
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	large := make([]byte, 1<<20)
	if err := store.Put([]byte("blob"), large); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	conn.hGets = 0
	conn.hExists = 0

	ok, err := store.Has([]byte("blob"))
	if err != nil || !ok {
		t.Fatalf("Has failed: ok=%v err=%v", ok, err)
	}
	if conn.hGets != 0 {
		t.Errorf("expected Has to fetch no values, saw %d HGet calls", conn.hGets)
	}
	if conn.hExists == 0 {
		t.Error("expected Has to use the existence primitive")
	}
}
