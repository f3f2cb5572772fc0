package dps

import (
	"bytes"
	"testing"
	"time"
)

// The workflow tests exercise the layers together the way an embedding
// application would.

func TestWorkflowOrderStore(t *testing.T) {
	reg := newTestRegistry(t)

	store, err := reg.CreateStore("Orders", "int64", "string")
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}

	if err := store.Put([]byte("42"), []byte("widget")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, loaded, err := store.Get([]byte("42"))
	if err != nil || !loaded {
		t.Fatalf("Get failed: loaded=%v err=%v", loaded, err)
	}
	if !bytes.Equal(value, []byte("widget")) {
		t.Errorf("expected widget, got %q", value)
	}

	ok, err := store.Has([]byte("99"))
	if err != nil || ok {
		t.Errorf("expected key 99 to be absent, got ok=%v err=%v", ok, err)
	}
}

func TestWorkflowSessionTTL(t *testing.T) {
	reg := newTestRegistry(t)

	if err := reg.PutTTL([]byte("session:abc"), []byte("data"), 1, true, true); err != nil {
		t.Fatalf("PutTTL failed: %v", err)
	}

	ok, err := reg.HasTTL([]byte("session:abc"), true)
	if err != nil || !ok {
		t.Fatalf("expected live session, got ok=%v err=%v", ok, err)
	}

	time.Sleep(1100 * time.Millisecond)

	ok, err = reg.HasTTL([]byte("session:abc"), true)
	if err != nil || ok {
		t.Errorf("expected expired session, got ok=%v err=%v", ok, err)
	}
}

func TestWorkflowBatchJobLock(t *testing.T) {
	reg := newTestRegistry(t)
	lm := reg.LockManager()

	id, err := lm.CreateOrGetLock("batch-job")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}

	acquired, err := lm.AcquireLock(id, 1, 10)
	if err != nil || !acquired {
		t.Fatalf("first acquire failed: acquired=%v err=%v", acquired, err)
	}

	// a second caller times out while the lease is held
	acquired, err = lm.AcquireLock(id, 1, 0.2)
	if err != nil {
		t.Fatalf("second acquire errored: %v", err)
	}
	if acquired {
		t.Fatal("second acquire succeeded while the lock was held")
	}

	// after the lease runs out a third caller wins without a release
	time.Sleep(1100 * time.Millisecond)

	acquired, err = lm.AcquireLock(id, 1, 1)
	if err != nil || !acquired {
		t.Fatalf("third acquire failed: acquired=%v err=%v", acquired, err)
	}
	if err := lm.ReleaseLock(id); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
}
