package lockmgr

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver/memdriver"
)

// testOptions shrinks the retry budget so contended tests finish fast
func testOptions() *Options {
	return &Options{
		LeaseSeconds:  1,
		MaxRetries:    500,
		BaseSleep:     200 * time.Microsecond,
		BackoffModulo: 100,
	}
}

func newTestManager(t *testing.T) (ILockManager, *memdriver.Store) {
	conn := memdriver.New(&memdriver.Options{SweepInterval: 10 * time.Millisecond})
	t.Cleanup(func() { _ = conn.Close() })
	return NewLockManager(conn, testOptions()), conn
}

func TestCreateOrGetLockIsIdempotent(t *testing.T) {
	lm, _ := newTestManager(t)

	id1, err := lm.CreateOrGetLock("my-lock")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}

	id2, err := lm.CreateOrGetLock("my-lock")
	if err != nil {
		t.Fatalf("Second CreateOrGetLock failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("Expected the same id for the same name, got %d and %d", id1, id2)
	}

	other, err := lm.CreateOrGetLock("other-lock")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}
	if other == id1 {
		t.Errorf("Expected distinct names to yield distinct ids")
	}
}

func TestLockIdIsDeterministicAcrossManagers(t *testing.T) {
	lmA, _ := newTestManager(t)
	lmB, _ := newTestManager(t)

	// separate back ends, same name: the id must still match because
	// every process derives it from the name alone
	idA, err := lmA.CreateOrGetLock("shared-name")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}
	idB, err := lmB.CreateOrGetLock("shared-name")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}
	if idA != idB {
		t.Errorf("Expected deterministic ids, got %d and %d", idA, idB)
	}
}

func TestAcquireRelease(t *testing.T) {
	lm, _ := newTestManager(t)

	id, err := lm.CreateOrGetLock("acquire-release")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}

	ok, err := lm.AcquireLock(id, 10, 0)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if !ok {
		t.Fatalf("Expected uncontended acquisition to succeed")
	}

	pid, err := lm.GetPidForLock(id)
	if err != nil {
		t.Fatalf("GetPidForLock failed: %v", err)
	}
	if pid != uint32(os.Getpid()) {
		t.Errorf("Expected holder pid %d, got %d", os.Getpid(), pid)
	}

	// a second acquisition with no wait budget must fail
	ok, err = lm.AcquireLock(id, 10, 0)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if ok {
		t.Errorf("Expected contended acquisition to fail")
	}

	if err := lm.ReleaseLock(id); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}

	pid, _ = lm.GetPidForLock(id)
	if pid != 0 {
		t.Errorf("Expected pid 0 after release, got %d", pid)
	}

	ok, err = lm.AcquireLock(id, 10, 0)
	if err != nil || !ok {
		t.Errorf("Expected acquisition after release to succeed (ok=%t, err=%v)", ok, err)
	}
}

func TestReleaseUnheldLockIsNoError(t *testing.T) {
	lm, _ := newTestManager(t)

	id, err := lm.CreateOrGetLock("never-held")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}
	if err := lm.ReleaseLock(id); err != nil {
		t.Errorf("Releasing an unheld lock must not fail: %v", err)
	}
}

func TestLeaseExpiryFreesLock(t *testing.T) {
	lm, _ := newTestManager(t)

	id, err := lm.CreateOrGetLock("short-lease")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}

	// tiny lease, never released
	ok, err := lm.AcquireLock(id, 0.1, 0)
	if err != nil || !ok {
		t.Fatalf("AcquireLock failed (ok=%t, err=%v)", ok, err)
	}

	// after the lease ran out the next acquisition must win
	ok, err = lm.AcquireLock(id, 10, 2)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected acquisition to succeed after lease expiry")
	}
}

func TestMutualExclusion(t *testing.T) {
	conn := memdriver.New(&memdriver.Options{SweepInterval: 10 * time.Millisecond})
	t.Cleanup(func() { _ = conn.Close() })

	// generous retry budget, heavy contention needs it
	lm := NewLockManager(conn, &Options{
		LeaseSeconds:  5,
		MaxRetries:    100000,
		BaseSleep:     100 * time.Microsecond,
		BackoffModulo: 20000,
	})

	id, err := lm.CreateOrGetLock("critical-section")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}

	const (
		goroutines = 8
		iterations = 10
	)

	var (
		wg      sync.WaitGroup
		inside  int
		counter int
		mu      sync.Mutex
	)

	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				ok, err := lm.AcquireLock(id, 10, 30)
				if err != nil {
					t.Errorf("AcquireLock failed: %v", err)
					return
				}
				if !ok {
					t.Errorf("AcquireLock timed out")
					return
				}

				mu.Lock()
				inside++
				if inside != 1 {
					t.Errorf("Mutual exclusion violated: %d holders inside", inside)
				}
				counter++
				inside--
				mu.Unlock()

				if err := lm.ReleaseLock(id); err != nil {
					t.Errorf("ReleaseLock failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Errorf("Expected %d critical sections, got %d", goroutines*iterations, counter)
	}
}

func TestRemoveLock(t *testing.T) {
	lm, conn := newTestManager(t)

	id, err := lm.CreateOrGetLock("removable")
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}

	if err := lm.RemoveLock(id); err != nil {
		t.Fatalf("RemoveLock failed: %v", err)
	}

	if _, err := lm.GetPidForLock(id); err == nil {
		t.Errorf("Expected bookkeeping to be gone after removal")
	}

	// the registration entry must be gone too
	if ok, _ := conn.Exists(lockNameKey("cmVtb3ZhYmxl")); ok {
		t.Errorf("Expected name registration to be removed")
	}

	// recreation starts fresh
	id2, err := lm.CreateOrGetLock("removable")
	if err != nil {
		t.Fatalf("Recreation failed: %v", err)
	}
	if id2 != id {
		t.Errorf("Expected deterministic id on recreation, got %d and %d", id, id2)
	}
}

func TestLockNameRoundTrip(t *testing.T) {
	lm, _ := newTestManager(t)

	// underscores in the name must not confuse the info parser
	name := "name_with_underscores_42"
	id, err := lm.CreateOrGetLock(name)
	if err != nil {
		t.Fatalf("CreateOrGetLock failed: %v", err)
	}

	got, err := lm.GetLockName(id)
	if err != nil {
		t.Fatalf("GetLockName failed: %v", err)
	}
	if got != name {
		t.Errorf("Expected name %q, got %q", name, got)
	}
}

func TestStoreLock(t *testing.T) {
	lm, _ := newTestManager(t)

	if err := lm.LockStore(42); err != nil {
		t.Fatalf("LockStore failed: %v", err)
	}

	// a second manager on the same back end must block and time out
	done := make(chan error, 1)
	go func() {
		lm2 := lm // same back end, same manager is fine
		done <- lm2.LockStore(42)
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrLockTimeout) {
			t.Errorf("Expected ErrLockTimeout, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Contended LockStore did not return")
	}

	lm.UnlockStore(42)

	if err := lm.LockStore(42); err != nil {
		t.Errorf("Expected LockStore to succeed after unlock: %v", err)
	}
	lm.UnlockStore(42)
}

func TestParseLockInfo(t *testing.T) {
	info := lockInfo{UsageCount: 1, ExpirationMs: 1234567, Pid: 99, EncodedName: "bXktbG9jaw=="}

	parsed, err := parseLockInfo(info.String())
	if err != nil {
		t.Fatalf("parseLockInfo failed: %v", err)
	}
	if parsed != info {
		t.Errorf("Round trip mismatch: %+v != %+v", parsed, info)
	}

	if _, err := parseLockInfo("garbage"); err == nil {
		t.Errorf("Expected malformed info to fail")
	}
	if _, err := parseLockInfo("a_b_c_d"); err == nil {
		t.Errorf("Expected non-numeric fields to fail")
	}
}
