package lockmgr

import "errors"

// ErrLockTimeout is returned when a lock could not be acquired within
// the caller's wait budget.
var ErrLockTimeout = errors.New("lockmgr: lock acquisition timed out")

// ILockManager provides lease-based distributed locks on top of any
// back end driver. Three lock flavors share one algorithm (a leased
// conditional insert of a sentinel key):
//
//   - named locks: user-facing, created by name, addressed by id
//   - store locks: serialize structural mutation of one store
//   - entity locks: serialize creation of stores and named locks
//
// Every lease carries an expiry so a crashed holder can never block
// other processes forever.
type ILockManager interface {

	// --------------------------------------------------------------------------
	// Named Locks (user facing)
	// --------------------------------------------------------------------------

	// CreateOrGetLock registers a named lock and returns its id. The id
	// is a pure function of the name, so every process computes the same
	// id for the same name. Calling this for an existing lock is not an
	// error.
	CreateOrGetLock(name string) (id uint64, err error)

	// RemoveLock deletes a named lock and all its bookkeeping. The lock
	// is acquired first so a current holder is not pulled out from under.
	RemoveLock(id uint64) (err error)

	// AcquireLock tries to take the named lock. The lease expires after
	// leaseSeconds even if the holder never releases. The call keeps
	// retrying with backoff until it succeeds, the retry budget runs out
	// or maxWaitSeconds of wall-clock time have passed.
	// The returned boolean indicates whether the lock was acquired.
	AcquireLock(id uint64, leaseSeconds, maxWaitSeconds float64) (ok bool, err error)

	// ReleaseLock releases the named lock. Releasing a lock that is not
	// held is not an error.
	ReleaseLock(id uint64) (err error)

	// GetPidForLock returns the process id recorded by the most recent
	// holder, or 0 if the lock was never acquired or cleanly released.
	GetPidForLock(id uint64) (pid uint32, err error)

	// GetLockName returns the registered name for a lock id.
	GetLockName(id uint64) (name string, err error)

	// --------------------------------------------------------------------------
	// Internal Locks (used by the store layer)
	// --------------------------------------------------------------------------

	// LockStore takes the structural lock of a store. Used around
	// multi-step store mutation (remove, clear, guarded reads/writes).
	LockStore(storeID uint64) (err error)

	// UnlockStore releases the structural lock of a store.
	UnlockStore(storeID uint64)

	// LockEntity takes the creation lock for an arbitrary entity name.
	// Used to serialize store and named-lock creation.
	LockEntity(entity string) (err error)

	// UnlockEntity releases the creation lock.
	UnlockEntity(entity string)
}
