// Package lockmgr implements lease-based distributed locks using
// key-value back ends that implement the driver.IConn interface. It
// provides a simple yet robust way to coordinate access to shared
// resources across multiple processes or nodes.
//
// The lock manager only ever stores in the provided connection and has
// no other internal state. It is therefore safe to create multiple lock
// managers on the same back end; as long as the same back end is used
// every time, all locks work as expected.
//
// Core Functionality:
//   - Named locks: created by name, addressed by a deterministic id,
//     with per-acquisition lease and wait budgets
//   - Store locks: serialize structural mutation of a single store
//   - Entity locks: serialize creation of stores and named locks
//
// Implementation Approach:
//
//	Locks are implemented by leveraging the atomic conditional insert
//	of the underlying driver. Specifically:
//
//	- Acquisition: Attempts to create a sentinel key using SetIfAbsent
//	  with a lease, which guarantees that only one requester can
//	  succeed and that a crashed holder is evicted when the lease runs
//	  out.
//
//	- Bookkeeping: Named locks keep a separate info record holding the
//	  usage count, the lease deadline, the holder's pid and the lock's
//	  name. The record enables stale-lease breaking on back ends that
//	  do not reclaim leases by themselves, plus holder inspection.
//
//	- Backoff: Contended acquisitions retry with a cycling backoff
//	  curve and random jitter, bounded by both a retry budget and the
//	  caller's wall-clock wait budget.
//
// Thread Safety:
//
//	The lock manager is as thread-safe as the underlying driver
//	implementation. All operations are performed through the driver
//	interface.
//
// Usage Example:
//
//	lm := lockmgr.NewLockManager(conn, nil)
//
//	id, err := lm.CreateOrGetLock("resource:123")
//	if err != nil {
//	    // Handle error
//	}
//
//	// Acquire with a 30 second lease, waiting at most 5 seconds
//	acquired, err := lm.AcquireLock(id, 30, 5)
//	if err != nil {
//	    // Handle error
//	}
//
//	if acquired {
//	    // Use the resource safely
//	    // ...
//	    if err := lm.ReleaseLock(id); err != nil {
//	        // Handle error
//	    }
//	}
package lockmgr
