package lockmgr

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/ValentinKolb/dPS/lib/codec"
	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/util"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("lockmgr")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options tunes the retry behavior of the lock manager. The defaults
// match the classic constants; tests shrink them to keep runs fast.
type Options struct {
	// LeaseSeconds is the lease of the internal (store and entity)
	// locks. A crashed holder blocks others for at most this long.
	LeaseSeconds float64

	// MaxRetries bounds the number of acquisition attempts.
	MaxRetries int

	// BaseSleep is the backoff unit between attempts.
	BaseSleep time.Duration

	// BackoffModulo flattens the backoff curve: the sleep factor is
	// retryCount modulo (MaxRetries / BackoffModulo), so waits grow and
	// periodically reset instead of growing without bound.
	BackoffModulo int
}

// DefaultOptions returns the default lock manager options
func DefaultOptions() *Options {
	return &Options{
		LeaseSeconds:  5,
		MaxRetries:    10000,
		BaseSleep:     200 * time.Microsecond,
		BackoffModulo: 100,
	}
}

// --------------------------------------------------------------------------
// Lock Manager Implementation
// --------------------------------------------------------------------------

type lockMgrImpl struct {
	conn driver.IConn
	opts Options
	pid  uint32
}

// NewLockManager creates a lock manager on top of a driver connection
// with the specified options (optional).
func NewLockManager(conn driver.IConn, opts *Options) ILockManager {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &lockMgrImpl{
		conn: conn,
		opts: *opts,
		pid:  uint32(os.Getpid()),
	}
}

// backoff sleeps between acquisition attempts. The sleep factor cycles
// with the retry count so long waits periodically reset.
func (lm *lockMgrImpl) backoff(retryCnt int) {
	window := lm.opts.MaxRetries / lm.opts.BackoffModulo
	if window <= 0 {
		window = 1
	}
	factor := retryCnt % window
	if factor == 0 {
		factor = 1
	}
	// small random jitter so competing processes desynchronize
	jitter := time.Duration(rand.Int63n(int64(lm.opts.BaseSleep)))
	time.Sleep(time.Duration(factor)*lm.opts.BaseSleep + jitter)
}

// acquireSentinel runs the shared acquisition loop: conditionally insert
// the sentinel with a lease and back off while someone else holds it.
func (lm *lockMgrImpl) acquireSentinel(key string, lease time.Duration, maxWait time.Duration) (bool, error) {
	start := time.Now()

	for retryCnt := 0; retryCnt < lm.opts.MaxRetries; retryCnt++ {
		ok, err := lm.conn.SetIfAbsent(key, []byte(sentinelValue), lease)
		if err != nil {
			return false, fmt.Errorf("lockmgr: failed to acquire %s: %w", key, err)
		}
		if ok {
			return true, nil
		}

		if maxWait > 0 && time.Since(start) >= maxWait {
			return false, nil
		}
		lm.backoff(retryCnt)
	}
	return false, nil
}

// --------------------------------------------------------------------------
// Named Locks (docu see ILockManager)
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) CreateOrGetLock(name string) (uint64, error) {
	encodedName := codec.Encode([]byte(name))
	nameKey := lockNameKey(encodedName)

	// creation of distinct artifacts for the same name is serialized
	if err := lm.LockEntity(encodedName); err != nil {
		return 0, err
	}
	defer lm.UnlockEntity(encodedName)

	// fast path: the lock already exists
	raw, loaded, err := lm.conn.Get(nameKey)
	if err != nil {
		return 0, fmt.Errorf("lockmgr: failed to look up lock %q: %w", name, err)
	}
	if loaded {
		id, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("lockmgr: corrupt id entry for lock %q: %w", name, err)
		}
		return id, nil
	}

	// the id is a pure function of the encoded name
	id := util.Hash64(encodedName)

	if err := lm.conn.Set(nameKey, []byte(strconv.FormatUint(id, 10))); err != nil {
		return 0, fmt.Errorf("lockmgr: failed to register lock %q: %w", name, err)
	}

	info := lockInfo{EncodedName: encodedName}
	if err := lm.conn.Set(lockInfoKey(id), []byte(info.String())); err != nil {
		// roll back the registration so a later create starts clean
		if derr := lm.conn.Delete(nameKey); derr != nil {
			Logger.Errorf("failed to roll back registration of lock %q: %v", name, derr)
		}
		return 0, fmt.Errorf("lockmgr: failed to initialize lock %q: %w", name, err)
	}

	return id, nil
}

func (lm *lockMgrImpl) RemoveLock(id uint64) error {
	// take the lock so a current holder is not pulled out from under
	ok, err := lm.AcquireLock(id, lm.opts.LeaseSeconds, 3)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("lockmgr: cannot remove lock %d: %w", id, ErrLockTimeout)
	}

	info, err := lm.readLockInfo(id)
	if err != nil {
		// still release what we acquired
		_ = lm.conn.Delete(lockSentinelKey(id))
		return err
	}

	if err := lm.conn.Delete(lockInfoKey(id)); err != nil {
		_ = lm.conn.Delete(lockSentinelKey(id))
		return fmt.Errorf("lockmgr: failed to remove info of lock %d: %w", id, err)
	}
	if err := lm.conn.Delete(lockNameKey(info.EncodedName)); err != nil {
		_ = lm.conn.Delete(lockSentinelKey(id))
		return fmt.Errorf("lockmgr: failed to remove registration of lock %d: %w", id, err)
	}

	return lm.conn.Delete(lockSentinelKey(id))
}

func (lm *lockMgrImpl) AcquireLock(id uint64, leaseSeconds, maxWaitSeconds float64) (bool, error) {
	if leaseSeconds <= 0 {
		return false, fmt.Errorf("lockmgr: lease must be positive, got %v", leaseSeconds)
	}

	sentinelKey := lockSentinelKey(id)
	lease := time.Duration(leaseSeconds * float64(time.Second))
	maxWait := time.Duration(maxWaitSeconds * float64(time.Second))
	start := time.Now()

	for retryCnt := 0; retryCnt < lm.opts.MaxRetries; retryCnt++ {
		ok, err := lm.conn.SetIfAbsent(sentinelKey, []byte(sentinelValue), lease)
		if err != nil {
			return false, fmt.Errorf("lockmgr: failed to acquire lock %d: %w", id, err)
		}

		if ok {
			// record the new holder
			if err := lm.updateLockInfo(id, 1, time.Now().Add(lease).UnixMilli(), lm.pid); err != nil {
				// give the lock back, an unrecorded holder would confuse
				// every later stale-lease check
				if derr := lm.conn.Delete(sentinelKey); derr != nil {
					Logger.Errorf("failed to release lock %d after bookkeeping error: %v", id, derr)
				}
				return false, err
			}
			return true, nil
		}

		// somebody holds the sentinel: break the lease if it is stale
		// (the holder died between insert and bookkeeping, or the back
		// end does not reclaim leases by itself)
		if info, err := lm.readLockInfo(id); err == nil {
			if info.ExpirationMs > 0 && info.ExpirationMs < time.Now().UnixMilli() {
				Logger.Warningf("breaking stale lease of lock %d (holder pid %d)", id, info.Pid)
				if derr := lm.conn.Delete(sentinelKey); derr != nil {
					return false, fmt.Errorf("lockmgr: failed to break stale lease of lock %d: %w", id, derr)
				}
				if err := lm.updateLockInfo(id, 0, 0, 0); err != nil {
					return false, err
				}
				continue
			}
		}

		if maxWait >= 0 && time.Since(start) >= maxWait {
			return false, nil
		}
		lm.backoff(retryCnt)
	}
	return false, nil
}

func (lm *lockMgrImpl) ReleaseLock(id uint64) error {
	// releasing an unheld lock is fine, Delete of an absent key is a no-op
	if err := lm.conn.Delete(lockSentinelKey(id)); err != nil {
		return fmt.Errorf("lockmgr: failed to release lock %d: %w", id, err)
	}
	return lm.updateLockInfo(id, 0, 0, 0)
}

func (lm *lockMgrImpl) GetPidForLock(id uint64) (uint32, error) {
	info, err := lm.readLockInfo(id)
	if err != nil {
		return 0, err
	}
	return info.Pid, nil
}

func (lm *lockMgrImpl) GetLockName(id uint64) (string, error) {
	info, err := lm.readLockInfo(id)
	if err != nil {
		return "", err
	}
	name, err := codec.Decode(info.EncodedName)
	if err != nil {
		return "", fmt.Errorf("lockmgr: corrupt name of lock %d: %w", id, err)
	}
	return string(name), nil
}

// --------------------------------------------------------------------------
// Lock Info Bookkeeping
// --------------------------------------------------------------------------

// readLockInfo loads and parses the bookkeeping record of a named lock
func (lm *lockMgrImpl) readLockInfo(id uint64) (lockInfo, error) {
	raw, loaded, err := lm.conn.Get(lockInfoKey(id))
	if err != nil {
		return lockInfo{}, fmt.Errorf("lockmgr: failed to read info of lock %d: %w", id, err)
	}
	if !loaded {
		return lockInfo{}, fmt.Errorf("lockmgr: lock %d does not exist", id)
	}
	return parseLockInfo(string(raw))
}

// updateLockInfo rewrites the bookkeeping record, preserving the name
func (lm *lockMgrImpl) updateLockInfo(id uint64, usage uint32, expirationMs int64, pid uint32) error {
	current, err := lm.readLockInfo(id)
	if err != nil {
		return err
	}

	updated := lockInfo{
		UsageCount:   usage,
		ExpirationMs: expirationMs,
		Pid:          pid,
		EncodedName:  current.EncodedName,
	}
	if err := lm.conn.Set(lockInfoKey(id), []byte(updated.String())); err != nil {
		return fmt.Errorf("lockmgr: failed to update info of lock %d: %w", id, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal Locks (docu see ILockManager)
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) LockStore(storeID uint64) error {
	lease := time.Duration(lm.opts.LeaseSeconds * float64(time.Second))
	ok, err := lm.acquireSentinel(storeLockKey(storeID), lease, 0)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("lockmgr: store %d: %w", storeID, ErrLockTimeout)
	}
	return nil
}

func (lm *lockMgrImpl) UnlockStore(storeID uint64) {
	if err := lm.conn.Delete(storeLockKey(storeID)); err != nil {
		Logger.Errorf("failed to release store lock %d: %v", storeID, err)
	}
}

func (lm *lockMgrImpl) LockEntity(entity string) error {
	lease := time.Duration(lm.opts.LeaseSeconds * float64(time.Second))
	ok, err := lm.acquireSentinel(entityLockKey(entity), lease, 0)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("lockmgr: entity %q: %w", entity, ErrLockTimeout)
	}
	return nil
}

func (lm *lockMgrImpl) UnlockEntity(entity string) {
	if err := lm.conn.Delete(entityLockKey(entity)); err != nil {
		Logger.Errorf("failed to release entity lock %q: %v", entity, err)
	}
}
