package memdriver

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultSweepInterval = 100 * time.Millisecond // Default interval between expiry sweeps
)

// --------------------------------------------------------------------------
// Core Store Structure
// --------------------------------------------------------------------------

// entry is a single stored item. An entry is either a plain value or a
// hash container (fields != nil), never both.
type entry struct {
	value    []byte
	fields   *xsync.MapOf[string, []byte]
	expireAt int64 // unix nanoseconds, 0 = no expiry
}

// expired reports whether the entry's deadline has passed at now
func (e entry) expired(now int64) bool {
	return e.expireAt != 0 && now >= e.expireAt
}

// Store is the in-memory reference implementation of driver.IConn.
// It is also embedded as the applied state of the raft driver, which is
// why the expiring write operations have exported absolute-deadline
// variants (SetXAt, SetIfAbsentAt, ExpireAt): replicated commands carry
// absolute deadlines so every replica stores the same state.
type Store struct {
	data *xsync.MapOf[string, entry]

	// expiry sweeping
	mu            sync.Mutex // guards heap
	heap          *util.ExpiryHeap
	sweepInterval time.Duration
	stopCh        chan struct{}
	running       atomic.Bool
}

// Options configures the Store behavior during initialization
type Options struct {
	SweepInterval time.Duration // Time between expiry sweeps (0 = use default)
}

// DefaultOptions returns the default Store options
func DefaultOptions() *Options {
	return &Options{
		SweepInterval: defaultSweepInterval,
	}
}

// New creates a new in-memory Store with the specified options (optional)
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization.
func New(opts *Options) *Store {
	if opts == nil {
		opts = DefaultOptions()
	}

	interval := opts.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	s := &Store{
		data:          xsync.NewMapOf[string, entry](),
		heap:          util.NewExpiryHeap(),
		sweepInterval: interval,
		stopCh:        make(chan struct{}),
	}

	s.startSweeper()
	return s
}

// --------------------------------------------------------------------------
// Key Operations
// --------------------------------------------------------------------------

// Exists checks whether a key is present and not expired.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) Exists(key string) (bool, error) {
	e, ok := s.data.Load(key)
	if !ok || e.expired(time.Now().UnixNano()) {
		return false, nil
	}
	return true, nil
}

// Get retrieves the value for a key. Expired entries are treated as absent
// and removed lazily.
//
// The returned value is a copy of the stored data and therefore safe to
// use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) Get(key string) ([]byte, bool, error) {
	e, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now().UnixNano()) {
		s.dropExpired(key)
		return nil, false, nil
	}
	if e.fields != nil {
		return nil, false, driver.NewBackendError(fmt.Sprintf("key %q holds a hash, not a value", key), nil)
	}

	// copy to prevent aliasing of stored data
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Set inserts or updates an entry without expiry.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) Set(key string, value []byte) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.data.Store(key, entry{value: valueCopy})
	s.unschedule(key)
	return nil
}

// SetX inserts or updates an entry with a time to live.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) SetX(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return driver.NewBackendError("SetX requires a positive ttl", nil)
	}
	return s.SetXAt(key, value, time.Now().Add(ttl).UnixNano())
}

// SetXAt is the absolute-deadline form of SetX.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) SetXAt(key string, value []byte, expireAt int64) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.data.Store(key, entry{value: valueCopy, expireAt: expireAt})
	s.schedule(key, expireAt)
	return nil
}

// SetIfAbsent inserts an entry only if the key is not present (or its
// previous entry expired). A positive ttl arms an expiry on the insert.
//
// Thread-safety: the check and the insert are one atomic step.
func (s *Store) SetIfAbsent(key string, value []byte, ttl time.Duration) (bool, error) {
	var expireAt int64
	if ttl > 0 {
		expireAt = time.Now().Add(ttl).UnixNano()
	}
	return s.SetIfAbsentAt(key, value, expireAt)
}

// SetIfAbsentAt is the absolute-deadline form of SetIfAbsent.
// An expireAt of zero inserts without expiry.
//
// Thread-safety: the check and the insert are one atomic step.
func (s *Store) SetIfAbsentAt(key string, value []byte, expireAt int64) (bool, error) {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	now := time.Now().UnixNano()
	inserted := false

	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if loaded && !old.expired(now) {
			return old, false
		}
		inserted = true
		return entry{value: valueCopy, expireAt: expireAt}, false
	})

	if inserted && expireAt != 0 {
		s.schedule(key, expireAt)
	}
	return inserted, nil
}

// Delete removes an entry. Deleting an absent key is not an error.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) Delete(key string) error {
	s.data.Delete(key)
	s.unschedule(key)
	return nil
}

// Increment atomically adds delta to the decimal integer stored at key.
// An absent (or expired) key counts as zero.
//
// Thread-safety: the read-modify-write is one atomic step.
func (s *Store) Increment(key string, delta int64) (int64, error) {
	now := time.Now().UnixNano()

	var (
		result   int64
		parseErr error
	)

	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		var current int64
		if loaded && !old.expired(now) {
			if old.fields != nil {
				parseErr = fmt.Errorf("key %q holds a hash, not a counter", key)
				return old, false
			}
			v, err := strconv.ParseInt(string(old.value), 10, 64)
			if err != nil {
				parseErr = fmt.Errorf("value at key %q is not an integer", key)
				return old, false
			}
			current = v
		}
		result = current + delta
		return entry{value: []byte(strconv.FormatInt(result, 10))}, false
	})

	if parseErr != nil {
		return 0, driver.NewBackendError(parseErr.Error(), nil)
	}
	s.unschedule(key)
	return result, nil
}

// Expire arms or rearms an expiry on an existing key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) Expire(key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, driver.NewBackendError("Expire requires a positive ttl", nil)
	}
	return s.ExpireAt(key, time.Now().Add(ttl).UnixNano())
}

// ExpireAt is the absolute-deadline form of Expire.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) ExpireAt(key string, expireAt int64) (bool, error) {
	now := time.Now().UnixNano()
	found := false

	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if !loaded {
			return old, true // don't materialize the key
		}
		if old.expired(now) {
			return old, true
		}
		found = true
		old.expireAt = expireAt
		return old, false
	})

	if found {
		s.schedule(key, expireAt)
	}
	return found, nil
}

// --------------------------------------------------------------------------
// Hash Operations
// --------------------------------------------------------------------------

// hashAt loads the hash container at key. With create=true an absent (or
// expired) entry is replaced by a fresh empty hash.
func (s *Store) hashAt(key string, create bool) (*xsync.MapOf[string, []byte], error) {
	now := time.Now().UnixNano()

	var (
		fields  *xsync.MapOf[string, []byte]
		kindErr error
	)

	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if loaded && !old.expired(now) {
			if old.fields == nil {
				kindErr = fmt.Errorf("key %q holds a value, not a hash", key)
				return old, false
			}
			fields = old.fields
			return old, false
		}
		if !create {
			// don't materialize the key for read operations
			return old, !loaded
		}
		fields = xsync.NewMapOf[string, []byte]()
		return entry{fields: fields}, false
	})

	if kindErr != nil {
		return nil, driver.NewBackendError(kindErr.Error(), nil)
	}
	return fields, nil
}

// HGet retrieves a single field from the hash stored at key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) HGet(key, field string) ([]byte, bool, error) {
	fields, err := s.hashAt(key, false)
	if err != nil || fields == nil {
		return nil, false, err
	}
	v, ok := fields.Load(field)
	if !ok {
		return nil, false, nil
	}
	value := make([]byte, len(v))
	copy(value, v)
	return value, true, nil
}

// HExists checks whether a field is present in the hash at key.
// Unlike HGet it never copies the field's value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) HExists(key, field string) (bool, error) {
	fields, err := s.hashAt(key, false)
	if err != nil || fields == nil {
		return false, err
	}
	_, ok := fields.Load(field)
	return ok, nil
}

// HSet stores a field in the hash at key, creating the hash if needed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) HSet(key, field string, value []byte) (bool, error) {
	fields, err := s.hashAt(key, true)
	if err != nil {
		return false, err
	}
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	_, loaded := fields.LoadAndStore(field, valueCopy)
	return !loaded, nil
}

// HDelete removes fields from the hash at key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) HDelete(key string, fields ...string) (int64, error) {
	container, err := s.hashAt(key, false)
	if err != nil || container == nil {
		return 0, err
	}
	var removed int64
	for _, field := range fields {
		if _, loaded := container.LoadAndDelete(field); loaded {
			removed++
		}
	}
	return removed, nil
}

// HLen returns the number of fields in the hash at key (0 if absent).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) HLen(key string) (int64, error) {
	fields, err := s.hashAt(key, false)
	if err != nil || fields == nil {
		return 0, err
	}
	return int64(fields.Size()), nil
}

// HKeys returns all field names of the hash at key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store) HKeys(key string) ([]string, error) {
	fields, err := s.hashAt(key, false)
	if err != nil || fields == nil {
		return nil, err
	}
	names := make([]string, 0, fields.Size())
	fields.Range(func(field string, _ []byte) bool {
		names = append(names, field)
		return true
	})
	return names, nil
}

// --------------------------------------------------------------------------
// Container Administration
// --------------------------------------------------------------------------

// CreateContainer materializes an empty hash container.
func (s *Store) CreateContainer(name string) error {
	_, err := s.hashAt(name, true)
	return err
}

// DeleteContainer removes a hash container and all its fields.
func (s *Store) DeleteContainer(name string) error {
	return s.Delete(name)
}

// ContainerSize returns the number of fields in a hash container.
func (s *Store) ContainerSize(name string) (int64, error) {
	return s.HLen(name)
}

// --------------------------------------------------------------------------
// Connection Management
// --------------------------------------------------------------------------

// RunCommand executes a command from the textual command set. Supported:
// ping, exists, get, set, del, incr, expire, hget, hexists, hset, hdel,
// hlen, hkeys.
func (s *Store) RunCommand(cmd string) ([]byte, error) {
	args := strings.Fields(cmd)
	if len(args) == 0 {
		return nil, driver.NewBackendError("empty command", nil)
	}

	wrongArgs := func() ([]byte, error) {
		return nil, driver.NewBackendError(fmt.Sprintf("wrong number of arguments for %q", args[0]), nil)
	}

	switch strings.ToLower(args[0]) {
	case "ping":
		return []byte("PONG"), nil
	case "exists":
		if len(args) != 2 {
			return wrongArgs()
		}
		ok, err := s.Exists(args[1])
		return []byte(strconv.FormatBool(ok)), err
	case "get":
		if len(args) != 2 {
			return wrongArgs()
		}
		v, ok, err := s.Get(args[1])
		if err != nil || !ok {
			return nil, err
		}
		return v, nil
	case "set":
		if len(args) != 3 {
			return wrongArgs()
		}
		return []byte("OK"), s.Set(args[1], []byte(args[2]))
	case "del":
		if len(args) != 2 {
			return wrongArgs()
		}
		return []byte("OK"), s.Delete(args[1])
	case "incr":
		if len(args) != 3 {
			return wrongArgs()
		}
		delta, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return nil, driver.NewBackendError("incr delta is not an integer", err)
		}
		v, err := s.Increment(args[1], delta)
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(v, 10)), nil
	case "expire":
		if len(args) != 3 {
			return wrongArgs()
		}
		sec, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return nil, driver.NewBackendError("expire ttl is not a number", err)
		}
		ok, err := s.Expire(args[1], time.Duration(sec*float64(time.Second)))
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatBool(ok)), nil
	case "hget":
		if len(args) != 3 {
			return wrongArgs()
		}
		v, ok, err := s.HGet(args[1], args[2])
		if err != nil || !ok {
			return nil, err
		}
		return v, nil
	case "hexists":
		if len(args) != 3 {
			return wrongArgs()
		}
		ok, err := s.HExists(args[1], args[2])
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatBool(ok)), nil
	case "hset":
		if len(args) != 4 {
			return wrongArgs()
		}
		_, err := s.HSet(args[1], args[2], []byte(args[3]))
		return []byte("OK"), err
	case "hdel":
		if len(args) < 3 {
			return wrongArgs()
		}
		removed, err := s.HDelete(args[1], args[2:]...)
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(removed, 10)), nil
	case "hlen":
		if len(args) != 2 {
			return wrongArgs()
		}
		l, err := s.HLen(args[1])
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(l, 10)), nil
	case "hkeys":
		if len(args) != 2 {
			return wrongArgs()
		}
		names, err := s.HKeys(args[1])
		if err != nil {
			return nil, err
		}
		return []byte(strings.Join(names, "\n")), nil
	default:
		return nil, driver.NewBackendError(fmt.Sprintf("unknown command %q", args[0]), nil)
	}
}

// Ping verifies the store is usable.
func (s *Store) Ping() error {
	if !s.running.Load() {
		return driver.NewConnectionError("store is closed", nil)
	}
	return nil
}

// Reconnect is a no-op for the in-memory store.
func (s *Store) Reconnect() error {
	return nil
}

// SupportsFeature checks if this implementation supports a specific feature
func (s *Store) SupportsFeature(feature driver.Feature) bool {
	supported := driver.FeatureExists |
		driver.FeatureGet |
		driver.FeatureSet |
		driver.FeatureSetX |
		driver.FeatureSetIfAbsent |
		driver.FeatureDelete |
		driver.FeatureIncrement |
		driver.FeatureExpire |
		driver.FeatureHashes |
		driver.FeatureRunCommand |
		driver.FeatureContainers
	return supported&feature == feature
}

// GetInfo returns statistics about the store
func (s *Store) GetInfo() driver.DriverInfo {
	s.mu.Lock()
	scheduled := s.heap.Len()
	s.mu.Unlock()

	meta := &struct {
		Keys              int `json:"keys"`
		ScheduledExpiries int `json:"scheduled_expiries"`
	}{
		Keys:              s.data.Size(),
		ScheduledExpiries: scheduled,
	}

	return driver.DriverInfo{
		DriverType:  driver.ImplMem,
		ClusterSize: 1,
		SupportedFeatures: []driver.Feature{
			driver.FeatureExists, driver.FeatureGet, driver.FeatureSet,
			driver.FeatureSetX, driver.FeatureSetIfAbsent, driver.FeatureDelete,
			driver.FeatureIncrement, driver.FeatureExpire, driver.FeatureHashes,
			driver.FeatureRunCommand, driver.FeatureContainers,
		},
		Metadata: meta,
	}
}

// Close stops the expiry sweeper. The store must not be used afterwards.
func (s *Store) Close() error {
	if s.running.CompareAndSwap(true, false) {
		close(s.stopCh)
	}
	return nil
}

// --------------------------------------------------------------------------
// Expiry Sweeping
// --------------------------------------------------------------------------

// schedule registers an expiry deadline with the sweeper
func (s *Store) schedule(key string, expireAt int64) {
	s.mu.Lock()
	s.heap.Add(key, expireAt)
	s.mu.Unlock()
}

// unschedule drops a pending expiry deadline
func (s *Store) unschedule(key string) {
	s.mu.Lock()
	s.heap.Remove(key)
	s.mu.Unlock()
}

// dropExpired removes a key if (and only if) its entry is still expired.
// Called lazily from the read path.
func (s *Store) dropExpired(key string) {
	now := time.Now().UnixNano()
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if !loaded {
			return old, true
		}
		// double-check, the entry could have been replaced in the meantime
		return old, old.expired(now)
	})
	s.unschedule(key)
}

// startSweeper starts the background expiry sweeper.
// If the sweeper is already running, this function does nothing.
func (s *Store) startSweeper() {
	if s.running.CompareAndSwap(false, true) {
		go s.sweeper()
	}
}

// sweeper is the background expiry loop.
// WARNING: this method should never be called directly, use startSweeper.
func (s *Store) sweeper() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := time.Now().UnixNano()

			s.mu.Lock()
			expired := s.heap.PopExpired(now)
			s.mu.Unlock()

			for _, key := range expired {
				s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
					if !loaded {
						return old, true
					}
					// double-check, the entry could have been rewritten
					// after its deadline was queued
					return old, old.expired(now)
				})
			}
		}
	}
}
