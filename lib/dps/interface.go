package dps

import "github.com/ValentinKolb/dPS/lib/lockmgr"

// --------------------------------------------------------------------------
// Registry Interface
// --------------------------------------------------------------------------

// IStoreRegistry is the entry point of the store layer: it manages named
// stores on a back end, provides the shared TTL keyspace and gives
// access to the lock manager bound to the same back end.
type IStoreRegistry interface {

	// --------------------------------------------------------------------------
	// Store Lifecycle
	// --------------------------------------------------------------------------

	// CreateStore creates a named store. The key and value type tags are
	// recorded as metadata; the layer itself treats all data as opaque
	// bytes. Fails with CodeAlreadyExists if the name is taken.
	CreateStore(name, keyType, valueType string) (store IStore, err error)

	// CreateOrGetStore creates the store or, if it already exists,
	// returns a handle to the existing one.
	CreateOrGetStore(name, keyType, valueType string) (store IStore, err error)

	// FindStore returns a handle to an existing store.
	// Fails with CodeNotFound if no store has this name.
	FindStore(name string) (store IStore, err error)

	// StoreExists checks whether a store with this name exists.
	StoreExists(name string) (ok bool, err error)

	// RemoveStore deletes a store and all its contents. The handle (and
	// every other handle to the same store) is unusable afterwards.
	RemoveStore(store IStore) (err error)

	// --------------------------------------------------------------------------
	// TTL Keyspace
	// --------------------------------------------------------------------------

	// The TTL keyspace is a single global namespace independent of all
	// stores, for fire-and-forget entries with a lifetime. With
	// encodeKey/encodeValue unset the length prefix of the serialized
	// form is stripped instead, so encoding and non-encoding clients
	// interoperate on the same entries.

	// PutTTL stores an entry for ttlSeconds (0 = no expiry).
	PutTTL(key, value []byte, ttlSeconds uint64, encodeKey, encodeValue bool) (err error)

	// GetTTL retrieves an entry from the TTL keyspace.
	GetTTL(key []byte, encodeKey, encodeValue bool) (value []byte, loaded bool, err error)

	// HasTTL checks for an entry in the TTL keyspace.
	HasTTL(key []byte, encodeKey bool) (ok bool, err error)

	// RemoveTTL deletes an entry from the TTL keyspace. The boolean
	// indicates whether the entry existed.
	RemoveTTL(key []byte, encodeKey bool) (found bool, err error)

	// --------------------------------------------------------------------------
	// Connection
	// --------------------------------------------------------------------------

	// RunDataStoreCommand passes a raw command to the back end.
	RunDataStoreCommand(cmd string) (result []byte, err error)

	// IsConnected reports whether the back end is reachable.
	IsConnected() (ok bool)

	// Reconnect re-establishes the back end connection.
	Reconnect() (err error)

	// LockManager returns the lock manager bound to the same back end.
	LockManager() lockmgr.ILockManager
}

// --------------------------------------------------------------------------
// Store Interface
// --------------------------------------------------------------------------

// Entry is one key-value pair for bulk operations.
type Entry struct {
	Key   []byte
	Value []byte
}

// IStore is a handle to one named store. Keys and values are opaque
// byte strings. The plain operations are lock-free; the Safe variants
// take the store's structural lock for callers that interleave data
// access with structural operations (Clear, RemoveStore) from multiple
// processes.
type IStore interface {
	// ID returns the store's deterministic id.
	ID() uint64

	// Name returns the store's name.
	Name() string

	// --------------------------------------------------------------------------
	// Data Operations
	// --------------------------------------------------------------------------

	// Put inserts or updates a key.
	Put(key, value []byte) (err error)

	// PutSafe is Put under the store lock. It verifies the store still
	// exists first, so a stale handle cannot recreate a removed store.
	PutSafe(key, value []byte) (err error)

	// Get retrieves the value for a key.
	Get(key []byte) (value []byte, loaded bool, err error)

	// GetSafe is Get under the store lock, after verifying the store
	// still exists.
	GetSafe(key []byte) (value []byte, loaded bool, err error)

	// Has checks whether a key is present without fetching its value.
	Has(key []byte) (ok bool, err error)

	// Remove deletes a key under the store lock. The boolean indicates
	// whether it existed.
	Remove(key []byte) (found bool, err error)

	// Clear removes all data items but keeps the store itself.
	Clear() (err error)

	// Size returns the number of data items (metadata not counted).
	Size() (size uint64, err error)

	// --------------------------------------------------------------------------
	// Metadata
	// --------------------------------------------------------------------------

	// KeyType returns the recorded key type tag.
	KeyType() (keyType string, err error)

	// ValueType returns the recorded value type tag.
	ValueType() (valueType string, err error)

	// --------------------------------------------------------------------------
	// Iteration
	// --------------------------------------------------------------------------

	// NewIterator creates an iterator over the store's data items.
	// It fails with a not-found error if the store no longer exists.
	NewIterator() (it IIterator, err error)

	// --------------------------------------------------------------------------
	// Bulk Operations
	// --------------------------------------------------------------------------

	// PutAll writes all entries under one store lock acquisition.
	PutAll(entries []Entry) (err error)

	// GetAll retrieves many keys at once. found[i] indicates whether
	// values[i] is valid.
	GetAll(keys [][]byte) (values [][]byte, found []bool, err error)

	// HasAll checks many keys at once.
	HasAll(keys [][]byte) (found []bool, err error)

	// RemoveAll deletes many keys under one store lock acquisition.
	RemoveAll(keys [][]byte) (err error)
}

// --------------------------------------------------------------------------
// Iterator Interface
// --------------------------------------------------------------------------

// IIterator steps through a store's data items. The set of keys is
// snapshotted on the first GetNext call; values are fetched live, so
// items removed after the snapshot are silently skipped. Iteration
// order is unspecified.
type IIterator interface {
	// GetNext returns the next item. ok is false once the iterator is
	// exhausted; calling GetNext again after that keeps returning
	// ok=false without side effects.
	GetNext() (key, value []byte, ok bool, err error)

	// Close releases the iterator. A closed iterator fails GetNext.
	Close() (err error)
}
