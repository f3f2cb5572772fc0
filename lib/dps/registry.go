package dps

import (
	"strconv"

	"github.com/ValentinKolb/dPS/lib/codec"
	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/util"
	"github.com/ValentinKolb/dPS/lib/lockmgr"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("dps")

// --------------------------------------------------------------------------
// Registry Implementation
// --------------------------------------------------------------------------

type registryImpl struct {
	conn  driver.IConn
	locks lockmgr.ILockManager
}

// NewRegistry creates a store registry on top of a driver connection.
// The lock manager is optional; if nil one is created on the same
// connection with default options.
func NewRegistry(conn driver.IConn, locks lockmgr.ILockManager) IStoreRegistry {
	if locks == nil {
		locks = lockmgr.NewLockManager(conn, nil)
	}
	return &registryImpl{conn: conn, locks: locks}
}

// storeID derives a store's id from its encoded name. The derivation is
// a pure function, so every process computes the same id independently.
func storeID(encodedName string) uint64 {
	return util.Hash64(encodedName)
}

// --------------------------------------------------------------------------
// Store Lifecycle (docu see IStoreRegistry)
// --------------------------------------------------------------------------

func (r *registryImpl) CreateStore(name, keyType, valueType string) (IStore, error) {
	if name == "" {
		return nil, newErrorf(CodeInvalidInput, "store name must not be empty")
	}

	encodedName := codec.Encode([]byte(name))
	nameKey := storeNameKey(encodedName)

	// serialize creation so two processes cannot interleave the steps
	if err := r.locks.LockEntity(encodedName); err != nil {
		return nil, backendError("failed to serialize store creation", err)
	}
	defer r.locks.UnlockEntity(encodedName)

	loaded, err := r.conn.Exists(nameKey)
	if err != nil {
		return nil, backendError("failed to check store existence", err)
	}
	if loaded {
		return nil, newErrorf(CodeAlreadyExists, "store %q already exists", name)
	}

	id := storeID(encodedName)
	contentsKey := storeContentsKey(id)

	// creation is a chain of writes; every failure rolls back the
	// artifacts written so far so a later create starts clean
	if err := r.conn.Set(nameKey, []byte(strconv.FormatUint(id, 10))); err != nil {
		return nil, backendError("failed to register store name", err)
	}

	rollback := func(keys ...string) {
		for _, k := range keys {
			if derr := r.conn.Delete(k); derr != nil {
				Logger.Errorf("rollback of store %q left %q behind: %v", name, k, derr)
			}
		}
	}

	if _, err := r.conn.HSet(contentsKey, reservedFieldName, []byte(encodedName)); err != nil {
		rollback(nameKey)
		return nil, backendError("failed to write store metadata", err)
	}
	if _, err := r.conn.HSet(contentsKey, reservedFieldKeyType, []byte(codec.Encode([]byte(keyType)))); err != nil {
		rollback(contentsKey, nameKey)
		return nil, backendError("failed to write key type metadata", err)
	}
	if _, err := r.conn.HSet(contentsKey, reservedFieldValueType, []byte(codec.Encode([]byte(valueType)))); err != nil {
		rollback(contentsKey, nameKey)
		return nil, backendError("failed to write value type metadata", err)
	}

	return r.newStoreHandle(id, name), nil
}

func (r *registryImpl) CreateOrGetStore(name, keyType, valueType string) (IStore, error) {
	store, err := r.CreateStore(name, keyType, valueType)
	if err == nil {
		return store, nil
	}
	if CodeOf(err) != CodeAlreadyExists {
		return nil, err
	}
	return r.FindStore(name)
}

func (r *registryImpl) FindStore(name string) (IStore, error) {
	encodedName := codec.Encode([]byte(name))

	raw, loaded, err := r.conn.Get(storeNameKey(encodedName))
	if err != nil {
		return nil, backendError("failed to look up store", err)
	}
	if !loaded {
		return nil, newErrorf(CodeNotFound, "store %q does not exist", name)
	}

	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return nil, newError(CodeInconsistent, "corrupt id entry for store "+name, err)
	}

	// the registration without the contents hash means a half-deleted
	// or damaged store
	ok, err := r.conn.Exists(storeContentsKey(id))
	if err != nil {
		return nil, backendError("failed to verify store contents", err)
	}
	if !ok {
		return nil, newErrorf(CodeInconsistent, "store %q is registered but has no contents", name)
	}

	return r.newStoreHandle(id, name), nil
}

func (r *registryImpl) StoreExists(name string) (bool, error) {
	encodedName := codec.Encode([]byte(name))
	ok, err := r.conn.Exists(storeNameKey(encodedName))
	if err != nil {
		return false, backendError("failed to check store existence", err)
	}
	return ok, nil
}

func (r *registryImpl) RemoveStore(store IStore) error {
	if store == nil {
		return newErrorf(CodeInvalidInput, "store handle is nil")
	}
	id := store.ID()

	if err := r.locks.LockStore(id); err != nil {
		return backendError("failed to lock store for removal", err)
	}
	defer r.locks.UnlockStore(id)

	contentsKey := storeContentsKey(id)

	// the registration entry is derived from the persisted name, not
	// from the handle, so removal also works with a stale handle name
	rawName, loaded, err := r.conn.HGet(contentsKey, reservedFieldName)
	if err != nil {
		return backendError("failed to read store metadata", err)
	}
	if !loaded {
		return newErrorf(CodeInconsistent, "store %d has no name metadata", id)
	}

	if err := r.conn.Delete(contentsKey); err != nil {
		return backendError("failed to delete store contents", err)
	}
	if err := r.conn.Delete(storeNameKey(string(rawName))); err != nil {
		return backendError("failed to delete store registration", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Connection (docu see IStoreRegistry)
// --------------------------------------------------------------------------

func (r *registryImpl) RunDataStoreCommand(cmd string) ([]byte, error) {
	if !r.conn.SupportsFeature(driver.FeatureRunCommand) {
		return nil, newErrorf(CodeBackend, "back end does not support raw commands")
	}
	result, err := r.conn.RunCommand(cmd)
	if err != nil {
		return nil, backendError("command failed", err)
	}
	return result, nil
}

func (r *registryImpl) IsConnected() bool {
	return r.conn.Ping() == nil
}

func (r *registryImpl) Reconnect() error {
	if err := r.conn.Reconnect(); err != nil {
		return newError(CodeConnection, "reconnect failed", err)
	}
	return nil
}

func (r *registryImpl) LockManager() lockmgr.ILockManager {
	return r.locks
}
