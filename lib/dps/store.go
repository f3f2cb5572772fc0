package dps

import (
	"github.com/ValentinKolb/dPS/lib/codec"
)

// --------------------------------------------------------------------------
// Store Implementation
// --------------------------------------------------------------------------

type storeImpl struct {
	reg         *registryImpl
	id          uint64
	name        string
	contentsKey string
}

func (r *registryImpl) newStoreHandle(id uint64, name string) *storeImpl {
	return &storeImpl{
		reg:         r,
		id:          id,
		name:        name,
		contentsKey: storeContentsKey(id),
	}
}

func (s *storeImpl) ID() uint64 {
	return s.id
}

func (s *storeImpl) Name() string {
	return s.name
}

// --------------------------------------------------------------------------
// Data Operations (docu see IStore)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key, value []byte) error {
	if len(key) == 0 {
		return newErrorf(CodeInvalidInput, "key must not be empty")
	}
	if _, err := s.reg.conn.HSet(s.contentsKey, codec.Encode(key), value); err != nil {
		return backendError("put failed", err)
	}
	return nil
}

func (s *storeImpl) PutSafe(key, value []byte) error {
	if err := s.mustExist(); err != nil {
		return err
	}
	if err := s.reg.locks.LockStore(s.id); err != nil {
		return backendError("failed to lock store", err)
	}
	defer s.reg.locks.UnlockStore(s.id)
	return s.Put(key, value)
}

func (s *storeImpl) Get(key []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, newErrorf(CodeInvalidInput, "key must not be empty")
	}
	value, loaded, err := s.reg.conn.HGet(s.contentsKey, codec.Encode(key))
	if err != nil {
		return nil, false, backendError("get failed", err)
	}
	return value, loaded, nil
}

func (s *storeImpl) GetSafe(key []byte) ([]byte, bool, error) {
	if err := s.mustExist(); err != nil {
		return nil, false, err
	}
	if err := s.reg.locks.LockStore(s.id); err != nil {
		return nil, false, backendError("failed to lock store", err)
	}
	defer s.reg.locks.UnlockStore(s.id)
	return s.Get(key)
}

func (s *storeImpl) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, newErrorf(CodeInvalidInput, "key must not be empty")
	}
	// existence only, the value never crosses the driver boundary
	ok, err := s.reg.conn.HExists(s.contentsKey, codec.Encode(key))
	if err != nil {
		return false, backendError("has failed", err)
	}
	return ok, nil
}

func (s *storeImpl) Remove(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, newErrorf(CodeInvalidInput, "key must not be empty")
	}
	if err := s.reg.locks.LockStore(s.id); err != nil {
		return false, backendError("failed to lock store", err)
	}
	defer s.reg.locks.UnlockStore(s.id)
	return s.remove(key)
}

// remove deletes a key without taking the store lock. The caller must
// already hold it.
func (s *storeImpl) remove(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, newErrorf(CodeInvalidInput, "key must not be empty")
	}
	removed, err := s.reg.conn.HDelete(s.contentsKey, codec.Encode(key))
	if err != nil {
		return false, backendError("remove failed", err)
	}
	return removed > 0, nil
}

// mustExist verifies the store's contents container is still present.
// Used by the safe variants so a stale handle cannot resurrect a
// removed store as an orphaned container.
func (s *storeImpl) mustExist() error {
	ok, err := s.reg.conn.Exists(s.contentsKey)
	if err != nil {
		return backendError("failed to check store existence", err)
	}
	if !ok {
		return newErrorf(CodeNotFound, "store %q no longer exists", s.name)
	}
	return nil
}

func (s *storeImpl) Clear() error {
	if err := s.reg.locks.LockStore(s.id); err != nil {
		return backendError("failed to lock store", err)
	}
	defer s.reg.locks.UnlockStore(s.id)

	// the metadata has to survive the wipe, read it before deleting
	encodedName, err := s.readMeta(reservedFieldName)
	if err != nil {
		return err
	}
	keyType, err := s.readMeta(reservedFieldKeyType)
	if err != nil {
		return err
	}
	valueType, err := s.readMeta(reservedFieldValueType)
	if err != nil {
		return err
	}

	if err := s.reg.conn.Delete(s.contentsKey); err != nil {
		return backendError("failed to wipe store contents", err)
	}

	// from here on a failure leaves the store without (complete)
	// metadata, which no later operation can repair
	if _, err := s.reg.conn.HSet(s.contentsKey, reservedFieldName, []byte(encodedName)); err != nil {
		return newError(CodeInconsistent, "store wiped but name metadata lost", err)
	}
	if _, err := s.reg.conn.HSet(s.contentsKey, reservedFieldKeyType, []byte(keyType)); err != nil {
		return newError(CodeInconsistent, "store wiped but key type metadata lost", err)
	}
	if _, err := s.reg.conn.HSet(s.contentsKey, reservedFieldValueType, []byte(valueType)); err != nil {
		return newError(CodeInconsistent, "store wiped but value type metadata lost", err)
	}
	return nil
}

func (s *storeImpl) Size() (uint64, error) {
	length, err := s.reg.conn.HLen(s.contentsKey)
	if err != nil {
		return 0, backendError("size failed", err)
	}
	if length == 0 {
		return 0, newErrorf(CodeNotFound, "store %q no longer exists", s.name)
	}
	if length < reservedFieldCount {
		return 0, newErrorf(CodeInconsistent, "store %q is missing metadata (%d fields)", s.name, length)
	}
	return uint64(length - reservedFieldCount), nil
}

// --------------------------------------------------------------------------
// Metadata (docu see IStore)
// --------------------------------------------------------------------------

// readMeta reads a reserved field in its encoded form
func (s *storeImpl) readMeta(field string) (string, error) {
	raw, loaded, err := s.reg.conn.HGet(s.contentsKey, field)
	if err != nil {
		return "", backendError("failed to read store metadata", err)
	}
	if !loaded {
		return "", newErrorf(CodeInconsistent, "store %q is missing metadata field %s", s.name, field)
	}
	return string(raw), nil
}

// readMetaDecoded reads a reserved field and decodes it
func (s *storeImpl) readMetaDecoded(field string) (string, error) {
	encoded, err := s.readMeta(field)
	if err != nil {
		return "", err
	}
	decoded, err := codec.Decode(encoded)
	if err != nil {
		return "", newError(CodeInconsistent, "corrupt metadata field "+field, err)
	}
	return string(decoded), nil
}

func (s *storeImpl) KeyType() (string, error) {
	return s.readMetaDecoded(reservedFieldKeyType)
}

func (s *storeImpl) ValueType() (string, error) {
	return s.readMetaDecoded(reservedFieldValueType)
}

// --------------------------------------------------------------------------
// Bulk Operations (docu see IStore)
// --------------------------------------------------------------------------

func (s *storeImpl) PutAll(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.reg.locks.LockStore(s.id); err != nil {
		return backendError("failed to lock store", err)
	}
	defer s.reg.locks.UnlockStore(s.id)

	for _, e := range entries {
		if err := s.Put(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *storeImpl) GetAll(keys [][]byte) ([][]byte, []bool, error) {
	values := make([][]byte, len(keys))
	found := make([]bool, len(keys))

	for i, key := range keys {
		value, loaded, err := s.Get(key)
		if err != nil {
			return nil, nil, err
		}
		values[i] = value
		found[i] = loaded
	}
	return values, found, nil
}

func (s *storeImpl) HasAll(keys [][]byte) ([]bool, error) {
	found := make([]bool, len(keys))
	for i, key := range keys {
		ok, err := s.Has(key)
		if err != nil {
			return nil, err
		}
		found[i] = ok
	}
	return found, nil
}

func (s *storeImpl) RemoveAll(keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.reg.locks.LockStore(s.id); err != nil {
		return backendError("failed to lock store", err)
	}
	defer s.reg.locks.UnlockStore(s.id)

	for _, key := range keys {
		if _, err := s.remove(key); err != nil {
			return err
		}
	}
	return nil
}
