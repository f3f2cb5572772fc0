package dps

import (
	"time"

	"github.com/ValentinKolb/dPS/lib/codec"
)

// --------------------------------------------------------------------------
// TTL Keyspace
// --------------------------------------------------------------------------

// The TTL keyspace stores entries directly under their (encoded) key
// with no store prefix. Entries written with encodeKey=false instead
// strip the length prefix off the serialized key, so both conventions
// address the same entry as long as writer and reader agree.

// ttlKey derives the stored key for a TTL entry
func ttlKey(key []byte, encodeKey bool) (string, error) {
	if len(key) == 0 {
		return "", newErrorf(CodeInvalidInput, "ttl key must not be empty")
	}
	if encodeKey {
		return codec.Encode(key), nil
	}
	bare, err := codec.StripPrefix(key)
	if err != nil {
		return "", newError(CodeInvalidInput, "ttl key is not a framed payload", err)
	}
	return string(bare), nil
}

func (r *registryImpl) PutTTL(key, value []byte, ttlSeconds uint64, encodeKey, encodeValue bool) error {
	storedKey, err := ttlKey(key, encodeKey)
	if err != nil {
		return err
	}

	storedValue := value
	if !encodeValue {
		bare, err := codec.StripPrefix(value)
		if err != nil {
			return newError(CodeInvalidInput, "ttl value is not a framed payload", err)
		}
		storedValue = bare
	}

	if ttlSeconds == 0 {
		if err := r.conn.Set(storedKey, storedValue); err != nil {
			return backendError("failed to store ttl entry", err)
		}
		return nil
	}

	if err := r.conn.SetX(storedKey, storedValue, time.Duration(ttlSeconds)*time.Second); err != nil {
		return backendError("failed to store ttl entry", err)
	}
	return nil
}

func (r *registryImpl) GetTTL(key []byte, encodeKey, encodeValue bool) ([]byte, bool, error) {
	storedKey, err := ttlKey(key, encodeKey)
	if err != nil {
		return nil, false, err
	}

	value, loaded, err := r.conn.Get(storedKey)
	if err != nil {
		return nil, false, backendError("failed to read ttl entry", err)
	}
	if !loaded {
		return nil, false, nil
	}

	if !encodeValue {
		// the caller expects a framed payload, the prefix was stripped
		// on the way in
		return codec.AppendPrefix(nil, value), true, nil
	}
	return value, true, nil
}

func (r *registryImpl) HasTTL(key []byte, encodeKey bool) (bool, error) {
	storedKey, err := ttlKey(key, encodeKey)
	if err != nil {
		return false, err
	}

	ok, err := r.conn.Exists(storedKey)
	if err != nil {
		return false, backendError("failed to check ttl entry", err)
	}
	return ok, nil
}

func (r *registryImpl) RemoveTTL(key []byte, encodeKey bool) (bool, error) {
	storedKey, err := ttlKey(key, encodeKey)
	if err != nil {
		return false, err
	}

	found, err := r.conn.Exists(storedKey)
	if err != nil {
		return false, backendError("failed to check ttl entry", err)
	}
	if !found {
		return false, nil
	}
	if err := r.conn.Delete(storedKey); err != nil {
		return false, backendError("failed to remove ttl entry", err)
	}
	return true, nil
}
