package dps

import (
	"github.com/ValentinKolb/dPS/lib/codec"
)

// --------------------------------------------------------------------------
// Iterator Implementation
// --------------------------------------------------------------------------

type iteratorImpl struct {
	store  *storeImpl
	fields []string
	pos    int
	opened bool
	closed bool
}

// docu see IStore
func (s *storeImpl) NewIterator() (IIterator, error) {
	if err := s.mustExist(); err != nil {
		return nil, err
	}
	return &iteratorImpl{store: s}, nil
}

// snapshot loads the current field set of the store, minus the reserved
// metadata fields. Called lazily so an iterator that is never stepped
// costs nothing.
func (it *iteratorImpl) snapshot() error {
	fields, err := it.store.reg.conn.HKeys(it.store.contentsKey)
	if err != nil {
		return backendError("failed to snapshot store keys", err)
	}

	it.fields = make([]string, 0, len(fields))
	for _, field := range fields {
		if isReservedField(field) {
			continue
		}
		it.fields = append(it.fields, field)
	}
	it.opened = true
	return nil
}

// docu see IIterator
func (it *iteratorImpl) GetNext() ([]byte, []byte, bool, error) {
	if it.closed {
		return nil, nil, false, newErrorf(CodeInvalidInput, "iterator is closed")
	}
	if !it.opened {
		if err := it.snapshot(); err != nil {
			return nil, nil, false, err
		}
	}

	for it.pos < len(it.fields) {
		field := it.fields[it.pos]
		it.pos++

		value, loaded, err := it.store.reg.conn.HGet(it.store.contentsKey, field)
		if err != nil {
			return nil, nil, false, backendError("failed to fetch item", err)
		}
		if !loaded {
			// removed since the snapshot, skip it
			continue
		}

		key, err := codec.Decode(field)
		if err != nil {
			return nil, nil, false, newError(CodeInconsistent, "corrupt key in store "+it.store.name, err)
		}
		return key, value, true, nil
	}

	return nil, nil, false, nil
}

// docu see IIterator
func (it *iteratorImpl) Close() error {
	it.closed = true
	it.fields = nil
	return nil
}
