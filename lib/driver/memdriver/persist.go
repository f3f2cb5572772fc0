package memdriver

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Persistence Constants
// --------------------------------------------------------------------------

const (
	magicNum      = "DPSMEM\x00\x00" // File format identifier
	formatVersion = 1

	entryKindValue = 0
	entryKindHash  = 1
)

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the store to the writer. Expired entries are skipped.
// This is also the snapshot format of the raft driver.
//
// Thread-safety: Save takes snapshots of the data without blocking
// modifications. It must not run concurrently with Load.
func (s *Store) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1024*1024)

	type entryToSave struct {
		key   string
		entry entry
	}

	now := time.Now().UnixNano()
	var entries []entryToSave

	s.data.Range(func(key string, e entry) bool {
		if e.expired(now) {
			return true
		}
		entries = append(entries, entryToSave{key, e})
		return true
	})

	// header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(formatVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, item := range entries {
		if err := writeBytes(bw, []byte(item.key)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, item.entry.expireAt); err != nil {
			return err
		}

		if item.entry.fields == nil {
			if err := binary.Write(bw, binary.LittleEndian, uint8(entryKindValue)); err != nil {
				return err
			}
			if err := writeBytes(bw, item.entry.value); err != nil {
				return err
			}
			continue
		}

		if err := binary.Write(bw, binary.LittleEndian, uint8(entryKindHash)); err != nil {
			return err
		}

		// snapshot the fields first so the count matches what gets written
		type fieldToSave struct {
			name  string
			value []byte
		}
		var fields []fieldToSave
		item.entry.fields.Range(func(name string, value []byte) bool {
			fields = append(fields, fieldToSave{name, value})
			return true
		})

		if err := binary.Write(bw, binary.LittleEndian, uint64(len(fields))); err != nil {
			return err
		}
		for _, f := range fields {
			if err := writeBytes(bw, []byte(f.name)); err != nil {
				return err
			}
			if err := writeBytes(bw, f.value); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// Load restores a store from the reader, replacing all current data.
//
// Thread-safety: This function is not thread-safe and must not be called
// concurrently with any other operation.
func (s *Store) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1024*1024)

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != formatVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, formatVersion)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	// fresh state
	data := xsync.NewMapOf[string, entry]()

	s.mu.Lock()
	s.heap = util.NewExpiryHeap()
	s.mu.Unlock()

	for i := uint64(0); i < count; i++ {
		keyBytes, err := readBytes(br)
		if err != nil {
			return err
		}
		key := string(keyBytes)

		var expireAt int64
		if err := binary.Read(br, binary.LittleEndian, &expireAt); err != nil {
			return err
		}

		var kind uint8
		if err := binary.Read(br, binary.LittleEndian, &kind); err != nil {
			return err
		}

		switch kind {
		case entryKindValue:
			value, err := readBytes(br)
			if err != nil {
				return err
			}
			data.Store(key, entry{value: value, expireAt: expireAt})
		case entryKindHash:
			var fieldCount uint64
			if err := binary.Read(br, binary.LittleEndian, &fieldCount); err != nil {
				return err
			}
			fields := xsync.NewMapOf[string, []byte]()
			for j := uint64(0); j < fieldCount; j++ {
				name, err := readBytes(br)
				if err != nil {
					return err
				}
				value, err := readBytes(br)
				if err != nil {
					return err
				}
				fields.Store(string(name), value)
			}
			data.Store(key, entry{fields: fields, expireAt: expireAt})
		default:
			return fmt.Errorf("unknown entry kind %d", kind)
		}

		if expireAt != 0 {
			s.schedule(key, expireAt)
		}
	}

	s.data = data
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
