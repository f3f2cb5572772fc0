package internal

import (
	"encoding/binary"
	"fmt"
)

// CommandType defines the possible write operations for the state machine.
type CommandType uint8

const (
	CommandTSet           CommandType = iota // Insert or update an entry.
	CommandTSetXAt                           // Insert or update an entry with an absolute expiry deadline.
	CommandTSetIfAbsentAt                    // Insert an entry if it does not exist, optional deadline.
	CommandTDelete                           // Delete an entry.
	CommandTIncrement                        // Add a delta to the counter at a key.
	CommandTExpireAt                         // Arm an absolute expiry deadline on an existing key.
	CommandTHSet                             // Store a field in the hash at a key.
	CommandTHDelete                          // Remove fields from the hash at a key.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTSet:
		return "Set"
	case CommandTSetXAt:
		return "SetXAt"
	case CommandTSetIfAbsentAt:
		return "SetIfAbsentAt"
	case CommandTDelete:
		return "Delete"
	case CommandTIncrement:
		return "Increment"
	case CommandTExpireAt:
		return "ExpireAt"
	case CommandTHSet:
		return "HSet"
	case CommandTHDelete:
		return "HDelete"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// Command represents a command to be executed by the state machine (a
// single entry in the raft log). Expiring operations carry an absolute
// deadline (unix nanoseconds) computed by the proposer, so every
// replica applies the exact same state regardless of when it catches
// up. Arg holds that deadline, or the delta for Increment.
type Command struct {
	Type  CommandType
	Key   string
	Field string
	Arg   int64
	Value []byte
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	// Type + Arg + KeyLen + Key + FieldLen + Field + Value
	return 1 + 8 + 4 + len(command.Key) + 4 + len(command.Field) + len(command.Value)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for arg (big endian),
// 4 bytes for key length (big endian),
// N bytes for key data,
// 4 bytes for field length (big endian),
// N bytes for field data,
// N bytes for value data (rest of the buffer)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], uint64(command.Arg))

	pos := 9
	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(command.Key)))
	pos += 4
	copy(result[pos:], command.Key)
	pos += len(command.Key)

	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(command.Field)))
	pos += 4
	copy(result[pos:], command.Field)
	pos += len(command.Field)

	copy(result[pos:], command.Value)
	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	// Minimum size: 1 (Type) + 8 (Arg) + 4 (KeyLen) = 13 bytes
	if len(data) < 13 {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Arg = int64(binary.BigEndian.Uint64(data[1:9]))

	pos := 9
	keyLen := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4
	if len(data) < pos+int(keyLen)+4 {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}
	command.Key = string(data[pos : pos+int(keyLen)])
	pos += int(keyLen)

	fieldLen := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4
	if len(data) < pos+int(fieldLen) {
		return fmt.Errorf("data too short for field of length %d", fieldLen)
	}
	command.Field = string(data[pos : pos+int(fieldLen)])
	pos += int(fieldLen)

	if len(data) > pos {
		valueLen := len(data) - pos
		// Reuse existing buffer if possible to reduce allocations
		if command.Value == nil || cap(command.Value) < valueLen {
			command.Value = make([]byte, valueLen)
		} else {
			command.Value = command.Value[:valueLen]
		}
		copy(command.Value, data[pos:])
	} else {
		command.Value = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Field Lists
// --------------------------------------------------------------------------

// EncodeFieldList packs multiple hash field names into a command value.
// Used by HDelete, which is the only operation addressing more than one
// field per command.
func EncodeFieldList(fields []string) []byte {
	size := 4
	for _, f := range fields {
		size += 4 + len(f)
	}

	result := make([]byte, size)
	binary.BigEndian.PutUint32(result[0:4], uint32(len(fields)))

	pos := 4
	for _, f := range fields {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(f)))
		pos += 4
		copy(result[pos:], f)
		pos += len(f)
	}
	return result
}

// DecodeFieldList unpacks a field list encoded by EncodeFieldList.
func DecodeFieldList(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data too short for field list")
	}
	count := binary.BigEndian.Uint32(data[0:4])

	fields := make([]string, 0, count)
	pos := 4
	for i := uint32(0); i < count; i++ {
		if len(data) < pos+4 {
			return nil, fmt.Errorf("data too short for field %d length", i)
		}
		fieldLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
		if len(data) < pos+int(fieldLen) {
			return nil, fmt.Errorf("data too short for field %d of length %d", i, fieldLen)
		}
		fields = append(fields, string(data[pos:pos+int(fieldLen)]))
		pos += int(fieldLen)
	}
	return fields, nil
}
