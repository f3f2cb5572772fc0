package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dPS/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey    uint16 = 1 << 0
	hasField  uint16 = 1 << 1
	hasTTL    uint16 = 1 << 2
	hasDelta  uint16 = 1 << 3
	hasValue  uint16 = 1 << 4
	hasFields uint16 = 1 << 5
	hasCount  uint16 = 1 << 6
	hasOk     uint16 = 1 << 7
	hasErr    uint16 = 1 << 8
	hasMeta   uint16 = 1 << 9
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags
	var flags uint16 = 0

	// Set position for writing (after MsgType and flags)
	pos := 3

	// Handle Key
	if msg.Key != "" {
		flags |= hasKey
		pos = putString(result, pos, msg.Key)
	}

	// Handle Field
	if msg.Field != "" {
		flags |= hasField
		pos = putString(result, pos, msg.Field)
	}

	// Handle TTL
	if msg.TTL > 0 {
		flags |= hasTTL
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.TTL)
		pos += 8
	}

	// Handle Delta
	if msg.Delta != 0 {
		flags |= hasDelta
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.Delta))
		pos += 8
	}

	// Handle Value
	if msg.Value != nil {
		flags |= hasValue
		pos = putBytes(result, pos, msg.Value)
	}

	// Handle Fields
	if msg.Fields != nil {
		flags |= hasFields
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Fields)))
		pos += 4
		for _, f := range msg.Fields {
			pos = putString(result, pos, f)
		}
	}

	// Handle Count
	if msg.Count != 0 {
		flags |= hasCount
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.Count))
		pos += 8
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		pos = putString(result, pos, msg.Err)
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		pos = putBytes(result, pos, msg.Meta)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 3 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := binary.BigEndian.Uint16(data[1:3])

	// Initialize read position
	pos := 3
	var err error

	// Read Key if present
	msg.Key = ""
	if flags&hasKey != 0 {
		if msg.Key, pos, err = getString(data, pos, "key"); err != nil {
			return err
		}
	}

	// Read Field if present
	msg.Field = ""
	if flags&hasField != 0 {
		if msg.Field, pos, err = getString(data, pos, "field"); err != nil {
			return err
		}
	}

	// Read TTL if present
	msg.TTL = 0
	if flags&hasTTL != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for TTL")
		}
		msg.TTL = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	// Read Delta if present
	msg.Delta = 0
	if flags&hasDelta != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for delta")
		}
		msg.Delta = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	}

	// Read Value if present
	msg.Value = nil
	if flags&hasValue != 0 {
		if msg.Value, pos, err = getBytes(data, pos, msg.Value, "value"); err != nil {
			return err
		}
	}

	// Read Fields if present
	msg.Fields = nil
	if flags&hasFields != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for field count")
		}
		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		msg.Fields = make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			var f string
			if f, pos, err = getString(data, pos, "fields entry"); err != nil {
				return err
			}
			msg.Fields = append(msg.Fields, f)
		}
	}

	// Read Count if present
	msg.Count = 0
	if flags&hasCount != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for count")
		}
		msg.Count = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	}

	// Read Ok if present
	msg.Ok = false
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = data[pos] != 0
		pos += 1
	}

	// Read Err if present
	msg.Err = ""
	if flags&hasErr != 0 {
		if msg.Err, pos, err = getString(data, pos, "error"); err != nil {
			return err
		}
	}

	// Read Meta if present
	msg.Meta = nil
	if flags&hasMeta != 0 {
		if msg.Meta, pos, err = getBytes(data, pos, msg.Meta, "meta"); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// putString writes a length-prefixed string and returns the new position
func putString(result []byte, pos int, s string) int {
	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(s)))
	pos += 4
	copy(result[pos:], s)
	return pos + len(s)
}

// putBytes writes a length-prefixed byte slice and returns the new position
func putBytes(result []byte, pos int, b []byte) int {
	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(b)))
	pos += 4
	copy(result[pos:], b)
	return pos + len(b)
}

// getString reads a length-prefixed string
func getString(data []byte, pos int, what string) (string, int, error) {
	if pos+4 > len(data) {
		return "", pos, fmt.Errorf("data too short for %s length", what)
	}
	length := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4
	if pos+int(length) > len(data) {
		return "", pos, fmt.Errorf("data too short for %s data", what)
	}
	return string(data[pos : pos+int(length)]), pos + int(length), nil
}

// getBytes reads a length-prefixed byte slice, reusing buf if possible
// to reduce allocations
func getBytes(data []byte, pos int, buf []byte, what string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s length", what)
	}
	length := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4
	if pos+int(length) > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s data", what)
	}

	if buf == nil || cap(buf) < int(length) {
		buf = make([]byte, length)
	} else {
		buf = buf[:length]
	}
	copy(buf, data[pos:pos+int(length)])
	return buf, pos + int(length), nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 2 bytes for flags
	size := 3

	// Add sizes for fields that require length encoding
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Field != "" {
		size += 4 + len(msg.Field)
	}
	if msg.TTL > 0 {
		size += 8
	}
	if msg.Delta != 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Fields != nil {
		size += 4
		for _, f := range msg.Fields {
			size += 4 + len(f)
		}
	}
	if msg.Count != 0 {
		size += 8
	}
	if msg.Ok {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}
