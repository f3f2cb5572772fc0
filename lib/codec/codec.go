package codec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Base64 Codec
// --------------------------------------------------------------------------

// Encode turns arbitrary binary data into the textual form used for
// persisted names, keys and metadata values. Empty input encodes to the
// empty string.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode. Missing padding is tolerated so values written
// by clients with differing base64 conventions stay readable.
func Decode(encoded string) ([]byte, error) {
	if encoded == "" {
		return []byte{}, nil
	}

	// normalize padding: strip whatever is there, then re-pad
	trimmed := strings.TrimRight(encoded, "=")
	if rem := len(trimmed) % 4; rem != 0 {
		trimmed += strings.Repeat("=", 4-rem)
	}

	data, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid base64 input: %w", err)
	}
	return data, nil
}

// --------------------------------------------------------------------------
// Length-Prefix Framing
// --------------------------------------------------------------------------

// Serialized values arrive with a length prefix in front of the payload.
// Short payloads (first byte < 0x80) carry a single length byte, longer
// ones a tag byte followed by a big-endian uint32 length.

const (
	longFormTag = 0x80
)

// StripPrefix removes the length prefix from a framed payload and
// returns the bare bytes. Callers that opt out of key/value encoding go
// through this path so the stored representation matches what encoding
// clients produce.
func StripPrefix(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, fmt.Errorf("codec: empty framed payload")
	}

	if framed[0] < longFormTag {
		// short form: one length byte
		return framed[1:], nil
	}

	// long form: tag byte + 4 length bytes
	if len(framed) < 5 {
		return nil, fmt.Errorf("codec: truncated long-form prefix (%d bytes)", len(framed))
	}
	return framed[5:], nil
}

// AppendPrefix frames a payload with the matching length prefix,
// choosing the short form whenever the length fits.
func AppendPrefix(dst, payload []byte) []byte {
	if len(payload) < longFormTag {
		dst = append(dst, byte(len(payload)))
		return append(dst, payload...)
	}

	dst = append(dst, longFormTag)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}
