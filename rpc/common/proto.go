package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key    string   `json:"key,omitempty"`    // Used for: all key and hash operations
	Field  string   `json:"field,omitempty"`  // Used for: HGet, HExists, HSet
	TTL    uint64   `json:"ttl,omitempty"`    // Time to live in nanoseconds, used for: SetX, SetIfAbsent, Expire
	Delta  int64    `json:"delta,omitempty"`  // Used for: Increment
	Value  []byte   `json:"value,omitempty"`  // Used for: Set requests, Get responses, RunCommand
	Fields []string `json:"fields,omitempty"` // Used for: HDelete (request), HKeys (response)

	// Response only fields
	Count int64  `json:"count,omitempty"` // Used for: Increment, HDelete, HLen responses
	Ok    bool   `json:"ok,omitempty"`    // Used for: Exists, Get, SetIfAbsent, Expire, HGet, HExists, HSet responses
	Err   string `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Info responses (JSON encoded driver info)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// withErr attaches an error message to a response
func withErr(msg *Message, err error) *Message {
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewExistsRequest creates a new Exists request
func NewExistsRequest(key string) *Message {
	return &Message{MsgType: MsgTExists, Key: key}
}

// NewExistsResponse creates a new Exists response
func NewExistsResponse(ok bool, err error) *Message {
	return withErr(&Message{MsgType: MsgTExists, Ok: ok}, err)
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{MsgType: MsgTGet, Key: key}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	return withErr(&Message{MsgType: MsgTGet, Value: value, Ok: ok}, err)
}

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) *Message {
	return &Message{MsgType: MsgTSet, Key: key, Value: value}
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTSet}, err)
}

// NewSetXRequest creates a new SetX request. The ttl is transmitted in
// nanoseconds.
func NewSetXRequest(key string, value []byte, ttl uint64) *Message {
	return &Message{MsgType: MsgTSetX, Key: key, Value: value, TTL: ttl}
}

// NewSetXResponse creates a new SetX response
func NewSetXResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTSetX}, err)
}

// NewSetIfAbsentRequest creates a new SetIfAbsent request
func NewSetIfAbsentRequest(key string, value []byte, ttl uint64) *Message {
	return &Message{MsgType: MsgTSetIfAbsent, Key: key, Value: value, TTL: ttl}
}

// NewSetIfAbsentResponse creates a new SetIfAbsent response
func NewSetIfAbsentResponse(ok bool, err error) *Message {
	return withErr(&Message{MsgType: MsgTSetIfAbsent, Ok: ok}, err)
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{MsgType: MsgTDelete, Key: key}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTDelete}, err)
}

// NewIncrementRequest creates a new Increment request
func NewIncrementRequest(key string, delta int64) *Message {
	return &Message{MsgType: MsgTIncrement, Key: key, Delta: delta}
}

// NewIncrementResponse creates a new Increment response
func NewIncrementResponse(value int64, err error) *Message {
	return withErr(&Message{MsgType: MsgTIncrement, Count: value}, err)
}

// NewExpireRequest creates a new Expire request
func NewExpireRequest(key string, ttl uint64) *Message {
	return &Message{MsgType: MsgTExpire, Key: key, TTL: ttl}
}

// NewExpireResponse creates a new Expire response
func NewExpireResponse(ok bool, err error) *Message {
	return withErr(&Message{MsgType: MsgTExpire, Ok: ok}, err)
}

// NewHGetRequest creates a new HGet request
func NewHGetRequest(key, field string) *Message {
	return &Message{MsgType: MsgTHGet, Key: key, Field: field}
}

// NewHGetResponse creates a new HGet response
func NewHGetResponse(value []byte, ok bool, err error) *Message {
	return withErr(&Message{MsgType: MsgTHGet, Value: value, Ok: ok}, err)
}

// NewHExistsRequest creates a new HExists request
func NewHExistsRequest(key, field string) *Message {
	return &Message{MsgType: MsgTHExists, Key: key, Field: field}
}

// NewHExistsResponse creates a new HExists response
func NewHExistsResponse(ok bool, err error) *Message {
	return withErr(&Message{MsgType: MsgTHExists, Ok: ok}, err)
}

// NewHSetRequest creates a new HSet request
func NewHSetRequest(key, field string, value []byte) *Message {
	return &Message{MsgType: MsgTHSet, Key: key, Field: field, Value: value}
}

// NewHSetResponse creates a new HSet response
func NewHSetResponse(created bool, err error) *Message {
	return withErr(&Message{MsgType: MsgTHSet, Ok: created}, err)
}

// NewHDeleteRequest creates a new HDelete request
func NewHDeleteRequest(key string, fields []string) *Message {
	return &Message{MsgType: MsgTHDelete, Key: key, Fields: fields}
}

// NewHDeleteResponse creates a new HDelete response
func NewHDeleteResponse(removed int64, err error) *Message {
	return withErr(&Message{MsgType: MsgTHDelete, Count: removed}, err)
}

// NewHLenRequest creates a new HLen request
func NewHLenRequest(key string) *Message {
	return &Message{MsgType: MsgTHLen, Key: key}
}

// NewHLenResponse creates a new HLen response
func NewHLenResponse(length int64, err error) *Message {
	return withErr(&Message{MsgType: MsgTHLen, Count: length}, err)
}

// NewHKeysRequest creates a new HKeys request
func NewHKeysRequest(key string) *Message {
	return &Message{MsgType: MsgTHKeys, Key: key}
}

// NewHKeysResponse creates a new HKeys response
func NewHKeysResponse(fields []string, err error) *Message {
	return withErr(&Message{MsgType: MsgTHKeys, Fields: fields}, err)
}

// NewRunCommandRequest creates a new RunCommand request
func NewRunCommandRequest(cmd string) *Message {
	return &Message{MsgType: MsgTRunCommand, Value: []byte(cmd)}
}

// NewRunCommandResponse creates a new RunCommand response
func NewRunCommandResponse(result []byte, err error) *Message {
	return withErr(&Message{MsgType: MsgTRunCommand, Value: result}, err)
}

// NewPingRequest creates a new Ping request
func NewPingRequest() *Message {
	return &Message{MsgType: MsgTPing}
}

// NewPingResponse creates a new Ping response
func NewPingResponse(err error) *Message {
	return withErr(&Message{MsgType: MsgTPing}, err)
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{MsgType: MsgTInfo}
}

// NewInfoResponse creates a new Info response. The info is transmitted
// JSON encoded in the Meta field.
func NewInfoResponse(meta []byte, err error) *Message {
	return withErr(&Message{MsgType: MsgTInfo, Meta: meta}, err)
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{MsgType: MsgTCustom, Meta: meta}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	return withErr(&Message{MsgType: MsgTCustom, Meta: meta}, err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{MsgType: MsgTError, Err: err}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTExists:
		return "exists"
	case MsgTGet:
		return "get"
	case MsgTSet:
		return "set"
	case MsgTSetX:
		return "setX"
	case MsgTSetIfAbsent:
		return "setIfAbsent"
	case MsgTDelete:
		return "delete"
	case MsgTIncrement:
		return "increment"
	case MsgTExpire:
		return "expire"
	case MsgTHGet:
		return "hGet"
	case MsgTHExists:
		return "hExists"
	case MsgTHSet:
		return "hSet"
	case MsgTHDelete:
		return "hDelete"
	case MsgTHLen:
		return "hLen"
	case MsgTHKeys:
		return "hKeys"
	case MsgTRunCommand:
		return "runCommand"
	case MsgTPing:
		return "ping"
	case MsgTInfo:
		return "info"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "exists":
		*t = MsgTExists
	case "get":
		*t = MsgTGet
	case "set":
		*t = MsgTSet
	case "setX":
		*t = MsgTSetX
	case "setIfAbsent":
		*t = MsgTSetIfAbsent
	case "delete":
		*t = MsgTDelete
	case "increment":
		*t = MsgTIncrement
	case "expire":
		*t = MsgTExpire
	case "hGet":
		*t = MsgTHGet
	case "hExists":
		*t = MsgTHExists
	case "hSet":
		*t = MsgTHSet
	case "hDelete":
		*t = MsgTHDelete
	case "hLen":
		*t = MsgTHLen
	case "hKeys":
		*t = MsgTHKeys
	case "runCommand":
		*t = MsgTRunCommand
	case "ping":
		*t = MsgTPing
	case "info":
		*t = MsgTInfo
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Key operations

	MsgTExists      // Check if a key exists
	MsgTGet         // Get a value by key
	MsgTSet         // Set a key-value pair
	MsgTSetX        // Set a key-value pair with a time to live
	MsgTSetIfAbsent // Set a key-value pair if not already set
	MsgTDelete      // Delete a key-value pair
	MsgTIncrement   // Add a delta to a counter
	MsgTExpire      // Arm a time to live on an existing key

	// Hash operations

	MsgTHGet    // Get a hash field
	MsgTHExists // Check if a hash field exists
	MsgTHSet    // Set a hash field
	MsgTHDelete // Delete hash fields
	MsgTHLen    // Count hash fields
	MsgTHKeys   // List hash field names

	// Connection operations

	MsgTRunCommand // Pass a raw command to the back end
	MsgTPing       // Check the connection
	MsgTInfo       // Retrieve back end information

	// Custom operations

	MsgTCustom // Custom operation type
)
