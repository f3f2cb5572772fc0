package driver

import "time"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMem     Implementation = "mem"
	ImplSharded Implementation = "sharded"
	ImplCluster Implementation = "cluster"
	ImplRaft    Implementation = "raft"
	ImplRemote  Implementation = "remote"
)

// Feature represents driver capabilities as bit flags
type Feature uint64

const (
	FeatureExists      Feature = 1 << iota // Support for Exists operations
	FeatureGet                             // Support for Get operations
	FeatureSet                             // Support for Set operations
	FeatureSetX                            // Support for Set with expiry
	FeatureSetIfAbsent                     // Support for conditional inserts
	FeatureDelete                          // Support for Delete operations
	FeatureIncrement                       // Support for atomic counters
	FeatureExpire                          // Support for setting expiry on existing keys
	FeatureHashes                          // Support for hash (field/value) containers
	FeatureRunCommand                      // Support for raw command pass-through
	FeatureContainers                      // Back end manages named containers natively
)

func (f Feature) String() string {
	switch f {
	case FeatureExists:
		return "Exists"
	case FeatureGet:
		return "Get"
	case FeatureSet:
		return "Set"
	case FeatureSetX:
		return "SetX"
	case FeatureSetIfAbsent:
		return "SetIfAbsent"
	case FeatureDelete:
		return "Delete"
	case FeatureIncrement:
		return "Increment"
	case FeatureExpire:
		return "Expire"
	case FeatureHashes:
		return "Hashes"
	case FeatureRunCommand:
		return "RunCommand"
	case FeatureContainers:
		return "Containers"
	default:
		return "Unknown"
	}
}

// DriverInfo describes a connected back end.
type DriverInfo struct {
	DriverType        Implementation `json:"driver_type"`
	ClusterSize       int            `json:"cluster_size"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Driver Interface
// --------------------------------------------------------------------------

// IConn defines the primitive operation vocabulary every back end driver
// exposes. One IConn represents one logical connection to a back end.
// All higher layers (stores, locks, iterators) are composed purely from
// these operations, which keeps them back-end agnostic.
// Implementations can vary in their feature support, which can be queried
// with SupportsFeature.
type IConn interface {

	// --------------------------------------------------------------------------
	// Key Operations
	// --------------------------------------------------------------------------

	// Exists checks whether a key is present.
	Exists(key string) (ok bool, err error)

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)

	// Set inserts or updates an entry without expiry.
	Set(key string, value []byte) (err error)

	// SetX inserts or updates an entry with the given time to live.
	// A ttl of zero is invalid for SetX, use Set instead.
	SetX(key string, value []byte, ttl time.Duration) (err error)

	// SetIfAbsent inserts an entry only if the key is not present.
	// The returned boolean indicates whether the insert took place.
	// A positive ttl additionally arms an expiry on the inserted entry.
	SetIfAbsent(key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Delete removes an entry. Deleting an absent key is not an error.
	Delete(key string) (err error)

	// Increment atomically adds delta to the decimal integer stored at key
	// (an absent key counts as zero) and returns the new value.
	Increment(key string, delta int64) (value int64, err error)

	// Expire arms or rearms an expiry on an existing key.
	// The boolean return value indicates whether the key was found.
	Expire(key string, ttl time.Duration) (ok bool, err error)

	// --------------------------------------------------------------------------
	// Hash Operations
	// --------------------------------------------------------------------------

	// HGet retrieves a single field from the hash stored at key.
	HGet(key, field string) (value []byte, loaded bool, err error)

	// HExists checks whether a field is present in the hash at key
	// without transferring the field's value.
	HExists(key, field string) (ok bool, err error)

	// HSet stores a field in the hash at key, creating the hash if needed.
	// The returned boolean indicates whether the field was newly created.
	HSet(key, field string, value []byte) (created bool, err error)

	// HDelete removes fields from the hash at key and returns how many
	// of them were present.
	HDelete(key string, fields ...string) (removed int64, err error)

	// HLen returns the number of fields in the hash at key (0 if absent).
	HLen(key string) (length int64, err error)

	// HKeys returns all field names of the hash at key.
	HKeys(key string) (fields []string, err error)

	// --------------------------------------------------------------------------
	// Connection Management
	// --------------------------------------------------------------------------

	// RunCommand passes a raw command string to the back end and returns
	// its textual reply. The command dialect is back-end specific.
	RunCommand(cmd string) (result []byte, err error)

	// Ping verifies the connection is alive.
	Ping() (err error)

	// Reconnect re-establishes a dropped connection.
	Reconnect() (err error)

	// SupportsFeature checks if the driver supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the connected back end.
	GetInfo() (info DriverInfo)

	// Close releases the connection.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Optional Interfaces
// --------------------------------------------------------------------------

// IContainerAdmin is implemented by drivers whose back end manages named
// containers (document stores). Key-space back ends emulate containers
// with hashes and do not implement this interface.
type IContainerAdmin interface {
	CreateContainer(name string) (err error)
	DeleteContainer(name string) (err error)
	ContainerSize(name string) (size int64, err error)
}

// IAskable is implemented by drivers that understand one-shot redirect
// handshakes on natively clustered back ends.
type IAskable interface {
	// Asking marks the next command on this connection as pre-authorized
	// for a slot that is in the middle of a migration.
	Asking() (err error)
}

// DialFunc establishes a new connection to the node at addr.
// Used by the cluster wrapper to follow redirects.
type DialFunc func(addr string) (IConn, error)
