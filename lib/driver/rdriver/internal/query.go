package internal

// QueryType defines the possible read-only queries for the state machine.
type QueryType uint8

const (
	QueryTExists QueryType = iota // Check whether a key is present.
	QueryTGet                     // Retrieve an entry by key.
	QueryTHGet                    // Retrieve a single hash field.
	QueryTHExists                 // Check whether a hash field is present.
	QueryTHLen                    // Count the fields of a hash.
	QueryTHKeys                   // List the field names of a hash.
	QueryTInfo                    // Retrieve metadata about the applied state.
)

func (q QueryType) String() string {
	switch q {
	case QueryTExists:
		return "Exists"
	case QueryTGet:
		return "Get"
	case QueryTHGet:
		return "HGet"
	case QueryTHExists:
		return "HExists"
	case QueryTHLen:
		return "HLen"
	case QueryTHKeys:
		return "HKeys"
	case QueryTInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via
// SyncRead or StaleRead
type Query struct {
	Type  QueryType // The type of Query to perform.
	Key   string    // The key for the Query (empty for some queries).
	Field string    // The hash field for the Query (empty for most queries).
}

// QueryResult is the result of a QueryTGet or QueryTHGet operation.
// All other query results are primitive types or predefined structs.
type QueryResult struct {
	Ok    bool
	Value []byte
}

// --------------------------------------------------------------------------
// Result Codes
// --------------------------------------------------------------------------

// Result codes returned in sm.Result.Value by the state machine's
// Update. On ResultErr the Data field carries the error text; on
// ResultOK it carries the operation's payload (if any).
const (
	ResultErr uint64 = iota
	ResultOK
)
