package dps

import "strconv"

// --------------------------------------------------------------------------
// Persisted Key Layout
// --------------------------------------------------------------------------

// All store bookkeeping lives in the same flat keyspace as user data,
// separated by type prefixes on the keys. The exact strings are shared
// with every other client of the same back end and must not change.
const (
	// guidKey is the legacy id counter. Ids are derived
	// deterministically from the store name nowadays, but the key stays
	// reserved so mixed deployments do not collide with it.
	guidKey = "dps_and_dl_guid"

	storeNamePrefix     = "0" // + base64(name) -> store id
	storeContentsPrefix = "1" // + store id     -> contents hash
)

// Every store's contents hash carries three reserved metadata fields.
// Their values are base64 encoded. They are invisible to all data
// operations: size subtracts them, iteration skips them.
const (
	reservedFieldName      = "dps_name_of_this_store"
	reservedFieldKeyType   = "dps_spl_type_name_of_key"
	reservedFieldValueType = "dps_spl_type_name_of_value"

	reservedFieldCount = 3
)

func storeNameKey(encodedName string) string {
	return storeNamePrefix + encodedName
}

func storeContentsKey(id uint64) string {
	return storeContentsPrefix + strconv.FormatUint(id, 10)
}

// isReservedField reports whether a hash field is store metadata
func isReservedField(field string) bool {
	switch field {
	case reservedFieldName, reservedFieldKeyType, reservedFieldValueType:
		return true
	}
	return false
}
