package lockmgr

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Persisted Key Layout
// --------------------------------------------------------------------------

// Lock bookkeeping lives in dedicated key namespaces, distinguished by a
// type prefix on the key. The layout is shared with every other client
// of the same back end, so the prefixes and suffixes are fixed.
const (
	storeLockPrefix    = "4"   // + storeID + storeLockSuffix -> sentinel
	lockNamePrefix     = "5"   // + base64(name)              -> lock id
	lockInfoPrefix     = "6"   // + lock id                   -> lockInfo
	lockSentinelPrefix = "7"   // + lock id + namedLockSuffix -> sentinel
	entityLockPrefix   = "501" // + entity + entityLockSuffix -> sentinel

	storeLockSuffix  = "dps_lock"
	namedLockSuffix  = "dl_lock"
	entityLockSuffix = "generic_lock"

	// sentinelValue is the payload of every lock sentinel. Ownership is
	// tracked in the lock info entry, not in the sentinel itself.
	sentinelValue = "1"
)

func storeLockKey(storeID uint64) string {
	return storeLockPrefix + strconv.FormatUint(storeID, 10) + storeLockSuffix
}

func lockNameKey(encodedName string) string {
	return lockNamePrefix + encodedName
}

func lockInfoKey(id uint64) string {
	return lockInfoPrefix + strconv.FormatUint(id, 10)
}

func lockSentinelKey(id uint64) string {
	return lockSentinelPrefix + strconv.FormatUint(id, 10) + namedLockSuffix
}

func entityLockKey(entity string) string {
	return entityLockPrefix + entity + entityLockSuffix
}

// --------------------------------------------------------------------------
// Lock Info Entry
// --------------------------------------------------------------------------

// lockInfo is the bookkeeping record of a named lock, persisted as
// "usageCount_expirationEpochMillis_pid_base64(name)". The name comes
// last so parsing stays unambiguous: base64 never contains underscores,
// and the first three fields are plain integers.
type lockInfo struct {
	UsageCount   uint32
	ExpirationMs int64 // lease deadline, unix milliseconds (0 = not held)
	Pid          uint32
	EncodedName  string
}

func (li lockInfo) String() string {
	return fmt.Sprintf("%d_%d_%d_%s", li.UsageCount, li.ExpirationMs, li.Pid, li.EncodedName)
}

// parseLockInfo parses a persisted lock info value
func parseLockInfo(raw string) (lockInfo, error) {
	parts := strings.SplitN(raw, "_", 4)
	if len(parts) != 4 {
		return lockInfo{}, fmt.Errorf("lockmgr: malformed lock info %q", raw)
	}

	usage, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return lockInfo{}, fmt.Errorf("lockmgr: bad usage count in %q: %w", raw, err)
	}
	expiration, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return lockInfo{}, fmt.Errorf("lockmgr: bad expiration in %q: %w", raw, err)
	}
	pid, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return lockInfo{}, fmt.Errorf("lockmgr: bad pid in %q: %w", raw, err)
	}

	return lockInfo{
		UsageCount:   uint32(usage),
		ExpirationMs: expiration,
		Pid:          uint32(pid),
		EncodedName:  parts[3],
	}, nil
}
