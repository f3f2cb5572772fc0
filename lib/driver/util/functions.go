package util

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// --------------------------------------------------------------------------
// General Utility Functions
// --------------------------------------------------------------------------

// GenerateSeed creates a robust random seed for internal hash distribution
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// last-resort fallback
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// Hash64 generates a stable, unseeded hash value for a string.
// It is used wherever a value must hash to the same result on every
// process and every run: shard routing and id derivation.
// This function uses the FNV-1a hash algorithm, which is fast and has
// good distribution.
func Hash64(s string) uint64 {
	return hash(s, 0)
}

// SeededHash generates a hash value for a string with a seed.
// Used for internal map distribution where per-instance uniqueness
// is wanted.
func SeededHash(s string, seed uint64) uint64 {
	return hash(s, seed)
}

func hash(s string, seed uint64) uint64 {
	// FNV-1a hash with seed incorporation
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	h := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
