// Package util provides shared helpers for driver implementations:
// stable and seeded FNV-1a string hashing, random seed generation and a
// deadline-ordered priority queue for expiry sweeping.
package util
