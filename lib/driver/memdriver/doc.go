// Package memdriver provides the in-memory reference implementation of
// the driver interface.
//
// It supports the full primitive vocabulary including hash containers,
// atomic counters and conditional inserts. Expiry is wall-clock based:
// reads treat overdue entries as absent, and a background sweeper driven
// by a deadline-ordered heap reclaims them physically.
//
// The store also doubles as the applied state of the raft driver. For
// that use the expiring writes have absolute-deadline variants (SetXAt,
// SetIfAbsentAt, ExpireAt) and the whole state can be written to and
// restored from a compact binary format with Save and Load.
package memdriver
