// Package driver defines the primitive key-value vocabulary that every
// back end must expose: existence checks, plain and expiring writes,
// conditional inserts, atomic counters, hash containers and raw command
// pass-through.
//
// Everything above this package (stores, locks, iterators, the RPC layer)
// is written purely against the IConn interface, which is what makes the
// whole system back-end agnostic. Implementations live in the
// subpackages:
//
//   - memdriver: in-memory reference implementation
//   - sharded:   client-side partitioning over multiple connections
//   - cluster:   redirect handling for natively clustered back ends
//   - rdriver:   raft-replicated implementation
//
// Feature flags let a driver advertise which parts of the vocabulary it
// supports; callers must check SupportsFeature before relying on an
// optional operation.
package driver
