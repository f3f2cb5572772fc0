// Package cmd implements the command-line interface for the dPS coordination
// layer. It provides a hierarchical command structure with operations for
// running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for raw key-value operations on a shard (get, set, delete, etc.)
//   - store: Commands for named store operations (create, put, get, iterate, etc.)
//   - ttl: Commands for the global TTL keyspace (put, get, rm, has)
//   - lock: Commands for named lock operations (acquire, release, pid, remove)
//   - serve: Commands for starting and configuring the dPS server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dps -help for a list of all commands.
package cmd
