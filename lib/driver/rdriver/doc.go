// Package rdriver implements a distributed, fault-tolerant back end
// driver using the Dragonboat RAFT consensus library. It provides a
// strongly consistent implementation of the driver.IConn interface
// that can operate across multiple nodes while maintaining
// linearizable consistency.
//
// Architecture:
//
// The rdriver implementation consists of three main components:
//
//   - Driver Client: Implements the driver.IConn interface and
//     communicates with the RAFT cluster. It serializes operations into
//     commands, sends them to the consensus layer, and processes
//     responses.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine implementation
//     that processes commands and queries on each node. The applied
//     state is a memdriver.Store instance.
//
//   - Communication Protocol: Defined in the internal package, this
//     consists of Command and Query structures with serialization logic
//     for transmitting operations across the network.
//
// Deterministic Expiry:
//
//	A replicated state machine must apply the exact same state on every
//	node, but replicas apply log entries at different wall-clock times.
//	All expiring operations therefore never transmit a relative time to
//	live: the proposing node converts the ttl into an absolute deadline
//	(unix nanoseconds) before the command enters the raft log, and every
//	replica stores that same deadline.
//
// Write Operations:
//
//	All write operations (Set, SetX, SetIfAbsent, Delete, Increment,
//	Expire, HSet, HDelete) follow this flow:
//
//	1. The operation is serialized into a Command structure
//	2. The Command is proposed to the RAFT cluster via SyncPropose
//	3. The leader node replicates the command to a majority of followers
//	4. Once committed, the command is executed on the state machine on
//	   each node (Update method in statemachine.go)
//	5. The result is returned to the client
//
// Read Operations:
//
// Read operations (Exists, Get, HGet, HLen, HKeys) use SyncRead, which
// ensures that the node processing the read has applied all committed
// log entries locally before processing the request. Diagnostic reads
// (Ping, GetInfo) use the faster StaleRead path since slightly outdated
// information is acceptable there.
//
// Error Handling and Retries:
//
//	When Dragonboat reports ErrSystemBusy, the operation is retried
//	after a short delay, up to a fixed number of attempts. All
//	operations have a configurable timeout; if consensus cannot be
//	reached within this period, the operation fails with a connection
//	error.
//
// Snapshotting and Recovery:
//
// The state machine creates fuzzy snapshots without pausing operations,
// leveraging the store's Save method. On recovery a node first restores
// from the most recent snapshot via Load and then replays all log
// entries committed after the snapshot was created. Expired entries are
// dropped during Load, so a recovered node never resurrects leases.
//
// Usage:
//
//	// Create NodeHost (RAFT client)
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	// Create and start shard (RAFT server)
//	err = nh.StartConcurrentReplica(
//	    clusterMembers,
//	    false,
//	    rdriver.CreateStateMachineFactory(nil),
//	    shardConfig)
//	if err != nil { ... }
//
//	// Create the driver connection with an appropriate timeout
//	conn := rdriver.New(nh, shardID, 5*time.Second)
//
//	// Wait for shard readiness then begin operations
//	// ...
//
// Limitations:
//
//   - Majority Requirement: Operations cannot proceed if a majority of
//     nodes are unavailable
//   - Leader Dependency: Write operations require the leader to be
//     available
//   - Raw Commands: RunCommand is rejected since it would bypass the
//     raft log
//
// For scenarios where distributed consensus is not required, consider
// using the simpler and faster memdriver package, which provides a
// single-node implementation of the same interface.
package rdriver
