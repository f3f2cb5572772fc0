// Package server implements the RPC server of the coordination layer.
// It exposes driver connections over the network so that remote clients
// can use them like any other back end, along with the core server
// implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for all driver operations
//   - Adapter pattern to decouple driver logic from RPC mechanisms
//   - Flexible shard configuration with in-memory and raft replicated back ends
//   - Per operation prometheus metrics and optional pprof endpoints
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a driver.IConn.
//
//   - NewDriverServerAdapter: Factory function creating the adapter that maps
//     RPC messages onto the primitive operations of a driver connection.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Type: common.ShardTypeMem},
//	  },
//	  Endpoint: "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server supports two types of shards, which can be mixed within a single server:
//
//   - ShardTypeMem: A single-node in-memory back end, suitable for single-node
//     deployments or development environments.
//
//   - ShardTypeRaft: A raft replicated back end using Raft consensus, providing
//     strong consistency across multiple nodes. When using this type, RAFT
//     configuration (RTTMillisecond, SnapshotEntries, CompactionOverhead,
//     DataDir, ReplicaID, and ClusterMembers) must be properly configured.
//
// Metrics:
//
//	When ServerConfig.MetricsEndpoint is set, the server starts a debug HTTP
//	server exposing prometheus metrics under /metrics (request counts and
//	latency summaries per operation) and the standard pprof endpoints.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	Across multiple connections. Each request is processed independently.
//	The Listen method is not thread-safe and should be called only once.
package server
