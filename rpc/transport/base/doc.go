// Package base provides the protocol-independent core of the dPS transport
// layer. It implements the shared RPC plumbing (framing, connection handling,
// request correlation) and is extended with protocol-specific connectors by
// the tcp and unix packages.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - Connection pooling and buffer reuse
//   - Frame-based message protocol with shardID and requestID tracking
//   - Automatic request routing and response correlation
//   - Retries and reconnection logic on the client side
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for the protocol-specific
//     parts, allowing the base transport to be extended with different
//     network protocols.
//
//   - clientTransport: Core client implementation that manages multiple
//     connections with round-robin load balancing. Supports several
//     connections per endpoint for improved throughput.
//
//   - serverTransport: Core server implementation that accepts connections
//     and routes requests to the registered handler based on shardID.
//
// Performance Notes:
//
//   - Multiple connections per endpoint help under high load and with large
//     messages. For small messages (< 1KB) a single connection per endpoint
//     can perform better because of the reduced per-connection overhead.
//
//   - The server reuses read buffers through a sync.Pool to keep GC pressure
//     low, and the framing layer writes header and payload with a single
//     net.Buffers writev call.
//
//   - The client sends requests and correlates responses asynchronously
//     using unique request IDs, so one slow response does not stall the
//     connection.
//
// Thread Safety:
//
//	All public methods are thread-safe. The client transport uses atomic
//	operations and mutexes for concurrent access, the server runs a dedicated
//	goroutine per connection with a bounded worker pool.
package base
