// Package http implements an HTTP-based transport for the dPS RPC system.
// It provides concrete implementations of the transport interfaces defined
// in the parent package.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Manages connections
//     to server endpoints with round-robin selection, and retries failed
//     requests up to the configured retry count.
//
//   - httpServerTransport: Implements IRPCServerTransport. Sets up an HTTP
//     server that routes incoming requests to the handler based on the shard
//     ID in the URL path.
//
// Thread Safety:
//
//	The client transport is safe for concurrent use. It uses an atomic counter
//	for the round-robin endpoint selection.
//
// Compared to the tcp and unix transports this implementation trades some
// throughput for simple integration with existing HTTP infrastructure
// (proxies, load balancers, request logging).
package http
