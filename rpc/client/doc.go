// Package client implements the RPC client of the coordination layer.
// It provides an implementation of the driver.IConn interface that forwards
// all operations to a remote server via RPC, so higher layers can treat a
// network back end like any local one.
//
// The package focuses on:
//   - Transparent RPC access to server-side driver connections
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and driver errors
//
// Key Components:
//
//   - NewRPCConn: Factory function that creates a client implementing the
//     driver.IConn interface. This client forwards all operations to remote
//     servers via the configured transport layer.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  Endpoints:              []string{"localhost:5000"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	// Create a serializer
//	serializer := serializer.NewBinarySerializer()
//
//	// Create the remote connection
//	conn, _ := client.NewRPCConn(1, config, tcp.NewTCPClientTransport(), serializer)
//
//	// Use the connection
//	conn.Set("mykey", []byte("myvalue"))
//	value, exists, _ := conn.Get("mykey")
//
//	// Higher layers work unchanged on top of it
//	reg, _ := dps.NewRegistry(conn, nil)
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	The client implementation is thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
