// Package unix implements the dPS RPC transport over Unix domain sockets,
// for clients running on the same machine as the server.
//
// This package extends the base transport layer with Unix socket connectors
// while inheriting connection pooling, request routing and error handling
// from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners and accepts connections
//
// Performance Characteristics:
//
//   - Default buffer size: 64 KB, sized for local communication patterns
//   - No TCP/IP stack processing, so lower latency than the tcp transport
//     for same-host clients
package unix
