// Package serializer provides message serialization for the dPS RPC system.
// It defines a common interface and multiple implementations for serializing
// and deserializing messages between client and server.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations
//     must satisfy.
//
//   - binarySerializerImpl: Custom binary format optimized for speed and
//     space. Uses a flag word to encode only the fields a message actually
//     carries, resulting in compact output with minimal overhead.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding.
//     Good compatibility with Go's type system but larger serialized sizes.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, useful for
//     debugging or interoperability with other systems.
//
// Performance Characteristics (based on the package benchmarks):
//
//   - Binary: Smallest payloads and fastest round trips. Recommended for
//     production use.
//
//   - JSON: Acceptable performance with moderate payload sizes. Human-readable
//     output is convenient for debugging and integration.
//
//   - GOB: Consistently slower with larger payloads than the other two.
//     Kept for completeness, not recommended.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	Serializers are typically created once and reused:
//
//	  s := serializer.NewBinarySerializer()
//	  data, err := s.Serialize(message)
//	  // ... send data ...
//	  var received common.Message
//	  err = s.Deserialize(data, &received)
package serializer
