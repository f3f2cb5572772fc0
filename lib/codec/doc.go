// Package codec provides the binary-safe textual encoding used for all
// persisted names, keys and metadata (base64) and the length-prefix
// framing that serialized values carry on the wire.
package codec
