// Package dps implements a process store layer on top of key-value back
// ends that implement the driver.IConn interface. Multiple processes
// sharing one back end see the same named stores, the same TTL keyspace
// and the same locks.
//
// Core Functionality:
//   - Named stores: created, found and removed via IStoreRegistry;
//     addressed by a deterministic id so every process resolves the
//     same name to the same store without coordination
//   - Store operations: put/get/has/remove, bulk variants, clear, size,
//     iteration, plus Safe variants that take the store's structural
//     lock
//   - TTL keyspace: a single global namespace for fire-and-forget
//     entries with a lifetime, independent of all stores
//   - Lock access: the registry exposes the lock manager bound to the
//     same back end
//
// Implementation Approach:
//
//	Each store lives in one hash container of the back end; user keys
//	are base64 encoded into hash fields and values stay opaque bytes.
//	Three reserved metadata fields record the store's name and type
//	tags; they are subtracted from Size and skipped by iterators.
//	A separate registration entry maps the encoded store name to its
//	id so lookups need no scan. Structural operations (create, remove,
//	clear) run under locks from the lockmgr package so concurrent
//	processes cannot interleave their steps.
//
// Thread Safety:
//
//	The registry and store handles hold no mutable state of their own;
//	they are as thread-safe as the underlying driver implementation.
//	The plain data operations are lock-free. Use the Safe variants when
//	data access must not interleave with Clear or RemoveStore running
//	in another process.
//
// Usage Example:
//
//	reg := dps.NewRegistry(conn, nil)
//
//	store, err := reg.CreateOrGetStore("sensors", "rstring", "int64")
//	if err != nil {
//	    // Handle error
//	}
//
//	if err := store.Put([]byte("temp"), []byte("42")); err != nil {
//	    // Handle error
//	}
//
//	value, loaded, err := store.Get([]byte("temp"))
//	if err != nil {
//	    // Handle error
//	}
//	_ = value
//	_ = loaded
package dps
