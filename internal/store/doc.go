// Package store provides the revisioned document store behind the gateway.
//
// The store knows nothing about tasks or time segments. It holds individually
// addressable documents, each with:
//   - ID:   string key, unique across all types
//   - Type: type tag used by bulk queries ("task", "time-segment", ...)
//   - Rev:  revision token, replaced on every write
//   - Ref:  optional foreign key, indexed for grouping queries
//   - Body: JSON document
//
// # Optimistic Concurrency
//
// Update and delete take the revision observed at read time. A write carrying
// a stale revision fails with ErrConflict and changes nothing.
//
// # Drivers
//
//   - sqlite: single file, WAL mode, one writer
//   - badger: embedded key-value directory
//   - memory: badger in in-memory mode, for tests and dry runs
package store
