// Package wire maps domain entities to and from the JSON documents that cross
// the host boundary (CLI, UI) and the document store.
//
// Conventions:
//   - Durations are non-negative whole seconds. Sub-second precision is
//     truncated toward zero on encode.
//   - Identifiers decode from either a JSON integer or a numeric string; the
//     store keys documents by string while callers send numbers.
//   - Task and time segment documents accept "_id" as an alias of "id".
//   - Creation requests have no identifier; one present on input is ignored.
//   - Schedules keep the order the scheduler produced.
//
// Stored bodies and command output are rendered with Canonical, which sorts
// object keys and NFC-normalizes strings so equal entities produce equal bytes.
package wire
