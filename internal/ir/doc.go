// Package ir provides the value types shared by every layer of sistrence.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key types:
//   - Row: one result row (column name -> value) as returned by a backend
//   - Record: an ordered list of key/value pairs used for insert and update
//     payloads and for the multi-field condition shorthand
//   - Pair: one entry of a Record
//
// Go maps are unordered, so anything whose order ends up in generated SQL is
// carried as a Record. Plain maps are accepted at the API edge and converted
// with RecordFromMap, which sorts keys for deterministic output.
package ir
