// Package op provides the per-query builder bound to one table and one
// backend.
//
// An Operation collects conditions, joins, sort, range, projection and
// group-by, then snapshots them into a queryir query when a terminal method
// (Get, GetOne, Count, Insert, Update, Delete, UpdateOrInsert, Truncate) is
// called. The snapshot is handed to a Backend, which compiles and runs it.
//
// Condition calls register the new condition on the Operation (or Join) at
// construction time. Combinators such as And drop their children from the
// same list first, so
//
//	o.And(o.Eq("a", 1), o.Eq("b", 2))
//
// leaves exactly one registered condition.
//
// Construction errors are sticky: the first one is stored, reported through
// the dberr.Reporter and returned by the next terminal call without
// contacting the backend.
//
// An Operation is not safe for concurrent use and is not meant to be reused
// after a terminal call.
package op
