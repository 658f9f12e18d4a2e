// Package queryir provides the backend-neutral query snapshots handed from an
// Operation to a backend.
//
// An Operation accumulates conditions, sort rules, a range, a projection and
// joins. When a terminal method runs it freezes that state into one of the
// Query types below and passes it to its backend. Backends never see the
// Operation itself.
//
//	[Operation] → [queryir.Query] → [SQL backend]      (internal/querysql)
//	                              → [Document backend] (internal/querydoc)
//
// SEALED INTERFACES:
//
// Query is a sealed interface using the marker method pattern. Only types in
// this package implement it, so backends can switch exhaustively:
//
//	switch q := query.(type) {
//	case *Select:
//	case *Count:
//	case *Insert:
//	case *Update:
//	case *Delete:
//	case *Truncate:
//	}
//
// PORTABLE FRAGMENT:
//
// The SQL backend accepts every snapshot. The document backend accepts the
// portable fragment only:
//   - no joins
//   - no GROUP BY
//   - no random ordering
//   - conditions limited to field_equals against a literal
//
// Validate reports which features of a snapshot fall outside it.
package queryir
