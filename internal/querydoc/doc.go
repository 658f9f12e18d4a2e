// Package querydoc compiles queryir snapshots for a document store and runs
// them through a Store.
//
// The document backend implements a reduced feature set. Of all condition
// kinds only field_equals compiles, to a (field, value) filter pair; every
// other kind, combinators included, fails with NOT_IMPLEMENTED. Joins,
// GROUP BY, random ordering, insert ids and affected-row counts are
// likewise unsupported. These gaps are reported, never approximated.
package querydoc
