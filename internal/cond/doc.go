// Package cond provides the backend-agnostic condition tree.
//
// A Condition is one predicate node. Field kinds compare a named field
// against operands; combinator kinds (merge_and, merge_or, bool_not) hold
// child Conditions. Conditions are created through New, which resolves
// aliases, expands the multi-field shorthand, and removes combinator children
// from their scope so that nothing is counted twice.
//
// Conditions do not compile themselves. Backends walk the tree through the
// accessors (Kind, Field, Args, Children, Qualifier) and render their own
// fragments; see internal/querysql and internal/querydoc.
//
// # Ownership
//
// A Condition holds a Scope: a narrow, non-owning capability pointing back at
// the Operation or Join that registered it. The scope answers two questions:
// how to qualify field names, and how to drop a previously registered
// condition. The owner keeps its conditions in a List, an arena addressed by
// stable Handles.
//
// # Kinds and aliases
//
//	eq, field_equals               field = value
//	ne, field_nequals              field != value
//	contains, field_contains       field LIKE '%value%'
//	starts, field_starts           field LIKE 'value%'
//	ends, field_ends               field LIKE '%value'
//	like, field_like               field LIKE pattern [ESCAPE 'c']
//	gt, field_greater, field_bigger
//	gtoe, field_greater_or_equal, field_bigger_or_equal
//	lt, field_less, field_smaller
//	ltoe, field_less_or_equal, field_smaller_or_equal
//	regexp, field_regexp
//	null, is_null, isnull          field IS NULL
//	is_not_null, notnull           field IS NOT NULL
//	and, merge_and / or, merge_or / not, bool_not
package cond
