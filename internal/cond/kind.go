package cond

import (
	"strings"

	"github.com/roach88/sistrence/internal/dberr"
)

// Kind is the closed set of predicate kinds.
type Kind string

const (
	FieldEquals         Kind = "field_equals"
	FieldNotEquals      Kind = "field_nequals"
	FieldContains       Kind = "field_contains"
	FieldStarts         Kind = "field_starts"
	FieldEnds           Kind = "field_ends"
	FieldLike           Kind = "field_like"
	FieldGreater        Kind = "field_greater"
	FieldGreaterOrEqual Kind = "field_greater_or_equal"
	FieldLess           Kind = "field_less"
	FieldLessOrEqual    Kind = "field_less_or_equal"
	FieldRegexp         Kind = "field_regexp"
	IsNull              Kind = "isnull"
	NotNull             Kind = "notnull"
	MergeAnd            Kind = "merge_and"
	MergeOr             Kind = "merge_or"
	BoolNot             Kind = "bool_not"
)

// Kinds lists every canonical kind.
var Kinds = []Kind{
	FieldEquals, FieldNotEquals, FieldContains, FieldStarts, FieldEnds,
	FieldLike, FieldGreater, FieldGreaterOrEqual, FieldLess, FieldLessOrEqual,
	FieldRegexp, IsNull, NotNull, MergeAnd, MergeOr, BoolNot,
}

// Aliases maps short names to canonical kinds.
var Aliases = map[string]Kind{
	"and":                    MergeAnd,
	"or":                     MergeOr,
	"not":                    BoolNot,
	"eq":                     FieldEquals,
	"ne":                     FieldNotEquals,
	"contains":               FieldContains,
	"starts":                 FieldStarts,
	"ends":                   FieldEnds,
	"like":                   FieldLike,
	"gt":                     FieldGreater,
	"lt":                     FieldLess,
	"gtoe":                   FieldGreaterOrEqual,
	"ltoe":                   FieldLessOrEqual,
	"regexp":                 FieldRegexp,
	"null":                   IsNull,
	"is_null":                IsNull,
	"is_not_null":            NotNull,
	"field_bigger":           FieldGreater,
	"field_bigger_or_equal":  FieldGreaterOrEqual,
	"field_smaller":          FieldLess,
	"field_smaller_or_equal": FieldLessOrEqual,
}

var canonical = func() map[Kind]bool {
	m := make(map[Kind]bool, len(Kinds))
	for _, k := range Kinds {
		m[k] = true
	}
	return m
}()

// ResolveKind lower-cases name and resolves it through the alias table.
// Returns an INVALID_CONDITION_KIND error for unknown names.
func ResolveKind(name string) (Kind, error) {
	lower := strings.ToLower(name)
	if k, ok := Aliases[lower]; ok {
		return k, nil
	}
	if canonical[Kind(lower)] {
		return Kind(lower), nil
	}
	return "", dberr.InvalidConditionKind(name)
}

// IsField reports whether k compares a field (as opposed to combining children).
func (k Kind) IsField() bool {
	return strings.HasPrefix(string(k), "field_") || k == IsNull || k == NotNull
}

// IsCombinator reports whether k holds child conditions.
func (k Kind) IsCombinator() bool {
	return k == MergeAnd || k == MergeOr || k == BoolNot
}

// IsNullCheck reports whether k is isnull or notnull.
func (k Kind) IsNullCheck() bool {
	return k == IsNull || k == NotNull
}
