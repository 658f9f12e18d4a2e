package queryir

import (
	"fmt"

	"github.com/roach88/sistrence/internal/cond"
)

// ValidationResult contains portability analysis of a query.
type ValidationResult struct {
	// IsPortable indicates the query uses only portable fragment features
	// and will run on the document backend as well as SQL.
	IsPortable bool

	// Warnings lists non-portable features used in the query.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks if a query conforms to the portable fragment rules.
//
// Portable fragment rules:
//  1. No joins
//  2. No GROUP BY
//  3. No random ordering
//  4. Conditions are field_equals against literals only
//
// Non-portable queries are allowed and execute correctly with the SQL
// backend.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addWarning("nil query")
	case *Select:
		v.validateSelect(query)
	case *Count:
		v.validateWhere(query.Where)
	case *Update:
		v.validateWhere(query.Where)
	case *Delete:
		v.validateWhere(query.Where)
	case *Insert, *Truncate:
		// always portable
	default:
		v.addWarning("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel *Select) {
	// Rule 1: no joins
	for _, j := range sel.Joins {
		v.addWarning("join on %q", j.Table)
	}

	// Rule 2: no GROUP BY
	if sel.GroupBy != "" {
		v.addWarning("group by %q", sel.GroupBy)
	}

	// Rule 3: no random ordering
	if sel.Random {
		v.addWarning("random ordering")
	}

	v.validateWhere(sel.Where)
}

// validateWhere applies rule 4 to each top-level condition.
func (v *validator) validateWhere(where []*cond.Condition) {
	for _, c := range where {
		result := cond.Validate(c)
		v.warnings = append(v.warnings, result.Warnings...)
	}
}
