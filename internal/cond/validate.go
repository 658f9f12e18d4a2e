package cond

import "fmt"

// ValidationResult reports which parts of a condition tree fall outside the
// fragment every backend supports.
type ValidationResult struct {
	// IsPortable is true when the tree compiles on the document backend too.
	IsPortable bool

	// Warnings lists the unsupported nodes, outermost first.
	Warnings []string
}

// Validate checks a condition tree against the portable fragment.
//
// The portable fragment is what the document backend compiles: a single
// field_equals whose operand is not a FieldRef. Everything else works with
// SQL only.
//
// Validate is a pure function with no side effects.
func Validate(c *Condition) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validate(c, "")
	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validate(c *Condition, path string) {
	if c == nil {
		v.addWarning("%snil condition", path)
		return
	}

	switch {
	case c.kind == FieldEquals:
		if _, ok := c.Value().(FieldRef); ok {
			v.addWarning("%s%s on %q compares against a field reference", path, c.kind, c.field)
		}
	case c.kind.IsCombinator():
		v.addWarning("%s%s is not supported by the document backend", path, c.kind)
		for i, child := range c.children {
			v.validate(child, fmt.Sprintf("%s%s[%d].", path, c.kind, i))
		}
	default:
		v.addWarning("%s%s on %q is not supported by the document backend", path, c.kind, c.field)
	}
}
