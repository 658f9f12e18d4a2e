package cond

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
)

// Scope is the capability a Condition holds on its owner.
//
// Qualifier returns the table name used to qualify field names, or "" for
// unqualified fields. Drop removes the most recent registration of c from
// the owner's condition list and reports whether one was found.
type Scope interface {
	Qualifier() string
	Drop(c *Condition) bool
}

// FieldRef names a column so it can be used as a comparison value.
// Backends render it as an identifier, never as an escaped literal.
type FieldRef struct {
	Table string
	Name  string
}

func (f FieldRef) String() string {
	if f.Table == "" {
		return f.Name
	}
	return f.Table + "." + f.Name
}

// Condition is one predicate node.
// Field kinds carry a field name and operands; combinator kinds carry children.
type Condition struct {
	kind     Kind
	scope    Scope
	field    string
	args     []any
	children []*Condition
}

// New builds a condition of the named kind.
//
// The kind is resolved through the alias table. A field kind whose first
// parameter is a mapping (ir.Record, ir.Row or map[string]any) expands to a
// merge_and of one condition per entry. Combinator children are dropped from
// scope, last child first, before the combinator is returned.
//
// New does not register the returned condition anywhere; that is the
// caller's job.
func New(kind string, scope Scope, params ...any) (*Condition, error) {
	k, err := ResolveKind(kind)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(string(k), "field_") && len(params) > 0 {
		if rec, ok := asMapping(params[0]); ok {
			return expand(k, scope, rec, params[1:])
		}
	}

	if k.IsCombinator() {
		return newCombinator(k, scope, params)
	}
	return newField(k, scope, params)
}

// Must is New for callers that construct conditions from constants.
// It panics on error.
func Must(c *Condition, err error) *Condition {
	if err != nil {
		panic(err)
	}
	return c
}

func asMapping(v any) (ir.Record, bool) {
	switch v.(type) {
	case ir.Record, []ir.Pair, ir.Row, map[string]any:
		return ir.AsRecord(v)
	}
	return nil, false
}

// expand fans a multi-field shorthand out into a merge_and.
// Sub-conditions are never registered, so nothing is dropped from scope.
func expand(k Kind, scope Scope, rec ir.Record, rest []any) (*Condition, error) {
	if len(rest) > 0 {
		return nil, dberr.InvalidData("%s: multi-field form takes a single mapping, got %d extra parameters", k, len(rest))
	}
	if len(rec) == 0 {
		return nil, dberr.InvalidData("%s: multi-field form requires at least one field", k)
	}

	children := make([]*Condition, 0, len(rec))
	for _, p := range rec {
		child, err := newField(k, scope, []any{p.Key, p.Value})
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Condition{kind: MergeAnd, scope: scope, children: children}, nil
}

func newCombinator(k Kind, scope Scope, params []any) (*Condition, error) {
	children := make([]*Condition, 0, len(params))
	for i, p := range params {
		c, ok := p.(*Condition)
		if !ok || c == nil {
			return nil, dberr.InvalidData("%s: parameter %d must be a condition, got %T", k, i, p)
		}
		children = append(children, c)
	}

	switch {
	case k == BoolNot && len(children) != 1:
		return nil, dberr.InvalidData("%s: requires exactly one child, got %d", k, len(children))
	case len(children) == 0:
		return nil, dberr.InvalidData("%s: requires at least one child", k)
	}

	if scope != nil {
		for i := len(children) - 1; i >= 0; i-- {
			scope.Drop(children[i])
		}
	}

	return &Condition{kind: k, scope: scope, children: children}, nil
}

func newField(k Kind, scope Scope, params []any) (*Condition, error) {
	if len(params) == 0 {
		return nil, dberr.InvalidData("%s: field name is required", k)
	}
	field, ok := params[0].(string)
	if !ok || field == "" {
		return nil, dberr.InvalidData("%s: field name must be a non-empty string, got %T", k, params[0])
	}
	args := params[1:]

	switch {
	case k.IsNullCheck():
		if len(args) != 0 {
			return nil, dberr.InvalidData("%s: takes no operands, got %d", k, len(args))
		}
	case k == FieldLike:
		if len(args) < 1 || len(args) > 2 {
			return nil, dberr.InvalidData("%s: takes a pattern and an optional escape character, got %d operands", k, len(args))
		}
		if len(args) == 2 {
			esc, ok := args[1].(string)
			if !ok || utf8.RuneCountInString(esc) != 1 {
				return nil, dberr.InvalidData("%s: escape must be a single character, got %v", k, args[1])
			}
		}
	default:
		if len(args) != 1 {
			return nil, dberr.InvalidData("%s: takes exactly one operand, got %d", k, len(args))
		}
	}

	return &Condition{kind: k, scope: scope, field: field, args: args}, nil
}

// Kind returns the canonical kind.
func (c *Condition) Kind() Kind { return c.kind }

// Field returns the field name. Empty for combinators.
func (c *Condition) Field() string { return c.field }

// Args returns the comparison operands (everything after the field name).
func (c *Condition) Args() []any { return c.args }

// Value returns the first operand, or nil when there is none.
func (c *Condition) Value() any {
	if len(c.args) == 0 {
		return nil
	}
	return c.args[0]
}

// Escape returns the field_like escape character, if one was given.
func (c *Condition) Escape() (string, bool) {
	if c.kind != FieldLike || len(c.args) < 2 {
		return "", false
	}
	return c.args[1].(string), true
}

// Children returns the child conditions. Empty for field kinds.
func (c *Condition) Children() []*Condition { return c.children }

// Scope returns the owning scope, which may be nil.
func (c *Condition) Scope() Scope { return c.scope }

// Qualifier returns the table name field names are qualified with.
func (c *Condition) Qualifier() string {
	if c.scope == nil {
		return ""
	}
	return c.scope.Qualifier()
}

// String renders the condition for diagnostics. It is not SQL.
func (c *Condition) String() string {
	if c.kind.IsCombinator() {
		parts := make([]string, len(c.children))
		for i, child := range c.children {
			parts[i] = child.String()
		}
		return fmt.Sprintf("%s(%s)", c.kind, strings.Join(parts, ", "))
	}
	if len(c.args) == 0 {
		return fmt.Sprintf("%s(%s)", c.kind, c.field)
	}
	return fmt.Sprintf("%s(%s, %v)", c.kind, c.field, c.args[0])
}
