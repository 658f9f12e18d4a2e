package op

import (
	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
)

// Conditions is a condition list together with the calls that build and
// register conditions on it. It is embedded by Operation and Join, and it is
// the cond.Scope of every condition created through it.
//
// Every call returns the registered condition, or nil if construction
// failed. A failure is recorded on the owning Operation.
type Conditions struct {
	list      cond.List
	qualifier string
	fail      func(error)
	lastErr   error
}

var _ cond.Scope = (*Conditions)(nil)

// Qualifier returns the table name fields are qualified with, or "".
func (c *Conditions) Qualifier() string {
	return c.qualifier
}

// Cond builds a condition of the named kind (aliases accepted) and
// registers it.
func (c *Conditions) Cond(kind string, params ...any) *cond.Condition {
	cd, _ := c.register(kind, params)
	return cd
}

// CondHandle is Cond returning the registration handle for DropHandle.
// The construction error, if any, is also returned.
func (c *Conditions) CondHandle(kind string, params ...any) (cond.Handle, error) {
	cd, h := c.register(kind, params)
	if cd == nil {
		return -1, c.lastErr
	}
	return h, nil
}

func (c *Conditions) register(kind string, params []any) (*cond.Condition, cond.Handle) {
	cd, err := cond.New(kind, c, params...)
	if err != nil {
		c.lastErr = err
		c.fail(err)
		return nil, -1
	}
	return cd, c.list.Add(cd)
}

// Add registers an existing condition again and returns the new handle.
func (c *Conditions) Add(cd *cond.Condition) cond.Handle {
	return c.list.Add(cd)
}

// Drop removes the most recent registration of cd.
// Returns false, changing nothing, when cd is not registered here.
func (c *Conditions) Drop(cd *cond.Condition) bool {
	return c.list.Drop(cd)
}

// DropHandle removes the registration addressed by h.
func (c *Conditions) DropHandle(h cond.Handle) bool {
	return c.list.DropHandle(h)
}

// All returns the registered conditions in registration order.
func (c *Conditions) All() []*cond.Condition {
	return c.list.All()
}

// Len returns the number of registered conditions.
func (c *Conditions) Len() int {
	return c.list.Len()
}

func (c *Conditions) Eq(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldEquals), field, v)
}

func (c *Conditions) Ne(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldNotEquals), field, v)
}

func (c *Conditions) Contains(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldContains), field, v)
}

func (c *Conditions) Starts(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldStarts), field, v)
}

func (c *Conditions) Ends(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldEnds), field, v)
}

// Like matches a raw LIKE pattern. An optional single-character escape may
// follow the pattern.
func (c *Conditions) Like(field, pattern string, escape ...string) *cond.Condition {
	params := []any{field, pattern}
	for _, e := range escape {
		params = append(params, e)
	}
	return c.Cond(string(cond.FieldLike), params...)
}

func (c *Conditions) Gt(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldGreater), field, v)
}

func (c *Conditions) Gte(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldGreaterOrEqual), field, v)
}

func (c *Conditions) Lt(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldLess), field, v)
}

func (c *Conditions) Lte(field string, v any) *cond.Condition {
	return c.Cond(string(cond.FieldLessOrEqual), field, v)
}

func (c *Conditions) Regexp(field, pattern string) *cond.Condition {
	return c.Cond(string(cond.FieldRegexp), field, pattern)
}

func (c *Conditions) IsNull(field string) *cond.Condition {
	return c.Cond(string(cond.IsNull), field)
}

func (c *Conditions) NotNull(field string) *cond.Condition {
	return c.Cond(string(cond.NotNull), field)
}

// And registers a merge_and over children after dropping each child.
func (c *Conditions) And(children ...*cond.Condition) *cond.Condition {
	return c.Cond(string(cond.MergeAnd), childParams(children)...)
}

// Or registers a merge_or over children after dropping each child.
func (c *Conditions) Or(children ...*cond.Condition) *cond.Condition {
	return c.Cond(string(cond.MergeOr), childParams(children)...)
}

// Not registers the negation of child after dropping it.
func (c *Conditions) Not(child *cond.Condition) *cond.Condition {
	return c.Cond(string(cond.BoolNot), child)
}

// EqAll registers one field_equals per entry of data, each as its own
// condition. Unlike Eq with a mapping, no merge_and is created.
func (c *Conditions) EqAll(data any) []*cond.Condition {
	rec, ok := ir.AsRecord(data)
	if !ok {
		err := dberr.InvalidData("eq all: expected a field/value mapping, got %T", data)
		c.lastErr = err
		c.fail(err)
		return nil
	}
	out := make([]*cond.Condition, 0, len(rec))
	for _, p := range rec {
		if cd := c.Eq(p.Key, p.Value); cd != nil {
			out = append(out, cd)
		}
	}
	return out
}

func childParams(children []*cond.Condition) []any {
	params := make([]any, len(children))
	for i, ch := range children {
		params[i] = ch
	}
	return params
}
