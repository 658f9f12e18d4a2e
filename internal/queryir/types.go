package queryir

import (
	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/ir"
)

// Query is one frozen terminal request.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
	TableName() string
}

// Direction is a sort direction. Any value other than Desc sorts ascending.
type Direction int

const (
	Asc  Direction = 1
	Desc Direction = -1
)

// Sort is one ORDER BY key.
type Sort struct {
	Field string
	Dir   Direction
}

// Range is an offset/limit pair.
type Range struct {
	Offset int64
	Limit  int64
}

// Join is one joined table and its ON conditions (implicitly ANDed).
type Join struct {
	Table string
	On    []*cond.Condition
}

// Select reads rows.
//
// Semantics:
//
//	SELECT <fields> FROM <table> <joins> WHERE <where> GROUP BY <group_by>
//	ORDER BY <sort | random> LIMIT <range>
//
// Empty Fields selects every column. Random and Sort are mutually exclusive;
// Random wins if both are set.
type Select struct {
	Table   string
	Fields  []string
	Where   []*cond.Condition
	Joins   []Join
	GroupBy string
	Sort    []Sort
	Random  bool
	Range   *Range // nil = unbounded
}

func (*Select) queryNode()          {}
func (q *Select) TableName() string { return q.Table }

// Count counts rows matching Where.
type Count struct {
	Table string
	Where []*cond.Condition
}

func (*Count) queryNode()          {}
func (q *Count) TableName() string { return q.Table }

// Insert adds one row. Data is already projected and non-empty.
type Insert struct {
	Table string
	Data  ir.Record
}

func (*Insert) queryNode()          {}
func (q *Insert) TableName() string { return q.Table }

// Update sets Data on every row matching Where.
type Update struct {
	Table string
	Data  ir.Record
	Where []*cond.Condition
}

func (*Update) queryNode()          {}
func (q *Update) TableName() string { return q.Table }

// Delete removes every row matching Where.
type Delete struct {
	Table string
	Where []*cond.Condition
}

func (*Delete) queryNode()          {}
func (q *Delete) TableName() string { return q.Table }

// Truncate removes every row unconditionally.
type Truncate struct {
	Table string
}

func (*Truncate) queryNode()          {}
func (q *Truncate) TableName() string { return q.Table }

// Result describes the effect of a write.
type Result struct {
	// LastInsertID is the identifier assigned by the last insert.
	// Zero when the backend has none.
	LastInsertID int64

	// RowsAffected is the number of rows changed by the write.
	RowsAffected int64
}
