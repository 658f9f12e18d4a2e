package op

import "github.com/roach88/sistrence/internal/cond"

// Join is a joined table with its own ON conditions. Its fields are
// qualified with the table name.
type Join struct {
	Conditions

	table  string
	parent *Operation
}

// Table returns the joined table name.
func (j *Join) Table() string { return j.table }

// Op returns the operation the join belongs to.
func (j *Join) Op() *Operation { return j.parent }

// Field returns a reference to a column of the joined table.
func (j *Join) Field(name string) cond.FieldRef {
	return cond.FieldRef{Table: j.table, Name: name}
}
