package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/ir"
)

func eq(field string, v any) *cond.Condition {
	return cond.Must(cond.New("eq", nil, field, v))
}

func TestValidatePortable(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"plain select", &Select{Table: "users"}},
		{"select with equals, sort and range", &Select{
			Table:  "users",
			Fields: []string{"name"},
			Where:  []*cond.Condition{eq("x", 5), eq("y", "a")},
			Sort:   []Sort{{Field: "name", Dir: Asc}},
			Range:  &Range{Offset: 10, Limit: 5},
		}},
		{"count", &Count{Table: "users", Where: []*cond.Condition{eq("x", 5)}}},
		{"insert", &Insert{Table: "users", Data: ir.Record{ir.P("a", 1)}}},
		{"update", &Update{Table: "users", Data: ir.Record{ir.P("a", 1)}, Where: []*cond.Condition{eq("id", 1)}}},
		{"delete", &Delete{Table: "users"}},
		{"truncate", &Truncate{Table: "users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.True(t, result.IsPortable, result.Warnings)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestValidateNonPortable(t *testing.T) {
	gt := cond.Must(cond.New("gt", nil, "age", 18))

	tests := []struct {
		name     string
		query    Query
		warnings []string
	}{
		{
			name:     "join",
			query:    &Select{Table: "users", Joins: []Join{{Table: "orders"}}},
			warnings: []string{`join on "orders"`},
		},
		{
			name:     "group by",
			query:    &Select{Table: "users", GroupBy: "country"},
			warnings: []string{`group by "country"`},
		},
		{
			name:     "random",
			query:    &Select{Table: "users", Random: true},
			warnings: []string{"random ordering"},
		},
		{
			name:     "comparison in count",
			query:    &Count{Table: "users", Where: []*cond.Condition{gt}},
			warnings: []string{`field_greater on "age" is not supported by the document backend`},
		},
		{
			name:     "nil",
			query:    nil,
			warnings: []string{"nil query"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.False(t, result.IsPortable)
			assert.Equal(t, tt.warnings, result.Warnings)
		})
	}
}

func TestTableName(t *testing.T) {
	queries := []Query{
		&Select{Table: "t"}, &Count{Table: "t"}, &Insert{Table: "t"},
		&Update{Table: "t"}, &Delete{Table: "t"}, &Truncate{Table: "t"},
	}
	for _, q := range queries {
		assert.Equal(t, "t", q.TableName())
	}
}
