package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFromMapSortsKeys(t *testing.T) {
	rec := RecordFromMap(map[string]any{"b": 2, "a": 1, "c": 3})
	assert.Equal(t, []string{"a", "b", "c"}, rec.Keys())
	assert.Equal(t, Record{P("a", 1), P("b", 2), P("c", 3)}, rec)
}

func TestAsRecord(t *testing.T) {
	tests := []struct {
		name string
		data any
		want Record
		ok   bool
	}{
		{"record", Record{P("name", "Bob"), P("age", 30)}, Record{P("name", "Bob"), P("age", 30)}, true},
		{"pairs", []Pair{P("x", 1)}, Record{P("x", 1)}, true},
		{"map", map[string]any{"b": 1, "a": 2}, Record{P("a", 2), P("b", 1)}, true},
		{"row", Row{"k": "v"}, Record{P("k", "v")}, true},
		{"string", "nope", nil, false},
		{"slice", []any{1, 2}, nil, false},
		{"nil", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsRecord(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordProject(t *testing.T) {
	rec := Record{P("name", "Bob"), P("age", 30), P("email", "b@example.com")}

	got := rec.Project([]string{"email", "missing", "name"})
	assert.Equal(t, Record{P("email", "b@example.com"), P("name", "Bob")}, got)

	assert.Empty(t, rec.Project([]string{"nothing"}))
}

func TestRecordGetFirstOccurrenceWins(t *testing.T) {
	rec := Record{P("a", 1), P("a", 2)}

	v, ok := rec.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, map[string]any{"a": 1}, rec.Map())

	_, ok = rec.Get("b")
	assert.False(t, ok)
}

func TestRowSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...), which sorts before
	// U+FF21 in UTF-16 but after it in UTF-8.
	row := Row{"Ａ": 1, "\U0001F600": 2, "a": 3}
	assert.Equal(t, []string{"a", "\U0001F600", "Ａ"}, row.SortedKeys())
}
