package ir

import (
	"slices"
	"unicode/utf16"
)

// Row is a single result row keyed by column (or document field) name.
type Row map[string]any

// Pair is one key/value entry of a Record.
type Pair struct {
	Key   string
	Value any
}

// P is a shorthand for Pair.
// Example: Record{P("name", "Bob"), P("age", 30)}
func P(key string, value any) Pair {
	return Pair{Key: key, Value: value}
}

// Record is an ordered field -> value mapping.
// Order is significant: it is the order columns appear in generated SQL.
type Record []Pair

// RecordFromMap converts a map into a Record with keys in canonical order.
func RecordFromMap(m map[string]any) Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	rec := make(Record, 0, len(keys))
	for _, k := range keys {
		rec = append(rec, Pair{Key: k, Value: m[k]})
	}
	return rec
}

// AsRecord normalizes the payload shapes accepted at the API edge.
// Returns false if data is not a field/value mapping.
func AsRecord(data any) (Record, bool) {
	switch d := data.(type) {
	case Record:
		return d, true
	case []Pair:
		return Record(d), true
	case Row:
		return RecordFromMap(map[string]any(d)), true
	case map[string]any:
		return RecordFromMap(d), true
	default:
		return nil, false
	}
}

// Keys returns the keys in record order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, p := range r {
		keys[i] = p.Key
	}
	return keys
}

// Get returns the value for key. When a key appears more than once the
// first occurrence wins.
func (r Record) Get(key string) (any, bool) {
	for _, p := range r {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Project keeps only the listed fields that are present in the record,
// in the order the fields are listed. Absent fields are skipped.
func (r Record) Project(fields []string) Record {
	out := make(Record, 0, len(fields))
	for _, f := range fields {
		if v, ok := r.Get(f); ok {
			out = append(out, Pair{Key: f, Value: v})
		}
	}
	return out
}

// Map converts the record into a plain map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, p := range r {
		if _, seen := m[p.Key]; !seen {
			m[p.Key] = p.Value
		}
	}
	return m
}

// SortedKeys returns row keys in RFC 8785 canonical order (UTF-16 code units).
func (row Row) SortedKeys() []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison is UTF-8 byte order, which differs for
// characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
