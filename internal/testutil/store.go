package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/querydoc"
)

// MemoryStore is an in-memory querydoc.Store that records every call.
//
// Filters match by exact equality on every listed field. Documents are kept
// in insertion order; no _id is generated.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string][]ir.Row
	calls       []string
	failures    map[string]error
}

var _ querydoc.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]ir.Row),
		failures:    make(map[string]error),
	}
}

// Seed appends documents to a collection without recording a call.
func (s *MemoryStore) Seed(collection string, docs ...ir.Row) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.collections[collection] = append(s.collections[collection], cloneRow(d))
	}
	return s
}

// FailOn makes every call of the given method ("find", "count", "insert",
// "update", "delete", "exists") fail with err.
func (s *MemoryStore) FailOn(method string, err error) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
	return s
}

// Calls returns a copy of the recorded calls, in order.
func (s *MemoryStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Documents returns a copy of a collection's documents.
func (s *MemoryStore) Documents(collection string) []ir.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.Row, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		out = append(out, cloneRow(d))
	}
	return out
}

func (s *MemoryStore) record(method, call string) error {
	s.calls = append(s.calls, call)
	return s.failures[method]
}

// Find implements querydoc.Store.
func (s *MemoryStore) Find(_ context.Context, collection string, filter bson.D, opts querydoc.FindOptions) ([]ir.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := fmt.Sprintf("find %s %s", collection, FormatDoc(filter))
	if len(opts.Sort) > 0 {
		call += " sort=" + FormatDoc(opts.Sort)
	}
	if opts.Skip > 0 {
		call += fmt.Sprintf(" skip=%d", opts.Skip)
	}
	if opts.Limit > 0 {
		call += fmt.Sprintf(" limit=%d", opts.Limit)
	}
	if len(opts.Projection) > 0 {
		call += " fields=" + FormatDoc(opts.Projection)
	}
	if err := s.record("find", call); err != nil {
		return nil, err
	}

	var matched []ir.Row
	for _, d := range s.collections[collection] {
		if matches(d, filter) {
			matched = append(matched, d)
		}
	}

	if len(opts.Sort) > 0 {
		slices.SortStableFunc(matched, func(a, b ir.Row) int {
			for _, e := range opts.Sort {
				c := compareValues(a[e.Key], b[e.Key])
				if dir, _ := e.Value.(int); dir < 0 {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}

	out := make([]ir.Row, 0, len(matched))
	for _, d := range matched {
		out = append(out, project(d, opts.Projection))
	}
	return out, nil
}

// Count implements querydoc.Store.
func (s *MemoryStore) Count(_ context.Context, collection string, filter bson.D) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("count", fmt.Sprintf("count %s %s", collection, FormatDoc(filter))); err != nil {
		return 0, err
	}
	var n int64
	for _, d := range s.collections[collection] {
		if matches(d, filter) {
			n++
		}
	}
	return n, nil
}

// InsertOne implements querydoc.Store.
func (s *MemoryStore) InsertOne(_ context.Context, collection string, doc bson.D) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("insert", fmt.Sprintf("insert %s %s", collection, FormatDoc(doc))); err != nil {
		return err
	}
	row := make(ir.Row, len(doc))
	for _, e := range doc {
		row[e.Key] = e.Value
	}
	s.collections[collection] = append(s.collections[collection], row)
	return nil
}

// UpdateMany implements querydoc.Store.
func (s *MemoryStore) UpdateMany(_ context.Context, collection string, filter bson.D, set bson.D) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("update", fmt.Sprintf("update %s %s $set=%s", collection, FormatDoc(filter), FormatDoc(set))); err != nil {
		return 0, err
	}
	var n int64
	for _, d := range s.collections[collection] {
		if matches(d, filter) {
			for _, e := range set {
				d[e.Key] = e.Value
			}
			n++
		}
	}
	return n, nil
}

// DeleteMany implements querydoc.Store.
func (s *MemoryStore) DeleteMany(_ context.Context, collection string, filter bson.D) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("delete", fmt.Sprintf("delete %s %s", collection, FormatDoc(filter))); err != nil {
		return 0, err
	}
	docs := s.collections[collection]
	kept := docs[:0]
	var n int64
	for _, d := range docs {
		if matches(d, filter) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	s.collections[collection] = kept
	return n, nil
}

// CollectionExists implements querydoc.Store.
func (s *MemoryStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("exists", "exists "+collection); err != nil {
		return false, err
	}
	_, ok := s.collections[collection]
	return ok, nil
}

// FormatDoc renders a document as {k: v, ...} with strings quoted.
func FormatDoc(d bson.D) string {
	parts := make([]string, len(d))
	for i, e := range d {
		parts[i] = e.Key + ": " + formatValue(e.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprint(val)
	}
}

func matches(doc ir.Row, filter bson.D) bool {
	for _, e := range filter {
		v, ok := doc[e.Key]
		if e.Value == nil {
			if ok && v != nil {
				return false
			}
			continue
		}
		if !ok || compareValues(v, e.Value) != 0 {
			return false
		}
	}
	return true
}

func project(doc ir.Row, projection bson.D) ir.Row {
	if len(projection) == 0 {
		return cloneRow(doc)
	}
	out := make(ir.Row, len(projection))
	for _, e := range projection {
		if v, ok := doc[e.Key]; ok {
			out[e.Key] = v
		}
	}
	return out
}

func cloneRow(r ir.Row) ir.Row {
	out := make(ir.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// compareValues orders numbers numerically, strings lexically and puts
// everything else (and mismatched types) in a stable order by rendering.
func compareValues(a, b any) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return cmp.Compare(sa, sb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok && ba == bb {
			return 0
		}
	}
	return cmp.Compare(fmt.Sprintf("%T:%v", a, a), fmt.Sprintf("%T:%v", b, b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
