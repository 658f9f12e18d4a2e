// Package link keeps the open backends of a process, addressed by integer
// link id, and hands out Operations routed by a Sharder.
package link

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/op"
	"github.com/roach88/sistrence/internal/shard"
)

// Registry maps link ids to backends.
//
// Thread-safety: Register and Op may be called concurrently. The returned
// Operations are not shared.
type Registry struct {
	mu       sync.RWMutex
	links    map[int]op.Backend
	sharder  shard.Sharder
	logger   *slog.Logger
	reporter dberr.Reporter
	ids      op.IDGenerator
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger handed to every Operation.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReporter sets the failure hook handed to every Operation.
func WithReporter(rep dberr.Reporter) Option {
	return func(r *Registry) {
		r.reporter = rep
	}
}

// WithIDGenerator sets the operation id generator.
func WithIDGenerator(g op.IDGenerator) Option {
	return func(r *Registry) {
		r.ids = g
	}
}

// NewRegistry creates an empty registry. A nil sharder routes every table
// to link 0.
func NewRegistry(sharder shard.Sharder, opts ...Option) *Registry {
	if sharder == nil {
		sharder = shard.Single(0)
	}
	r := &Registry{
		links:   make(map[int]op.Backend),
		sharder: sharder,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = dberr.NewLogReporter(r.logger)
	}
	return r
}

// Register binds backend to link id, replacing any earlier binding.
func (r *Registry) Register(id int, backend op.Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[id] = backend
}

// Backend returns the backend bound to id.
func (r *Registry) Backend(id int) (op.Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.links[id]
	if !ok {
		return nil, dberr.InvalidLink(id)
	}
	return b, nil
}

// IDs returns the registered link ids in ascending order.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.links))
	for id := range r.links {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Op creates an Operation on table, on the link the sharder picks.
func (r *Registry) Op(table string) (*op.Operation, error) {
	return r.OpOn(r.sharder.Resolve(table), table)
}

// OpOn creates an Operation on table on an explicit link.
func (r *Registry) OpOn(id int, table string) (*op.Operation, error) {
	b, err := r.Backend(id)
	if err != nil {
		return nil, err
	}
	opts := []op.Option{op.WithLogger(r.logger), op.WithReporter(r.reporter)}
	if r.ids != nil {
		opts = append(opts, op.WithIDGenerator(r.ids))
	}
	return op.New(b, table, opts...), nil
}
