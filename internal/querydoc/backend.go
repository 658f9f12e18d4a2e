package querydoc

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/queryir"
)

const backendName = "document"

// FindOptions carries sort, pagination and projection for Store.Find.
// Zero Skip and Limit mean "not set".
type FindOptions struct {
	Sort       bson.D
	Skip       int64
	Limit      int64
	Projection bson.D
}

// Store is the document-store collaborator: one database, addressed by
// collection name.
type Store interface {
	Find(ctx context.Context, collection string, filter bson.D, opts FindOptions) ([]ir.Row, error)
	Count(ctx context.Context, collection string, filter bson.D) (int64, error)
	InsertOne(ctx context.Context, collection string, doc bson.D) error
	UpdateMany(ctx context.Context, collection string, filter bson.D, set bson.D) (int64, error)
	DeleteMany(ctx context.Context, collection string, filter bson.D) (int64, error)
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// Backend executes queryir snapshots on a document store.
type Backend struct {
	store  Store
	logger *slog.Logger
}

// NewBackend creates a document backend. A nil logger discards log output.
func NewBackend(store Store, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Backend{store: store, logger: logger}
}

// Name identifies the backend in errors and logs.
func (b *Backend) Name() string {
	return backendName
}

// Get runs a find. Range is (offset, limit): the offset is skipped only when
// positive and the limit applied only when positive.
func (b *Backend) Get(ctx context.Context, q *queryir.Select) ([]ir.Row, error) {
	if err := b.checkPortable(q); err != nil {
		return nil, err
	}
	filter, err := Filter(q.Where)
	if err != nil {
		return nil, err
	}

	var opts FindOptions
	for _, s := range q.Sort {
		dir := 1
		if s.Dir == queryir.Desc {
			dir = -1
		}
		opts.Sort = append(opts.Sort, bson.E{Key: s.Field, Value: dir})
	}
	if q.Range != nil {
		if q.Range.Offset > 0 {
			opts.Skip = q.Range.Offset
		}
		if q.Range.Limit > 0 {
			opts.Limit = q.Range.Limit
		}
	}
	for _, f := range q.Fields {
		opts.Projection = append(opts.Projection, bson.E{Key: f, Value: 1})
	}

	b.logger.Debug("find", "collection", q.Table, "filter", filter, "skip", opts.Skip, "limit", opts.Limit)
	rows, err := b.store.Find(ctx, q.Table, filter, opts)
	if err != nil {
		return nil, dberr.BackendFailed("find "+q.Table, err)
	}
	if rows == nil {
		rows = []ir.Row{}
	}
	return rows, nil
}

// Count counts matching documents.
func (b *Backend) Count(ctx context.Context, q *queryir.Count) (int64, error) {
	filter, err := Filter(q.Where)
	if err != nil {
		return 0, err
	}
	b.logger.Debug("count", "collection", q.Table, "filter", filter)
	n, err := b.store.Count(ctx, q.Table, filter)
	if err != nil {
		return 0, dberr.BackendFailed("count "+q.Table, err)
	}
	return n, nil
}

// Insert adds one document. The document store has no insert id contract,
// so the result is always zero.
func (b *Backend) Insert(ctx context.Context, q *queryir.Insert) (queryir.Result, error) {
	doc, err := Document(q.Data)
	if err != nil {
		return queryir.Result{}, err
	}
	b.logger.Debug("insert", "collection", q.Table, "doc", doc)
	if err := b.store.InsertOne(ctx, q.Table, doc); err != nil {
		return queryir.Result{}, dberr.BackendFailed("insert "+q.Table, err)
	}
	return queryir.Result{}, nil
}

// Update applies $set with Data to every matching document.
func (b *Backend) Update(ctx context.Context, q *queryir.Update) (queryir.Result, error) {
	filter, err := Filter(q.Where)
	if err != nil {
		return queryir.Result{}, err
	}
	set, err := Document(q.Data)
	if err != nil {
		return queryir.Result{}, err
	}
	n, err := b.store.UpdateMany(ctx, q.Table, filter, set)
	if err != nil {
		return queryir.Result{}, dberr.BackendFailed("update "+q.Table, err)
	}
	b.logger.Debug("update", "collection", q.Table, "filter", filter, "modified", n)
	return queryir.Result{}, nil
}

// Delete removes every matching document.
func (b *Backend) Delete(ctx context.Context, q *queryir.Delete) (queryir.Result, error) {
	filter, err := Filter(q.Where)
	if err != nil {
		return queryir.Result{}, err
	}
	return b.deleteMany(ctx, q.Table, filter)
}

// Truncate removes every document of the collection.
func (b *Backend) Truncate(ctx context.Context, q *queryir.Truncate) (queryir.Result, error) {
	return b.deleteMany(ctx, q.Table, bson.D{})
}

// TableExists reports whether the collection exists.
func (b *Backend) TableExists(ctx context.Context, table string) (bool, error) {
	ok, err := b.store.CollectionExists(ctx, table)
	if err != nil {
		return false, dberr.BackendFailed("list collections", err)
	}
	return ok, nil
}

// LastInsertID is not supported by the document store.
func (b *Backend) LastInsertID(queryir.Result) (int64, error) {
	return 0, dberr.NotImplemented(backendName, "insert ids")
}

// AffectedRows is not supported by the document store.
func (b *Backend) AffectedRows(queryir.Result) (int64, error) {
	return 0, dberr.NotImplemented(backendName, "affected rows")
}

func (b *Backend) deleteMany(ctx context.Context, collection string, filter bson.D) (queryir.Result, error) {
	n, err := b.store.DeleteMany(ctx, collection, filter)
	if err != nil {
		return queryir.Result{}, dberr.BackendFailed("delete "+collection, err)
	}
	b.logger.Debug("delete", "collection", collection, "filter", filter, "deleted", n)
	return queryir.Result{}, nil
}

// checkPortable rejects select features outside the portable fragment that
// are not conditions. Conditions are checked by Filter with a precise error.
func (b *Backend) checkPortable(q *queryir.Select) error {
	probe := *q
	probe.Where = nil
	result := queryir.Validate(&probe)
	if result.IsPortable {
		return nil
	}
	return dberr.NotImplemented(backendName, strings.Join(result.Warnings, ", "))
}
