package querysql

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/queryir"
)

// Executor runs finished SQL text against one connection.
//
// Errors are returned as the driver produced them; Backend wraps them as
// BACKEND_QUERY_FAILED together with the query text.
type Executor interface {
	// Query runs a statement that returns rows.
	Query(ctx context.Context, query string) ([]ir.Row, error)

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string) (queryir.Result, error)

	// Scalar runs a statement returning a single integer column.
	Scalar(ctx context.Context, query string) (int64, error)

	// EscapeString escapes s for a single-quoted literal on this connection.
	EscapeString(s string) string
}

// Backend executes queryir snapshots on a SQL connection.
type Backend struct {
	exec     Executor
	compiler *Compiler
	logger   *slog.Logger
}

// NewBackend creates a backend that compiles for dialect d and runs
// statements through exec. A nil logger discards log output.
func NewBackend(exec Executor, d Dialect, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Backend{
		exec:     exec,
		compiler: NewCompiler(d, exec.EscapeString),
		logger:   logger,
	}
}

// Name identifies the backend in errors and logs.
func (b *Backend) Name() string {
	return b.compiler.Dialect().Name()
}

// Compiler returns the backend's compiler.
func (b *Backend) Compiler() *Compiler {
	return b.compiler
}

// Get runs a SELECT. Zero matching rows yields an empty, non-nil slice.
func (b *Backend) Get(ctx context.Context, q *queryir.Select) ([]ir.Row, error) {
	sql, err := b.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return b.query(ctx, sql)
}

// Count runs SELECT COUNT(*).
func (b *Backend) Count(ctx context.Context, q *queryir.Count) (int64, error) {
	sql, err := b.compiler.Compile(q)
	if err != nil {
		return 0, err
	}
	b.logger.Debug("sql", "query", sql)
	n, err := b.exec.Scalar(ctx, sql)
	if err != nil {
		return 0, dberr.BackendFailed(sql, err)
	}
	return n, nil
}

// Insert runs an INSERT.
func (b *Backend) Insert(ctx context.Context, q *queryir.Insert) (queryir.Result, error) {
	return b.write(ctx, q)
}

// Update runs an UPDATE.
func (b *Backend) Update(ctx context.Context, q *queryir.Update) (queryir.Result, error) {
	return b.write(ctx, q)
}

// Delete runs a DELETE.
func (b *Backend) Delete(ctx context.Context, q *queryir.Delete) (queryir.Result, error) {
	return b.write(ctx, q)
}

// Truncate removes every row of the table.
func (b *Backend) Truncate(ctx context.Context, q *queryir.Truncate) (queryir.Result, error) {
	return b.write(ctx, q)
}

// TableExists probes the catalog for table.
func (b *Backend) TableExists(ctx context.Context, table string) (bool, error) {
	rows, err := b.query(ctx, b.compiler.Dialect().TableExists(table))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Raw runs caller-supplied SQL and returns its rows.
// The text is sent as-is; the caller owns its escaping.
func (b *Backend) Raw(ctx context.Context, sql string) ([]ir.Row, error) {
	return b.query(ctx, sql)
}

// LastInsertID extracts the insert id from a write result.
func (b *Backend) LastInsertID(r queryir.Result) (int64, error) {
	if !b.compiler.Dialect().InsertID() {
		return 0, dberr.NotImplemented(b.Name(), "insert ids")
	}
	return r.LastInsertID, nil
}

// AffectedRows extracts the affected row count from a write result.
func (b *Backend) AffectedRows(r queryir.Result) (int64, error) {
	return r.RowsAffected, nil
}

func (b *Backend) write(ctx context.Context, q queryir.Query) (queryir.Result, error) {
	sql, err := b.compiler.Compile(q)
	if err != nil {
		return queryir.Result{}, err
	}
	b.logger.Debug("sql", "query", sql)
	res, err := b.exec.Exec(ctx, sql)
	if err != nil {
		return queryir.Result{}, dberr.BackendFailed(sql, err)
	}
	return res, nil
}

func (b *Backend) query(ctx context.Context, sql string) ([]ir.Row, error) {
	b.logger.Debug("sql", "query", sql)
	rows, err := b.exec.Query(ctx, sql)
	if err != nil {
		return nil, dberr.BackendFailed(sql, err)
	}
	if rows == nil {
		rows = []ir.Row{}
	}
	return rows, nil
}
