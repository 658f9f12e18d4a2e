package op

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/queryir"
)

// Operation is a query builder for one table on one backend.
type Operation struct {
	Conditions

	id       string
	table    string
	backend  Backend
	reporter dberr.Reporter
	logger   *slog.Logger

	joins   []*Join
	fields  []string
	groupBy string
	sort    []queryir.Sort
	random  bool
	rng     *queryir.Range

	last queryir.Result
	err  error
}

// Option configures an Operation.
type Option func(*Operation)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Operation) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReporter sets the failure hook. The default logs through the
// Operation's logger.
func WithReporter(r dberr.Reporter) Option {
	return func(o *Operation) {
		o.reporter = r
	}
}

// WithIDGenerator sets how the operation id is produced.
// The default is UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *Operation) {
		if g != nil {
			o.id = g.Generate()
		}
	}
}

// New creates an Operation on table.
func New(backend Backend, table string, opts ...Option) *Operation {
	o := &Operation{
		table:   table,
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	o.Conditions.fail = o.fail
	for _, opt := range opts {
		opt(o)
	}
	if o.id == "" {
		o.id = UUIDv7Generator{}.Generate()
	}
	o.logger = o.logger.With("op", o.id, "table", table)
	if o.reporter == nil {
		o.reporter = dberr.NewLogReporter(o.logger)
	}
	return o
}

// ID returns the operation id.
func (o *Operation) ID() string { return o.id }

// Table returns the table (or collection) name.
func (o *Operation) Table() string { return o.table }

// Backend returns the backend the operation runs on.
func (o *Operation) Backend() Backend { return o.backend }

// Err returns the first construction error, if any.
func (o *Operation) Err() error { return o.err }

// Sort appends a sort key. Desc sorts descending; any other direction
// sorts ascending. Sorting discards an earlier Randomize.
func (o *Operation) Sort(field string, dir queryir.Direction) *Operation {
	if dir != queryir.Desc {
		dir = queryir.Asc
	}
	o.random = false
	o.sort = append(o.sort, queryir.Sort{Field: field, Dir: dir})
	return o
}

// Randomize orders results randomly, replacing any sort keys.
func (o *Operation) Randomize() *Operation {
	o.sort = nil
	o.random = true
	return o
}

// Range limits results to count rows starting at offset start.
// A later call replaces an earlier one.
func (o *Operation) Range(start, count int64) *Operation {
	o.rng = &queryir.Range{Offset: start, Limit: count}
	return o
}

// Fields restricts the returned columns. No names means every column.
func (o *Operation) Fields(names ...string) *Operation {
	o.fields = append([]string(nil), names...)
	return o
}

// GroupBy groups results by field. Only SQL backends support it.
func (o *Operation) GroupBy(field string) *Operation {
	o.groupBy = field
	return o
}

// Join adds a joined table. Conditions registered on the returned Join form
// its ON clause.
func (o *Operation) Join(table string) *Join {
	j := &Join{table: table, parent: o}
	j.Conditions = Conditions{qualifier: table, fail: o.fail}
	o.joins = append(o.joins, j)
	return j
}

// Field returns a reference to a column of this operation's table, for
// comparing one column against another.
func (o *Operation) Field(name string) cond.FieldRef {
	return cond.FieldRef{Table: o.table, Name: name}
}

// Get returns every matching row. No match yields an empty slice.
func (o *Operation) Get(ctx context.Context) ([]ir.Row, error) {
	if err := o.check(ctx); err != nil {
		return nil, err
	}
	rows, err := o.backend.Get(ctx, o.selectQuery(o.rng))
	if err != nil {
		return nil, o.report(ctx, err)
	}
	o.logger.DebugContext(ctx, "get", "rows", len(rows))
	return rows, nil
}

// GetOne returns the first matching row, or nil with a nil error when
// nothing matches. The range offset is kept and the limit forced to 1.
func (o *Operation) GetOne(ctx context.Context) (ir.Row, error) {
	if err := o.check(ctx); err != nil {
		return nil, err
	}
	rng := queryir.Range{Limit: 1}
	if o.rng != nil {
		rng.Offset = o.rng.Offset
	}
	rows, err := o.backend.Get(ctx, o.selectQuery(&rng))
	if err != nil {
		return nil, o.report(ctx, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Count returns the number of matching rows.
func (o *Operation) Count(ctx context.Context) (int64, error) {
	if err := o.check(ctx); err != nil {
		return 0, err
	}
	n, err := o.backend.Count(ctx, &queryir.Count{Table: o.table, Where: o.All()})
	if err != nil {
		return 0, o.report(ctx, err)
	}
	return n, nil
}

// Insert adds one row and returns its insert id. data is an ir.Record or a
// map; when fields are given only those keys are written. Backends without
// insert ids return 0.
func (o *Operation) Insert(ctx context.Context, data any, fields ...string) (int64, error) {
	if err := o.check(ctx); err != nil {
		return 0, err
	}
	rec, err := payload("insert", data, fields)
	if err != nil {
		return 0, o.report(ctx, err)
	}
	res, err := o.backend.Insert(ctx, &queryir.Insert{Table: o.table, Data: rec})
	if err != nil {
		return 0, o.report(ctx, err)
	}
	o.last = res

	id, err := o.backend.LastInsertID(res)
	if err != nil {
		if dberr.Is(err, dberr.CodeNotImplemented) {
			return 0, nil
		}
		return 0, o.report(ctx, err)
	}
	o.logger.DebugContext(ctx, "insert", "id", id)
	return id, nil
}

// Update writes data to every matching row.
func (o *Operation) Update(ctx context.Context, data any, fields ...string) error {
	if err := o.check(ctx); err != nil {
		return err
	}
	rec, err := payload("update", data, fields)
	if err != nil {
		return o.report(ctx, err)
	}
	res, err := o.backend.Update(ctx, &queryir.Update{Table: o.table, Data: rec, Where: o.All()})
	if err != nil {
		return o.report(ctx, err)
	}
	o.last = res
	return nil
}

// Delete removes every matching row.
func (o *Operation) Delete(ctx context.Context) error {
	if err := o.check(ctx); err != nil {
		return err
	}
	res, err := o.backend.Delete(ctx, &queryir.Delete{Table: o.table, Where: o.All()})
	if err != nil {
		return o.report(ctx, err)
	}
	o.last = res
	return nil
}

// UpdateOrInsert updates the matching rows if there are any and inserts
// data otherwise.
//
// The count and the write are separate statements. This is only correct
// when the caller serializes writers to the table.
func (o *Operation) UpdateOrInsert(ctx context.Context, data any, updateFields, insertFields []string) error {
	n, err := o.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return o.Update(ctx, data, updateFields...)
	}
	_, err = o.Insert(ctx, data, insertFields...)
	return err
}

// Truncate removes every row of the table. Conditions are ignored.
func (o *Operation) Truncate(ctx context.Context) error {
	if err := o.check(ctx); err != nil {
		return err
	}
	res, err := o.backend.Truncate(ctx, &queryir.Truncate{Table: o.table})
	if err != nil {
		return o.report(ctx, err)
	}
	o.last = res
	return nil
}

// TableExists reports whether the operation's table exists.
func (o *Operation) TableExists(ctx context.Context) (bool, error) {
	ok, err := o.backend.TableExists(ctx, o.table)
	if err != nil {
		return false, o.report(ctx, err)
	}
	return ok, nil
}

// LastInsertID returns the insert id of the last write.
func (o *Operation) LastInsertID() (int64, error) {
	return o.backend.LastInsertID(o.last)
}

// AffectedRows returns the affected row count of the last write.
func (o *Operation) AffectedRows() (int64, error) {
	return o.backend.AffectedRows(o.last)
}

// Select returns the snapshot Get would run.
func (o *Operation) Select() *queryir.Select {
	return o.selectQuery(o.rng)
}

func (o *Operation) selectQuery(rng *queryir.Range) *queryir.Select {
	q := &queryir.Select{
		Table:   o.table,
		Fields:  o.fields,
		Where:   o.All(),
		GroupBy: o.groupBy,
		Random:  o.random,
		Range:   rng,
	}
	if len(o.sort) > 0 {
		q.Sort = append([]queryir.Sort(nil), o.sort...)
	}
	for _, j := range o.joins {
		q.Joins = append(q.Joins, queryir.Join{Table: j.table, On: j.All()})
	}
	return q
}

// check returns the stored construction error, or ctx's error.
func (o *Operation) check(ctx context.Context) error {
	if o.err != nil {
		return o.err
	}
	return ctx.Err()
}

// fail records the first construction error and reports it at once.
func (o *Operation) fail(err error) {
	if o.err == nil {
		o.err = err
	}
	o.report(context.Background(), err)
}

func (o *Operation) report(ctx context.Context, err error) error {
	var dbErr *dberr.Error
	if errors.As(err, &dbErr) {
		o.reporter.Report(ctx, dbErr)
	}
	return err
}

// payload normalizes write data and applies the optional field filter.
func payload(verb string, data any, fields []string) (ir.Record, error) {
	rec, ok := ir.AsRecord(data)
	if !ok {
		return nil, dberr.InvalidData("%s: data must be a field/value mapping, got %T", verb, data)
	}
	if len(fields) > 0 {
		rec = rec.Project(fields)
	}
	if len(rec) == 0 {
		return nil, dberr.InvalidData("%s: no fields to write", verb)
	}
	return rec, nil
}
