package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/connector/sqlconn"
	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/op"
	"github.com/roach88/sistrence/internal/querydoc"
	"github.com/roach88/sistrence/internal/queryir"
	"github.com/roach88/sistrence/internal/querysql"
	"github.com/roach88/sistrence/internal/testutil"
)

// Harness runs the steps of one scenario against one backend.
type Harness struct {
	backend    op.Backend
	statements func() []string
	closer     func() error
	ids        *testutil.FixedIDGenerator
	logger     *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh backend. A returned error means the scenario
// could not be executed at all; failed expectations and assertions are
// reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with step logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(ctx, scenario, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up backend: %w", err)
	}
	defer h.closer()

	result := NewResult()
	h.executeSteps(ctx, scenario.Steps, result)

	actx := &AssertionContext{
		Backend: h.backend,
		Ctx:     ctx,
		IDs:     h.ids,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(ctx context.Context, s *Scenario, logger *slog.Logger) (*Harness, error) {
	h := &Harness{
		ids:    testutil.NewFixedIDGenerator("op"),
		logger: logger,
		closer: func() error { return nil },
	}

	switch s.Backend {
	case BackendMySQL, BackendPostgres:
		d, err := querysql.DialectByName(s.Backend)
		if err != nil {
			return nil, err
		}
		exec := testutil.NewRecordingExecutor(d)
		for _, r := range s.Setup.Responses {
			script(exec, r)
		}
		h.backend = querysql.NewBackend(exec, d, logger)
		h.statements = exec.Statements

	case BackendSQLite:
		conn, err := sqlconn.OpenSQLite(ctx, ":memory:")
		if err != nil {
			return nil, err
		}
		for _, stmt := range s.Setup.SQL {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("setup %q: %w", stmt, err)
			}
		}
		tr := &tracingExecutor{Executor: conn}
		h.backend = querysql.NewBackend(tr, conn.Dialect(), logger)
		h.statements = tr.Statements
		h.closer = conn.Close

	case BackendDocument:
		store := testutil.NewMemoryStore()
		for coll, docs := range s.Setup.Documents {
			rows := make([]ir.Row, len(docs))
			for i, d := range docs {
				rows[i] = d.Row()
			}
			store.Seed(coll, rows...)
		}
		h.backend = querydoc.NewBackend(store, logger)
		h.statements = store.Calls

	default:
		return nil, fmt.Errorf("unknown backend %q", s.Backend)
	}

	return h, nil
}

func script(exec *testutil.RecordingExecutor, r Response) {
	switch {
	case r.Error != "":
		exec.FailOn(r.SQL, errors.New(r.Error))
	case r.Scalar != nil:
		exec.OnScalar(r.SQL, *r.Scalar)
	case r.Affected != nil:
		exec.OnExec(r.SQL, *r.Affected)
	default:
		rows := make([]ir.Row, len(r.Rows))
		for i, d := range r.Rows {
			rows[i] = d.Row()
		}
		exec.OnQuery(r.SQL, rows...)
	}
}

// outcome is what a terminal call produced.
type outcome struct {
	rows     []ir.Row
	row      ir.Row
	count    int64
	id       int64
	exists   bool
	affected *int64
}

func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		before := len(h.statements())
		out, err := h.executeStep(ctx, step)

		for _, stmt := range h.statements()[before:] {
			result.Trace = append(result.Trace, TraceEvent{Step: i + 1, Statement: stmt})
		}
		for _, msg := range checkExpect(step, out, err) {
			result.AddError(fmt.Sprintf("step %d (%s %s): %s", i+1, step.Do, step.Table, msg))
		}

		h.logger.Info("step completed",
			"step", i+1,
			"do", step.Do,
			"table", step.Table,
			"error", err,
		)
	}
}

func (h *Harness) executeStep(ctx context.Context, step Step) (outcome, error) {
	var out outcome

	o := op.New(h.backend, step.Table, op.WithLogger(h.logger), op.WithIDGenerator(h.ids))

	where := make([]*cond.Condition, len(step.Where))
	for i, spec := range step.Where {
		where[i] = buildCond(&o.Conditions, o, spec)
	}
	for _, i := range step.Drop {
		if where[i] != nil {
			o.Drop(where[i])
		}
	}
	for _, js := range step.Joins {
		j := o.Join(js.Table)
		for _, spec := range js.On {
			buildCond(&j.Conditions, o, spec)
		}
	}

	for _, s := range step.Sort {
		dir := queryir.Asc
		if s.Dir == "desc" {
			dir = queryir.Desc
		}
		o.Sort(s.Field, dir)
	}
	if step.Random {
		o.Randomize()
	}
	if len(step.Range) == 2 {
		o.Range(step.Range[0], step.Range[1])
	}
	if len(step.Fields) > 0 {
		o.Fields(step.Fields...)
	}
	if step.GroupBy != "" {
		o.GroupBy(step.GroupBy)
	}

	var err error
	switch step.Do {
	case DoGet:
		out.rows, err = o.Get(ctx)
	case DoGetOne:
		out.row, err = o.GetOne(ctx)
	case DoCount:
		out.count, err = o.Count(ctx)
	case DoInsert:
		out.id, err = o.Insert(ctx, step.Data.Record(), step.Only...)
	case DoUpdate:
		err = o.Update(ctx, step.Data.Record(), step.Only...)
	case DoDelete:
		err = o.Delete(ctx)
	case DoUpdateOrInsert:
		err = o.UpdateOrInsert(ctx, step.Data.Record(), step.Only, step.InsertOnly)
	case DoTruncate:
		err = o.Truncate(ctx)
	case DoTableExists:
		out.exists, err = o.TableExists(ctx)
	default:
		return out, fmt.Errorf("unknown call %q", step.Do)
	}
	if err != nil {
		return out, err
	}

	switch step.Do {
	case DoInsert, DoUpdate, DoDelete, DoUpdateOrInsert, DoTruncate:
		if n, err := o.AffectedRows(); err == nil {
			out.affected = &n
		}
	}
	return out, nil
}

// buildCond registers the condition described by spec on c. Field
// references resolve against the operation's table. A construction failure
// is recorded on the operation and nil is returned.
func buildCond(c *op.Conditions, o *op.Operation, spec CondSpec) *cond.Condition {
	if len(spec.Of) > 0 {
		children := make([]any, 0, len(spec.Of))
		for _, child := range spec.Of {
			cd := buildCond(c, o, child)
			if cd == nil {
				return nil
			}
			children = append(children, cd)
		}
		return c.Cond(spec.Kind, children...)
	}

	if spec.Match != nil {
		return c.Cond(spec.Kind, spec.Match.Record())
	}

	params := []any{spec.Field}
	kind, err := cond.ResolveKind(spec.Kind)
	switch {
	case spec.Ref != "":
		params = append(params, o.Field(spec.Ref))
	case err == nil && kind.IsNullCheck():
	default:
		params = append(params, spec.Value)
	}
	if spec.Escape != "" {
		params = append(params, spec.Escape)
	}
	return c.Cond(spec.Kind, params...)
}

func checkExpect(step Step, out outcome, err error) []string {
	exp := step.Expect
	if err != nil {
		if exp != nil && exp.Error != "" {
			if got := dberr.CodeOf(err); string(got) != exp.Error {
				return []string{fmt.Sprintf("expected error %s, got %v", exp.Error, err)}
			}
			return nil
		}
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}
	if exp == nil {
		return nil
	}

	var msgs []string
	if exp.Error != "" {
		msgs = append(msgs, fmt.Sprintf("expected error %s, got none", exp.Error))
	}
	if exp.Rows != nil {
		if msg, ok := compareRows(exp.Rows, out.rows); !ok {
			msgs = append(msgs, "rows: "+msg)
		}
	}
	if exp.NoRow && out.row != nil {
		msgs = append(msgs, fmt.Sprintf("expected no row, got %v", out.row))
	}
	if exp.Row != nil {
		if out.row == nil {
			msgs = append(msgs, "expected a row, got none")
		} else if msg, ok := compareRows([]Document{exp.Row}, []ir.Row{out.row}); !ok {
			msgs = append(msgs, "row: "+msg)
		}
	}
	if exp.Count != nil && *exp.Count != out.count {
		msgs = append(msgs, fmt.Sprintf("count: expected %d, got %d", *exp.Count, out.count))
	}
	if exp.ID != nil && *exp.ID != out.id {
		msgs = append(msgs, fmt.Sprintf("id: expected %d, got %d", *exp.ID, out.id))
	}
	if exp.Exists != nil && *exp.Exists != out.exists {
		msgs = append(msgs, fmt.Sprintf("exists: expected %t, got %t", *exp.Exists, out.exists))
	}
	if exp.Affected != nil {
		switch {
		case out.affected == nil:
			msgs = append(msgs, "affected: backend reports no affected rows")
		case *exp.Affected != *out.affected:
			msgs = append(msgs, fmt.Sprintf("affected: expected %d, got %d", *exp.Affected, *out.affected))
		}
	}
	return msgs
}

// compareRows compares rows by their canonical JSON, so an int read from
// YAML equals the int64 a driver returns.
func compareRows(want []Document, got []ir.Row) (string, bool) {
	rows := make([]ir.Row, len(want))
	for i, d := range want {
		rows[i] = d.Row()
	}
	w, err := ir.MarshalCanonical(rows)
	if err != nil {
		return fmt.Sprintf("expected rows: %v", err), false
	}
	if got == nil {
		got = []ir.Row{}
	}
	g, err := ir.MarshalCanonical(got)
	if err != nil {
		return fmt.Sprintf("actual rows: %v", err), false
	}
	if string(w) != string(g) {
		return fmt.Sprintf("expected %s, got %s", w, g), false
	}
	return "", true
}

// tracingExecutor records every statement passed to a live connection.
type tracingExecutor struct {
	querysql.Executor

	mu         sync.Mutex
	statements []string
}

func (t *tracingExecutor) record(sql string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statements = append(t.statements, sql)
}

func (t *tracingExecutor) Query(ctx context.Context, sql string) ([]ir.Row, error) {
	t.record(sql)
	return t.Executor.Query(ctx, sql)
}

func (t *tracingExecutor) Exec(ctx context.Context, sql string) (queryir.Result, error) {
	t.record(sql)
	return t.Executor.Exec(ctx, sql)
}

func (t *tracingExecutor) Scalar(ctx context.Context, sql string) (int64, error) {
	t.record(sql)
	return t.Executor.Scalar(ctx, sql)
}

// Statements returns a copy of the recorded statements.
func (t *tracingExecutor) Statements() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.statements...)
}
