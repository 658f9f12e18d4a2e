package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/queryir"
	"github.com/roach88/sistrence/internal/querysql"
)

// RecordingExecutor is a querysql.Executor that records every statement and
// answers from scripted responses.
//
// Statements are matched exactly. Unscripted queries return no rows,
// unscripted scalars return 0, and unscripted writes succeed with one
// affected row. INSERT statements receive ids from an internal Sequence.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingExecutor struct {
	mu         sync.Mutex
	dialect    querysql.Dialect
	statements []string
	rows       map[string][]ir.Row
	scalars    map[string]int64
	affected   map[string]int64
	failures   map[string]error
	ids        *Sequence
}

var _ querysql.Executor = (*RecordingExecutor)(nil)

// NewRecordingExecutor creates an executor escaping strings like d.
// A nil dialect uses MySQL.
func NewRecordingExecutor(d querysql.Dialect) *RecordingExecutor {
	if d == nil {
		d = querysql.MySQL
	}
	return &RecordingExecutor{
		dialect:  d,
		rows:     make(map[string][]ir.Row),
		scalars:  make(map[string]int64),
		affected: make(map[string]int64),
		failures: make(map[string]error),
		ids:      NewSequence(),
	}
}

// OnQuery scripts the rows returned for sql.
func (e *RecordingExecutor) OnQuery(sql string, rows ...ir.Row) *RecordingExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows[sql] = rows
	return e
}

// OnScalar scripts the value returned for sql.
func (e *RecordingExecutor) OnScalar(sql string, n int64) *RecordingExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scalars[sql] = n
	return e
}

// OnExec scripts the affected row count returned for sql.
func (e *RecordingExecutor) OnExec(sql string, affected int64) *RecordingExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.affected[sql] = affected
	return e
}

// FailOn makes sql fail with err.
func (e *RecordingExecutor) FailOn(sql string, err error) *RecordingExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[sql] = err
	return e
}

// Statements returns a copy of every statement received, in order.
func (e *RecordingExecutor) Statements() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.statements...)
}

// Count returns how many recorded statements start with prefix.
func (e *RecordingExecutor) Count(prefix string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, s := range e.statements {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

// Reset clears recorded statements and the id sequence. Scripts are kept.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statements = nil
	e.ids.Reset()
}

func (e *RecordingExecutor) record(sql string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statements = append(e.statements, sql)
	return e.failures[sql]
}

// Query implements querysql.Executor.
func (e *RecordingExecutor) Query(_ context.Context, sql string) ([]ir.Row, error) {
	if err := e.record(sql); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rows[sql], nil
}

// Exec implements querysql.Executor.
func (e *RecordingExecutor) Exec(_ context.Context, sql string) (queryir.Result, error) {
	if err := e.record(sql); err != nil {
		return queryir.Result{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	res := queryir.Result{RowsAffected: 1}
	if n, ok := e.affected[sql]; ok {
		res.RowsAffected = n
	}
	if strings.HasPrefix(sql, "INSERT") {
		res.LastInsertID = e.ids.Next()
	}
	return res, nil
}

// Scalar implements querysql.Executor.
func (e *RecordingExecutor) Scalar(_ context.Context, sql string) (int64, error) {
	if err := e.record(sql); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scalars[sql], nil
}

// EscapeString implements querysql.Executor.
func (e *RecordingExecutor) EscapeString(s string) string {
	return e.dialect.EscapeString(s)
}
