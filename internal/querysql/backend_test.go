package querysql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/queryir"
	"github.com/roach88/sistrence/internal/querysql"
	"github.com/roach88/sistrence/internal/testutil"
)

func newBackend(d querysql.Dialect) (*querysql.Backend, *testutil.RecordingExecutor) {
	exec := testutil.NewRecordingExecutor(d)
	return querysql.NewBackend(exec, d, testutil.DiscardLogger()), exec
}

func TestBackend_GetReturnsRows(t *testing.T) {
	b, exec := newBackend(querysql.MySQL)
	exec.OnQuery("SELECT * FROM `users` ", ir.Row{"id": int64(1)}, ir.Row{"id": int64(2)})

	rows, err := b.Get(context.Background(), &queryir.Select{Table: "users"})
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{"id": int64(1)}, {"id": int64(2)}}, rows)
}

func TestBackend_GetNoRowsIsEmptyNotNil(t *testing.T) {
	b, _ := newBackend(querysql.MySQL)

	rows, err := b.Get(context.Background(), &queryir.Select{Table: "users"})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestBackend_Count(t *testing.T) {
	b, exec := newBackend(querysql.MySQL)
	exec.OnScalar("SELECT COUNT(*) FROM `users` WHERE (`age` > 18)", 3)

	n, err := b.Count(context.Background(), &queryir.Count{
		Table: "users",
		Where: []*cond.Condition{cond.Must(cond.New("gt", nil, "age", 18))},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBackend_InsertReportsID(t *testing.T) {
	b, exec := newBackend(querysql.MySQL)

	res, err := b.Insert(context.Background(), &queryir.Insert{
		Table: "users",
		Data:  ir.Record{ir.P("name", "Bob"), ir.P("age", 30)},
	})
	require.NoError(t, err)

	id, err := b.LastInsertID(res)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	affected, err := b.AffectedRows(res)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, []string{"INSERT INTO `users` SET `name`='Bob', `age`=30"}, exec.Statements())
}

func TestBackend_PostgresHasNoInsertID(t *testing.T) {
	b, _ := newBackend(querysql.Postgres)

	_, err := b.LastInsertID(queryir.Result{LastInsertID: 9})
	assert.True(t, dberr.Is(err, dberr.CodeNotImplemented))
}

func TestBackend_UpdateDeleteTruncate(t *testing.T) {
	b, exec := newBackend(querysql.MySQL)
	ctx := context.Background()
	where := []*cond.Condition{cond.Must(cond.New("eq", nil, "id", 1))}
	exec.OnExec("DELETE FROM `users`  WHERE (`id` = 1)", 0)

	_, err := b.Update(ctx, &queryir.Update{Table: "users", Data: ir.Record{ir.P("name", "X")}, Where: where})
	require.NoError(t, err)

	res, err := b.Delete(ctx, &queryir.Delete{Table: "users", Where: where})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RowsAffected)

	_, err = b.Truncate(ctx, &queryir.Truncate{Table: "users"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"UPDATE `users` SET `name`='X' WHERE (`id` = 1)",
		"DELETE FROM `users`  WHERE (`id` = 1)",
		"TRUNCATE `users`",
	}, exec.Statements())
}

func TestBackend_WrapsExecutorFailures(t *testing.T) {
	b, exec := newBackend(querysql.MySQL)
	exec.FailOn("SELECT * FROM `users` ", errors.New("Table 'app.users' doesn't exist"))

	_, err := b.Get(context.Background(), &queryir.Select{Table: "users"})
	require.Error(t, err)

	var dbErr *dberr.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, dberr.CodeBackendQueryFailed, dbErr.Code)
	assert.Equal(t, "SELECT * FROM `users` ", dbErr.Query)
	assert.Equal(t, "Table 'app.users' doesn't exist", dbErr.BackendMessage)
}

func TestBackend_CompileErrorsIssueNoQuery(t *testing.T) {
	b, exec := newBackend(querysql.MySQL)

	_, err := b.Get(context.Background(), &queryir.Select{
		Table: "users",
		Where: []*cond.Condition{cond.Must(cond.New("eq", nil, "x", map[int]int{}))},
	})
	assert.True(t, dberr.Is(err, dberr.CodeInvalidType))
	assert.Empty(t, exec.Statements())
}

func TestBackend_TableExists(t *testing.T) {
	b, exec := newBackend(querysql.SQLite)
	exec.OnQuery("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'", ir.Row{"name": "users"})

	ok, err := b.TableExists(context.Background(), "users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TableExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_Raw(t *testing.T) {
	b, exec := newBackend(querysql.MySQL)
	exec.OnQuery("SELECT 1 AS one", ir.Row{"one": int64(1)})

	rows, err := b.Raw(context.Background(), "SELECT 1 AS one")
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{"one": int64(1)}}, rows)
	assert.Equal(t, "mysql", b.Name())
}
