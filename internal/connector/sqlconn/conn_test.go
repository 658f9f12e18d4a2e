package sqlconn

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/op"
	"github.com/roach88/sistrence/internal/queryir"
	"github.com/roach88/sistrence/internal/querysql"
)

func openTestConn(t *testing.T) *Conn {
	t.Helper()
	c, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.DB().Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		age INTEGER,
		score REAL,
		active INTEGER
	)`)
	require.NoError(t, err)
	return c
}

func usersOp(c *Conn) *op.Operation {
	return op.New(c.Backend(nil), "users")
}

func verifyPragma(t *testing.T, c *Conn, name, expected string) {
	t.Helper()
	var value string
	require.NoError(t, c.DB().QueryRow("PRAGMA "+name).Scan(&value))
	assert.Equal(t, expected, value, name)
}

func TestOpenSQLite_Pragmas(t *testing.T) {
	c := openTestConn(t)

	verifyPragma(t, c, "journal_mode", "wal")
	verifyPragma(t, c, "synchronous", "1")
	verifyPragma(t, c, "busy_timeout", "5000")
	verifyPragma(t, c, "foreign_keys", "1")
	assert.Equal(t, 1, c.DB().Stats().MaxOpenConnections)
	assert.Equal(t, querysql.SQLite, c.Dialect())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}

func TestConn_InsertAndGet(t *testing.T) {
	c := openTestConn(t)
	ctx := context.Background()

	id, err := usersOp(c).Insert(ctx, ir.Record{ir.P("name", "Bob"), ir.P("age", 30)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id, err = usersOp(c).Insert(ctx, ir.Record{ir.P("name", "Ann"), ir.P("age", 25)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	o := usersOp(c)
	o.Fields("name", "age").Sort("age", queryir.Asc)
	rows, err := o.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{
		{"name": "Ann", "age": int64(25)},
		{"name": "Bob", "age": int64(30)},
	}, rows)
}

func TestConn_ValuesRoundTrip(t *testing.T) {
	c := openTestConn(t)
	ctx := context.Background()

	data := ir.Record{
		ir.P("name", `O'Brien "quoted" \ back`),
		ir.P("age", -42),
		ir.P("score", 0.1),
		ir.P("active", true),
	}
	_, err := usersOp(c).Insert(ctx, data)
	require.NoError(t, err)
	_, err = usersOp(c).Insert(ctx, ir.Record{ir.P("name", nil), ir.P("age", 1)})
	require.NoError(t, err)

	o := usersOp(c)
	o.Eq("name", `O'Brien "quoted" \ back`)
	row, err := o.GetOne(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, `O'Brien "quoted" \ back`, row["name"])
	assert.Equal(t, int64(-42), row["age"])
	assert.Equal(t, 0.1, row["score"])
	assert.Equal(t, int64(1), row["active"])

	o = usersOp(c)
	o.IsNull("name")
	row, err = o.GetOne(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Nil(t, row["name"])
}

func TestConn_ConditionKinds(t *testing.T) {
	c := openTestConn(t)
	ctx := context.Background()
	for _, name := range []string{"alpha", "al_pha", "beta", "gamma%"} {
		_, err := usersOp(c).Insert(ctx, ir.Record{ir.P("name", name), ir.P("age", len(name))})
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		build func(o *op.Operation)
		want  int64
	}{
		{"contains escapes underscore", func(o *op.Operation) { o.Contains("name", "_") }, 1},
		{"ends escapes percent", func(o *op.Operation) { o.Ends("name", "%") }, 1},
		{"starts", func(o *op.Operation) { o.Starts("name", "al") }, 2},
		{"raw like", func(o *op.Operation) { o.Like("name", "%a") }, 3},
		{"raw like with escape", func(o *op.Operation) { o.Like("name", "%!%", "!") }, 1},
		{"regexp", func(o *op.Operation) { o.Regexp("name", "^(beta|gamma)") }, 2},
		{"not", func(o *op.Operation) { o.Not(o.Eq("name", "beta")) }, 3},
		{"or", func(o *op.Operation) { o.Or(o.Eq("name", "beta"), o.Gte("age", 6)) }, 3},
		{"column comparison", func(o *op.Operation) { o.Lt("id", o.Field("age")) }, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := usersOp(c)
			tt.build(o)
			n, err := o.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestConn_UpdateDeleteTruncate(t *testing.T) {
	c := openTestConn(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := usersOp(c).Insert(ctx, map[string]any{"name": name, "age": 1})
		require.NoError(t, err)
	}

	o := usersOp(c)
	o.Ne("name", "a")
	require.NoError(t, o.Update(ctx, map[string]any{"age": 2}))
	n, err := o.AffectedRows()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	o = usersOp(c)
	o.Eq("name", "b")
	require.NoError(t, o.Delete(ctx))

	n, err = usersOp(c).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, usersOp(c).Truncate(ctx))
	n, err = usersOp(c).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestConn_UpdateOrInsert(t *testing.T) {
	c := openTestConn(t)
	ctx := context.Background()
	upsert := func(age int) {
		o := usersOp(c)
		o.Eq("name", "Bob")
		require.NoError(t, o.UpdateOrInsert(ctx, ir.Record{ir.P("name", "Bob"), ir.P("age", age)}, []string{"age"}, nil))
	}

	upsert(30)
	upsert(31)

	rows, err := usersOp(c).Get(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(31), rows[0]["age"])
}

func TestConn_TableExists(t *testing.T) {
	c := openTestConn(t)

	ok, err := usersOp(c).TableExists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = op.New(c.Backend(nil), "missing").TableExists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConn_BackendErrorCarriesDriverCode(t *testing.T) {
	c := openTestConn(t)

	_, err := op.New(c.Backend(nil), "missing").Get(context.Background())
	require.Error(t, err)

	var dbErr *dberr.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, dberr.CodeBackendQueryFailed, dbErr.Code)
	assert.Equal(t, "1", dbErr.BackendCode)
	assert.Contains(t, dbErr.BackendMessage, "no such table")
	assert.Equal(t, `SELECT * FROM "missing" `, dbErr.Query)
}

func TestWrapDriverError(t *testing.T) {
	err := wrapDriverError(&mysql.MySQLError{Number: 1146, Message: "Table 'app.x' doesn't exist"})
	var de *DriverError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "1146", de.BackendCode())
	assert.Equal(t, "Table 'app.x' doesn't exist", de.BackendMessage())

	err = wrapDriverError(&pgconn.PgError{Code: "42P01", Message: `relation "x" does not exist`})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "42P01", de.Code)

	plain := errors.New("boom")
	assert.Same(t, plain, wrapDriverError(plain))
	assert.NoError(t, wrapDriverError(nil))
}

func TestRegexpMatch(t *testing.T) {
	ok, err := regexpMatch("^a+$", "aaa")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = regexpMatch("(", "x")
	assert.Error(t, err)
}
