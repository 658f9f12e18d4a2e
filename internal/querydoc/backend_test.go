package querydoc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/querydoc"
	"github.com/roach88/sistrence/internal/queryir"
	"github.com/roach88/sistrence/internal/testutil"
)

func seededBackend() (*querydoc.Backend, *testutil.MemoryStore) {
	store := testutil.NewMemoryStore().Seed("users",
		ir.Row{"name": "Cid", "age": int64(40)},
		ir.Row{"name": "Ann", "age": int64(30)},
		ir.Row{"name": "Bob", "age": int64(30)},
	)
	return querydoc.NewBackend(store, testutil.DiscardLogger()), store
}

func eq(field string, v any) *cond.Condition {
	return cond.Must(cond.New("eq", nil, field, v))
}

func TestBackend_GetFiltersSortsAndPages(t *testing.T) {
	b, store := seededBackend()

	rows, err := b.Get(context.Background(), &queryir.Select{
		Table:  "users",
		Fields: []string{"name"},
		Where:  []*cond.Condition{eq("age", 30)},
		Sort:   []queryir.Sort{{Field: "name", Dir: queryir.Desc}},
		Range:  &queryir.Range{Offset: 1, Limit: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{"name": "Ann"}}, rows)
	assert.Equal(t, []string{
		`find users {age: 30} sort={name: -1} skip=1 limit=5 fields={name: 1}`,
	}, store.Calls())
}

func TestBackend_GetZeroOffsetSkipsNothing(t *testing.T) {
	b, store := seededBackend()

	rows, err := b.Get(context.Background(), &queryir.Select{
		Table: "users",
		Range: &queryir.Range{Offset: 0, Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cid", rows[0]["name"])
	assert.Equal(t, []string{`find users {} limit=1`}, store.Calls())
}

func TestBackend_GetNoMatchesIsEmpty(t *testing.T) {
	b, _ := seededBackend()

	rows, err := b.Get(context.Background(), &queryir.Select{
		Table: "users",
		Where: []*cond.Condition{eq("name", "Zed")},
	})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestBackend_UnsupportedSelectFeatures(t *testing.T) {
	b, store := seededBackend()
	ctx := context.Background()

	for name, q := range map[string]*queryir.Select{
		"random":   {Table: "users", Random: true},
		"group by": {Table: "users", GroupBy: "age"},
		"join":     {Table: "users", Joins: []queryir.Join{{Table: "posts"}}},
		"gt":       {Table: "users", Where: []*cond.Condition{cond.Must(cond.New("gt", nil, "age", 1))}},
	} {
		_, err := b.Get(ctx, q)
		assert.True(t, dberr.Is(err, dberr.CodeNotImplemented), name)
	}
	assert.Empty(t, store.Calls())
}

func TestBackend_Count(t *testing.T) {
	b, _ := seededBackend()

	n, err := b.Count(context.Background(), &queryir.Count{Table: "users", Where: []*cond.Condition{eq("age", 30)}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBackend_Writes(t *testing.T) {
	b, store := seededBackend()
	ctx := context.Background()

	res, err := b.Insert(ctx, &queryir.Insert{Table: "users", Data: ir.Record{ir.P("name", "Dee"), ir.P("age", 25)}})
	require.NoError(t, err)
	assert.Equal(t, queryir.Result{}, res)

	_, err = b.Update(ctx, &queryir.Update{
		Table: "users",
		Data:  ir.Record{ir.P("age", 31)},
		Where: []*cond.Condition{eq("name", "Ann")},
	})
	require.NoError(t, err)

	_, err = b.Delete(ctx, &queryir.Delete{Table: "users", Where: []*cond.Condition{eq("name", "Cid")}})
	require.NoError(t, err)

	assert.Equal(t, []ir.Row{
		{"name": "Ann", "age": int64(31)},
		{"name": "Bob", "age": int64(30)},
		{"name": "Dee", "age": int64(25)},
	}, store.Documents("users"))

	_, err = b.Truncate(ctx, &queryir.Truncate{Table: "users"})
	require.NoError(t, err)
	assert.Empty(t, store.Documents("users"))

	assert.Equal(t, []string{
		`insert users {name: "Dee", age: 25}`,
		`update users {name: "Ann"} $set={age: 31}`,
		`delete users {name: "Cid"}`,
		`delete users {}`,
	}, store.Calls())
}

func TestBackend_ResultAccessorsNotImplemented(t *testing.T) {
	b, _ := seededBackend()

	_, err := b.LastInsertID(queryir.Result{})
	assert.True(t, dberr.Is(err, dberr.CodeNotImplemented))

	_, err = b.AffectedRows(queryir.Result{})
	assert.True(t, dberr.Is(err, dberr.CodeNotImplemented))
}

func TestBackend_TableExists(t *testing.T) {
	b, _ := seededBackend()

	ok, err := b.TableExists(context.Background(), "users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TableExists(context.Background(), "posts")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_StoreFailure(t *testing.T) {
	b, store := seededBackend()
	store.FailOn("find", errors.New("connection reset"))

	_, err := b.Get(context.Background(), &queryir.Select{Table: "users"})

	var dbErr *dberr.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, dberr.CodeBackendQueryFailed, dbErr.Code)
	assert.Equal(t, "find users", dbErr.Query)
	assert.Equal(t, "connection reset", dbErr.BackendMessage)
}
