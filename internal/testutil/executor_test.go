package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/querysql"
)

func TestRecordingExecutor_Defaults(t *testing.T) {
	ctx := context.Background()
	e := NewRecordingExecutor(nil)

	rows, err := e.Query(ctx, "SELECT * FROM `t` ")
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := e.Scalar(ctx, "SELECT COUNT(*) FROM `t`")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	res, err := e.Exec(ctx, "UPDATE `t` SET `a`=1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Equal(t, int64(0), res.LastInsertID)

	assert.Equal(t, []string{
		"SELECT * FROM `t` ",
		"SELECT COUNT(*) FROM `t`",
		"UPDATE `t` SET `a`=1",
	}, e.Statements())
}

func TestRecordingExecutor_Scripts(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	e := NewRecordingExecutor(querysql.Postgres).
		OnQuery(`SELECT * FROM "t" `, ir.Row{"id": 1}, ir.Row{"id": 2}).
		OnScalar(`SELECT COUNT(*) FROM "t"`, 9).
		OnExec(`DELETE FROM "t" `, 4).
		FailOn(`TRUNCATE "t"`, boom)

	rows, err := e.Query(ctx, `SELECT * FROM "t" `)
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{"id": 1}, {"id": 2}}, rows)

	n, err := e.Scalar(ctx, `SELECT COUNT(*) FROM "t"`)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	res, err := e.Exec(ctx, `DELETE FROM "t" `)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.RowsAffected)

	_, err = e.Exec(ctx, `TRUNCATE "t"`)
	assert.ErrorIs(t, err, boom)

	// Failed statements are still recorded.
	assert.Len(t, e.Statements(), 4)
}

func TestRecordingExecutor_InsertIDs(t *testing.T) {
	ctx := context.Background()
	e := NewRecordingExecutor(nil)

	for want := int64(1); want <= 3; want++ {
		res, err := e.Exec(ctx, "INSERT INTO `t` SET `a`=1")
		require.NoError(t, err)
		assert.Equal(t, want, res.LastInsertID)
	}
	assert.Equal(t, 3, e.Count("INSERT"))
	assert.Equal(t, 0, e.Count("DELETE"))

	e.Reset()
	assert.Empty(t, e.Statements())
	res, err := e.Exec(ctx, "INSERT INTO `t` SET `a`=1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LastInsertID)
}

func TestRecordingExecutor_EscapeString(t *testing.T) {
	assert.Equal(t, querysql.MySQL.EscapeString("it's"), NewRecordingExecutor(nil).EscapeString("it's"))
	assert.Equal(t, querysql.SQLite.EscapeString("it's"), NewRecordingExecutor(querysql.SQLite).EscapeString("it's"))
}
