package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sistrence/internal/connector/sqlconn"
	"github.com/roach88/sistrence/internal/queryir"
)

// writeSQLiteConfig creates a seeded SQLite database and a config file
// with a single link pointing at it.
func writeSQLiteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")

	ctx := context.Background()
	conn, err := sqlconn.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, age INTEGER, role TEXT)",
		"INSERT INTO users (name, age, role) VALUES ('Ann', 30, 'admin')",
		"INSERT INTO users (name, age, role) VALUES ('Bob', 17, 'user')",
		"INSERT INTO users (name, age, role) VALUES ('Cid', 45, 'user')",
		"INSERT INTO users (name, age, role) VALUES ('Dee', NULL, 'user')",
	} {
		_, err := conn.Exec(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, conn.Close())

	cfgPath := filepath.Join(dir, "sistrence.yaml")
	cfg := fmt.Sprintf("links:\n  - id: 0\n    driver: sqlite\n    dsn: %s\n", dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return cfgPath
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sistrence.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		expr string
		want whereClause
	}{
		{"age>=18", whereClause{Kind: "gtoe", Field: "age", Value: 18}},
		{"age > 18", whereClause{Kind: "gt", Field: "age", Value: 18}},
		{"age<=65", whereClause{Kind: "ltoe", Field: "age", Value: 65}},
		{"age<65", whereClause{Kind: "lt", Field: "age", Value: 65}},
		{"name=Ann", whereClause{Kind: "eq", Field: "name", Value: "Ann"}},
		{"name!=Ann", whereClause{Kind: "ne", Field: "name", Value: "Ann"}},
		{"active=true", whereClause{Kind: "eq", Field: "active", Value: true}},
		{"score=1.5", whereClause{Kind: "eq", Field: "score", Value: 1.5}},
		{"code='007'", whereClause{Kind: "eq", Field: "code", Value: "007"}},
		{"name=", whereClause{Kind: "eq", Field: "name", Value: ""}},
		{"name^=A", whereClause{Kind: "starts", Field: "name", Value: "A"}},
		{"name$=n", whereClause{Kind: "ends", Field: "name", Value: "n"}},
		{"name*=12", whereClause{Kind: "contains", Field: "name", Value: "12"}},
		{"name~=^A.*n$", whereClause{Kind: "regexp", Field: "name", Value: "^A.*n$"}},
		{"url=a=b", whereClause{Kind: "eq", Field: "url", Value: "a=b"}},
		{"age=null", whereClause{Kind: "isnull", Field: "age"}},
		{"age!=null", whereClause{Kind: "notnull", Field: "age"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := parseWhere(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWhere_Errors(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"age", "no operator"},
		{"=1", "field is required"},
		{"age>null", "null only compares with = or !="},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := parseWhere(tt.expr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseSort(t *testing.T) {
	field, dir, err := parseSort("name")
	require.NoError(t, err)
	assert.Equal(t, "name", field)
	assert.Equal(t, queryir.Asc, dir)

	field, dir, err = parseSort("age:DESC")
	require.NoError(t, err)
	assert.Equal(t, "age", field)
	assert.Equal(t, queryir.Desc, dir)

	_, _, err = parseSort("age:up")
	assert.Error(t, err)

	_, _, err = parseSort(":desc")
	assert.Error(t, err)
}

func TestGetCommand_Filters(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "--config", cfg, "get", "users", "--where", "age>=18", "--sort", "name")
	require.NoError(t, err)
	assert.Equal(t,
		`{"age":30,"id":1,"name":"Ann","role":"admin"}`+"\n"+
			`{"age":45,"id":3,"name":"Cid","role":"user"}`+"\n",
		out)
}

func TestGetCommand_NullCheck(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "--config", cfg, "get", "users", "-w", "age=null")
	require.NoError(t, err)
	assert.Equal(t, `{"age":null,"id":4,"name":"Dee","role":"user"}`+"\n", out)
}

func TestGetCommand_FieldsSortLimit(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "--config", cfg, "get", "users",
		"--fields", "name", "--sort", "name:desc", "--limit", "2", "--offset", "1")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Cid"}`+"\n"+`{"name":"Bob"}`+"\n", out)
}

func TestGetCommand_One(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "--config", cfg, "get", "users", "--where", "role=user", "--sort", "age:desc", "--one")
	require.NoError(t, err)
	assert.Equal(t, `{"age":45,"id":3,"name":"Cid","role":"user"}`+"\n", out)

	out, err = execute(t, "--config", cfg, "get", "users", "--where", "name=Zed", "--one")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGetCommand_JSON(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "--config", cfg, "--format", "json", "get", "users", "--where", "name^=B")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		OpID   string `json:"op_id"`
		Data   struct {
			Rows  []map[string]any `json:"rows"`
			Count int              `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.OpID)
	assert.Equal(t, 1, resp.Data.Count)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, "Bob", resp.Data.Rows[0]["name"])
}

func TestGetCommand_QueryFailure(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "--config", cfg, "--format", "json", "get", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BACKEND_QUERY_FAILED", resp.Error.Code)
}

func TestGetCommand_CommandErrors(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing config", []string{"--config", "/nonexistent/sistrence.yaml", "get", "users"}, "config file not found"},
		{"bad filter", []string{"--config", cfg, "get", "users", "--where", "age"}, "invalid filter"},
		{"bad sort", []string{"--config", cfg, "get", "users", "--sort", "age:up"}, "invalid sort"},
		{"offset without limit", []string{"--config", cfg, "get", "users", "--offset", "2"}, "--offset requires --limit"},
		{"random and sort", []string{"--config", cfg, "get", "users", "--random", "--sort", "age"}, "mutually exclusive"},
		{"unknown link", []string{"--config", cfg, "get", "users", "--link", "5"}, "invalid link"},
		{"missing table", []string{"--config", cfg, "get"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			if tt.name != "missing table" {
				assert.Equal(t, ExitCommandError, GetExitCode(err))
			}
		})
	}
}

func TestCountCommand(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "--config", cfg, "count", "users", "--where", "role=user")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = execute(t, "--config", cfg, "count", "users", "--where", "role=user", "--where", "age!=null")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestCountCommand_JSON(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "--config", cfg, "--format", "json", "count", "users")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Table string `json:"table"`
			Count int64  `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "users", resp.Data.Table)
	assert.Equal(t, int64(4), resp.Data.Count)
}
