package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/sistrence/internal/queryir"
)

// Dialect captures the syntax differences between SQL engines.
type Dialect interface {
	// Name identifies the dialect ("mysql", "sqlite", "postgres").
	Name() string

	// QuoteIdent quotes one identifier.
	QuoteIdent(name string) string

	// EscapeString escapes s for use inside a single-quoted literal.
	EscapeString(s string) string

	// Bool renders a boolean literal.
	Bool(b bool) string

	// Negate prefixes a parenthesized fragment with negation.
	Negate(fragment string) string

	// LikeEscape is appended after patterns built by contains/starts/ends.
	LikeEscape() string

	// RegexpOperator is the infix operator for field_regexp.
	RegexpOperator() string

	// RandomOrder is the ORDER BY expression for randomized results.
	RandomOrder() string

	// Limit renders the LIMIT clause, including its leading space.
	Limit(r queryir.Range) string

	// Insert renders a full INSERT statement. cols are quoted, vals prepared.
	Insert(table string, cols, vals []string) string

	// Truncate renders a statement removing every row of table.
	Truncate(table string) string

	// TableExists renders a query that returns at least one row iff table exists.
	TableExists(table string) string

	// InsertID reports whether the engine reports insert ids through Exec.
	InsertID() bool
}

var (
	MySQL    Dialect = mysqlDialect{}
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("unknown SQL dialect %q", name)
	}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// EscapeString mirrors mysql_real_escape_string for utf8 connections.
func (mysqlDialect) EscapeString(s string) string {
	return mysqlEscaper.Replace(s)
}

var mysqlEscaper = strings.NewReplacer(
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\x1a", `\Z`,
)

func (mysqlDialect) Bool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (mysqlDialect) Negate(fragment string) string { return "!" + fragment }
func (mysqlDialect) LikeEscape() string            { return "" }
func (mysqlDialect) RegexpOperator() string        { return "REGEXP" }
func (mysqlDialect) RandomOrder() string           { return "RAND()" }

func (mysqlDialect) Limit(r queryir.Range) string {
	return fmt.Sprintf(" LIMIT %d, %d", r.Offset, r.Limit)
}

func (d mysqlDialect) Insert(table string, cols, vals []string) string {
	sets := make([]string, len(cols))
	for i := range cols {
		sets[i] = cols[i] + "=" + vals[i]
	}
	return "INSERT INTO " + d.QuoteIdent(table) + " SET " + strings.Join(sets, ", ")
}

func (d mysqlDialect) Truncate(table string) string {
	return "TRUNCATE " + d.QuoteIdent(table)
}

func (d mysqlDialect) TableExists(table string) string {
	return "SHOW TABLES LIKE '" + d.EscapeString(escapeLike(table)) + "'"
}

func (mysqlDialect) InsertID() bool { return true }

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) EscapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (sqliteDialect) Bool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (sqliteDialect) Negate(fragment string) string { return "NOT " + fragment }
func (sqliteDialect) LikeEscape() string            { return ` ESCAPE '\'` }
func (sqliteDialect) RegexpOperator() string        { return "REGEXP" }
func (sqliteDialect) RandomOrder() string           { return "RANDOM()" }

func (sqliteDialect) Limit(r queryir.Range) string {
	return fmt.Sprintf(" LIMIT %d, %d", r.Offset, r.Limit)
}

func (d sqliteDialect) Insert(table string, cols, vals []string) string {
	return "INSERT INTO " + d.QuoteIdent(table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
}

func (d sqliteDialect) Truncate(table string) string {
	return "DELETE FROM " + d.QuoteIdent(table)
}

func (d sqliteDialect) TableExists(table string) string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name = '" + d.EscapeString(table) + "'"
}

func (sqliteDialect) InsertID() bool { return true }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EscapeString assumes standard_conforming_strings = on (the default since 9.1).
func (postgresDialect) EscapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (postgresDialect) Bool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (postgresDialect) Negate(fragment string) string { return "NOT " + fragment }
func (postgresDialect) LikeEscape() string            { return "" }
func (postgresDialect) RegexpOperator() string        { return "~" }
func (postgresDialect) RandomOrder() string           { return "RANDOM()" }

func (postgresDialect) Limit(r queryir.Range) string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", r.Limit, r.Offset)
}

func (d postgresDialect) Insert(table string, cols, vals []string) string {
	return "INSERT INTO " + d.QuoteIdent(table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
}

func (d postgresDialect) Truncate(table string) string {
	return "TRUNCATE " + d.QuoteIdent(table)
}

func (d postgresDialect) TableExists(table string) string {
	return "SELECT tablename FROM pg_catalog.pg_tables WHERE tablename = '" + d.EscapeString(table) + "'"
}

func (postgresDialect) InsertID() bool { return false }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so s matches literally.
// The result still needs string escaping.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
