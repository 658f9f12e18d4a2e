package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/queryir"
	"github.com/roach88/sistrence/internal/querysql"
)

const sqliteDriverName = "sqlite3_sistrence"

var registerSQLite sync.Once

// Conn is one SQL link.
type Conn struct {
	db      *sql.DB
	dialect querysql.Dialect
}

var _ querysql.Executor = (*Conn)(nil)

// New wraps an open database. The pool is capped at one connection.
func New(db *sql.DB, d querysql.Dialect) *Conn {
	if d == nil {
		d = querysql.MySQL
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Conn{db: db, dialect: d}
}

// Open opens a link for the named driver ("sqlite", "mysql", "postgres" and
// their aliases).
func Open(ctx context.Context, driver, dsn string) (*Conn, error) {
	d, err := querysql.DialectByName(driver)
	if err != nil {
		return nil, err
	}
	switch d {
	case querysql.SQLite:
		return OpenSQLite(ctx, dsn)
	case querysql.Postgres:
		return OpenPostgres(ctx, dsn)
	default:
		return OpenMySQL(ctx, dsn)
	}
}

// OpenSQLite creates or opens a SQLite database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//   - a regexp() function backing the REGEXP operator
func OpenSQLite(ctx context.Context, path string) (*Conn, error) {
	registerSQLite.Do(func() {
		sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", regexpMatch, true)
			},
		})
	})

	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c, err := connect(ctx, db, querysql.SQLite)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	return c, nil
}

// OpenMySQL opens a MySQL link from a go-sql-driver DSN
// ("user:pass@tcp(host:3306)/db").
func OpenMySQL(ctx context.Context, dsn string) (*Conn, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return connect(ctx, sql.OpenDB(connector), querysql.MySQL)
}

// OpenPostgres opens a PostgreSQL link from a pgx connection string.
func OpenPostgres(ctx context.Context, dsn string) (*Conn, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return connect(ctx, stdlib.OpenDB(*cfg), querysql.Postgres)
}

func connect(ctx context.Context, db *sql.DB, d querysql.Dialect) (*Conn, error) {
	c := New(db, d)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", wrapDriverError(err))
	}
	return c, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

var (
	regexpMu    sync.Mutex
	regexpCache = map[string]*regexp.Regexp{}
)

// regexpMatch implements "s REGEXP pattern" for SQLite, which calls
// regexp(pattern, s).
func regexpMatch(pattern, s string) (bool, error) {
	regexpMu.Lock()
	re, ok := regexpCache[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			regexpMu.Unlock()
			return false, err
		}
		regexpCache[pattern] = re
	}
	regexpMu.Unlock()
	return re.MatchString(s), nil
}

// Close closes the database.
func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB returns the underlying database.
func (c *Conn) DB() *sql.DB {
	return c.db
}

// Dialect returns the link's SQL dialect.
func (c *Conn) Dialect() querysql.Dialect {
	return c.dialect
}

// Backend returns a querysql.Backend running on this link.
func (c *Conn) Backend(logger *slog.Logger) *querysql.Backend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return querysql.NewBackend(c, c.dialect, logger.With("backend", c.dialect.Name()))
}

// Query implements querysql.Executor.
func (c *Conn) Query(ctx context.Context, query string) ([]ir.Row, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapDriverError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapDriverError(err)
	}

	out := []ir.Row{}
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(err)
	}
	return out, nil
}

// Exec implements querysql.Executor. The insert id is only read on
// dialects that report one.
func (c *Conn) Exec(ctx context.Context, query string) (queryir.Result, error) {
	res, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return queryir.Result{}, wrapDriverError(err)
	}

	var out queryir.Result
	if c.dialect.InsertID() {
		if out.LastInsertID, err = res.LastInsertId(); err != nil {
			return queryir.Result{}, wrapDriverError(err)
		}
	}
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return queryir.Result{}, wrapDriverError(err)
	}
	return out, nil
}

// Scalar implements querysql.Executor. A NULL result is 0.
func (c *Conn) Scalar(ctx context.Context, query string) (int64, error) {
	var n sql.NullInt64
	if err := c.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, wrapDriverError(err)
	}
	return n.Int64, nil
}

// EscapeString implements querysql.Executor.
func (c *Conn) EscapeString(s string) string {
	return c.dialect.EscapeString(s)
}

// scanRow reads the current row. Byte slices are returned as strings.
func scanRow(rows *sql.Rows, cols []string) (ir.Row, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, wrapDriverError(err)
	}

	row := make(ir.Row, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}
