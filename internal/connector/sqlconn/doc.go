// Package sqlconn opens SQL links and adapts them to querysql.Executor.
//
// A Conn wraps one *sql.DB capped at a single open connection, so every
// statement of a link runs on the same session (insert ids and affected
// row counts stay meaningful).
//
// # Drivers
//
//   - SQLite: github.com/mattn/go-sqlite3, registered as "sqlite3_sistrence"
//     with a REGEXP function and WAL, synchronous=NORMAL, busy_timeout=5000
//     and foreign_keys=ON
//   - MySQL: github.com/go-sql-driver/mysql
//   - PostgreSQL: github.com/jackc/pgx/v5/stdlib
//
// Driver errors are wrapped so that dberr.BackendFailed can copy the
// backend's own code and message.
package sqlconn
