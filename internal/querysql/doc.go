// Package querysql compiles queryir snapshots and cond trees to SQL text and
// runs them through an Executor.
//
// Values are inlined as escaped literals rather than bound as parameters:
// the SQL text is the protocol surface and must match what a MySQL client
// would send byte for byte. Strings are escaped with the connection's own
// escaping primitive (Executor.EscapeString). Field references render as
// quoted identifiers and are never value-escaped.
//
// # Dialects
//
// MySQL is the default and fixes the exact punctuation:
//
//	SELECT * FROM `users`  WHERE (`age` > 18) AND (`name` LIKE 'A%') ORDER BY `name` ASC LIMIT 0, 10
//	INSERT INTO `users` SET `name`='Bob', `age`=30
//
// SQLite and PostgreSQL differ only where those engines require it
// (identifier quoting, negation, insert syntax, LIMIT form, TRUNCATE).
package querysql
