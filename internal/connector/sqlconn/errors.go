package sqlconn

import (
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// DriverError carries the backend's own error code and message.
// It implements dberr.BackendDetails.
type DriverError struct {
	Code    string
	Message string
	Err     error
}

func (e *DriverError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

func (e *DriverError) Unwrap() error { return e.Err }

// BackendMessage returns the message reported by the backend.
func (e *DriverError) BackendMessage() string { return e.Message }

// BackendCode returns the code reported by the backend.
func (e *DriverError) BackendCode() string { return e.Code }

// wrapDriverError extracts code and message from known driver errors.
// Other errors are returned unchanged.
func wrapDriverError(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &DriverError{Code: strconv.Itoa(int(myErr.Number)), Message: myErr.Message, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &DriverError{Code: pgErr.Code, Message: pgErr.Message, Err: err}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return &DriverError{Code: strconv.Itoa(int(liteErr.Code)), Message: liteErr.Error(), Err: err}
	}

	return err
}
