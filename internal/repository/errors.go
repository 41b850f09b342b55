package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowReferenced    = 1451
	mysqlNoReferencedRow  = 1452
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isDuplicate reports whether err is a unique key violation.
func isDuplicate(err error) bool { return mysqlErrorNumber(err) == mysqlDuplicateEntry }

// notFoundOr maps sql.ErrNoRows to a NOT_FOUND error carrying msg and wraps
// anything else as an internal failure.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound("%s", msg)
	}
	return errs.Wrap(err, msg)
}

// translate classifies driver errors that callers can act on. A lock wait
// timeout or deadlock surfaces as CONFLICT so the client may retry.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	switch mysqlErrorNumber(err) {
	case mysqlLockWaitTimeout, mysqlDeadlockDetected:
		return errs.Conflict("the spot is busy, please try again")
	case mysqlNoReferencedRow:
		return errs.NotFound("%s: referenced record does not exist", op)
	case mysqlRowReferenced:
		return errs.FailedPrecondition("%s: record is still referenced", op)
	}
	return errs.Wrap(err, op)
}

// affectedOrNotFound checks that an UPDATE/DELETE touched a row.
func affectedOrNotFound(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errs.NotFound("%s", msg)
	}
	return nil
}
