package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
)

// constraintKind maps a driver error onto the constraint taxonomy using
// each driver's structured codes.
func constraintKind(err error) (ConstraintKind, bool) {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ConstraintUnique, true
		case sqlite3.ErrConstraintForeignKey:
			return ConstraintForeignKey, true
		case sqlite3.ErrConstraintNotNull:
			return ConstraintNotNull, true
		}
		if serr.Code == sqlite3.ErrConstraint {
			return ConstraintOther, true
		}
		return "", false
	}

	var myerr *mysql.MySQLError
	if errors.As(err, &myerr) {
		switch myerr.Number {
		case 1062, 1022: // duplicate entry
			return ConstraintUnique, true
		case 1451, 1452: // foreign key
			return ConstraintForeignKey, true
		case 1048: // column cannot be null
			return ConstraintNotNull, true
		}
		return "", false
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		switch pgerr.Code {
		case "23505":
			return ConstraintUnique, true
		case "23503":
			return ConstraintForeignKey, true
		case "23502":
			return ConstraintNotNull, true
		}
		// Remaining class 23 codes are still integrity violations.
		if strings.HasPrefix(pgerr.Code, "23") {
			return ConstraintOther, true
		}
		return "", false
	}

	var mserr mssql.Error
	if errors.As(err, &mserr) {
		switch mserr.Number {
		case 2627, 2601: // unique constraint, unique index
			return ConstraintUnique, true
		case 547: // FK or CHECK conflict
			return ConstraintForeignKey, true
		case 515: // cannot insert NULL
			return ConstraintNotNull, true
		}
		return "", false
	}

	return "", false
}

// isTransportError reports connection-level failures that mean the store
// is unreachable, as opposed to rejecting the statement.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}
