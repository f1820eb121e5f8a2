package store

import (
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/ncruces/go-sqlite3"
)

var (
	// ErrTableMissing is returned when the destination table does not exist.
	ErrTableMissing = errors.New("destination table does not exist")

	// ErrInvalidIdentifier is returned for table names that are not plain
	// SQL identifiers.
	ErrInvalidIdentifier = errors.New("invalid table name")

	// ErrUnsupportedDriver is returned for an unknown Config.Driver.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// IsConnectionError reports whether err means the database could not be
// reached or the connection was lost. Such errors are transient: the next
// sync may succeed without any change to the spreadsheet.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// SQLSTATE class 08 is connection exception; 57P03 is cannot_connect_now.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P03"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1040, 1053: // too many connections, server shutdown
			return true
		}
	}

	return false
}

// IsConstraintViolation reports whether err is an integrity constraint
// failure (NOT NULL, unique, check).
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1048, 1062, 1406, 3819:
			return true
		}
		return false
	}

	var liteErr *sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.CONSTRAINT
	}

	return false
}
