package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories care about.
const (
	errDuplicateEntry  = 1062
	errNoReferencedRow = 1452 // child insert/update whose parent row is gone
)

// IsDuplicate reports whether err is a unique-key violation.
func IsDuplicate(err error) bool {
	return mysqlErrNumber(err) == errDuplicateEntry
}

// IsMissingParent reports whether err is a foreign-key violation caused by
// a reference to a row that does not exist.
func IsMissingParent(err error) bool {
	return mysqlErrNumber(err) == errNoReferencedRow
}

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}
