package sqlite

import (
	"errors"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraintCode returns the extended result code of a driver error, or 0.
func constraintCode(err error) int {
	var serr *moderncsqlite.Error
	if errors.As(err, &serr) {
		return serr.Code()
	}
	return 0
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// isUniqueViolation covers unique indexes, including the partial index
// on active checkpoint codes, and primary keys.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	switch constraintCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
