package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQLite extended result codes for constraint violations.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

// IsConstraintError reports whether err resulted from a database constraint
// violation of any kind.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pq.Error](err); ok && e.Code.Class() == "23" {
		return true
	}
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports whether err resulted from a uniqueness
// constraint violation, e.g. a duplicate value in a unique index.
func IsUniqueConstraintError(err error) bool {
	return classify(err, []string{pgUniqueViolation}, []uint16{mysqlDuplicateEntry},
		[]int{sqliteConstraintUnique, sqliteConstraintPrimaryKey},
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
	)
}

// IsForeignKeyConstraintError reports whether err resulted from a
// foreign-key constraint violation, e.g. a missing parent row.
func IsForeignKeyConstraintError(err error) bool {
	return classify(err, []string{pgForeignKeyViolation}, []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		[]int{sqliteConstraintForeignKey},
		"Error 1451",                      // MySQL
		"Error 1452",                      // MySQL
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheckConstraintError reports whether err resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	return classify(err, []string{pgCheckViolation}, []uint16{mysqlCheckConstraintViolate},
		[]int{sqliteConstraintCheck},
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

func classify(err error, pgCodes []string, mysqlNumbers []uint16, sqliteCodes []int, fallback ...string) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pq.Error](err); ok {
		for _, c := range pgCodes {
			if string(e.Code) == c {
				return true
			}
		}
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		for _, n := range mysqlNumbers {
			if e.Number == n {
				return true
			}
		}
	}
	if e, ok := asError[sqliteCoder](err); ok {
		for _, c := range sqliteCodes {
			if e.Code() == c {
				return true
			}
		}
	}
	// Drivers that expose neither type are matched on the message.
	return containsAny(err.Error(), fallback...)
}

// asError extracts an error of type T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
