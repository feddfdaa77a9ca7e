// Package repository holds the data access logic for catalog, booking and
// account entities. Queries are hand-written SQL that runs unchanged on
// MySQL and SQLite.
//
// The sentinel errors below let higher layers distinguish failure cases
// without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/iliyamo/theatre-box-office/internal/database"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key,
// e.g. a second genre with the same name or an already sold seat.
var ErrDuplicate = errors.New("duplicate")

// ErrInvalidReference is returned when a write refers to a parent row that
// does not exist (foreign key violation).
var ErrInvalidReference = errors.New("invalid reference")

// classify maps driver errors onto the sentinels above.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return ErrDuplicate
	case database.IsForeignKeyViolation(err):
		return ErrInvalidReference
	default:
		return err
	}
}

// IsDuplicate reports whether err is ErrDuplicate or a raw unique-key
// violation from the driver.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate) || database.IsUniqueViolation(err)
}
