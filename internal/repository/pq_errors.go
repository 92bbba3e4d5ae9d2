package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
// Uniqueness invariants (one live application per candidate and work, one
// review per triple) are enforced at the store so concurrent writers cannot
// race past a read-then-write check.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a Postgres FK constraint error.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}

// IsCheckViolation reports whether err is a Postgres CHECK constraint error.
func IsCheckViolation(err error) bool {
	return pgCode(err) == pgCheckViolation
}

func pgCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
