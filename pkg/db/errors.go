package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgCodeUniqueViolation = "23505"
	pgCodeLockNotAvail    = "55P03"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint, ok := pgError(err); ok {
		if code != pgCodeUniqueViolation {
			return false
		}
		if constraintName == "" {
			return true
		}
		return constraint == constraintName
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}

// IsLockTimeout reports whether the error is a Postgres lock_timeout expiry,
// raised when a row lock could not be acquired inside the configured window.
func IsLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	if code, _, ok := pgError(err); ok {
		return code == pgCodeLockNotAvail
	}
	return strings.Contains(err.Error(), "lock timeout")
}

func pgError(err error) (code, constraint string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
