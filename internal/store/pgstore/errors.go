package pgstore

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/store"
)

const uniqueViolation = "23505"

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgerr *pgconn.PgError
	ok := errors.As(err, &pgerr)
	return pgerr, ok
}

// IsDuplicate signals that the error is a unique key violation.
func IsDuplicate(err error) bool {
	pgerr, ok := asPgError(err)
	return ok && pgerr.Code == uniqueViolation
}

// IsNotFound signals that the query matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// mapInsertErr turns driver errors of an insert into store errors.
func mapInsertErr(err error, what, id string) error {
	if err == nil {
		return nil
	}
	if pgerr, ok := asPgError(err); ok && pgerr.Code == uniqueViolation {
		return fmt.Errorf("%s %s already exists: %w", what, id, apperr.ErrConflict)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return store.Unavailable(fmt.Errorf("insert %s %s: %w", what, id, err))
	}
	return fmt.Errorf("insert %s %s: %w", what, id, err)
}
