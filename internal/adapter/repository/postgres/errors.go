package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/danhlc/poslite/internal/domain"
)

// PostgreSQL error codes.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
	pgErrUniqueViolation      = "23505"
	pgErrForeignKeyViolation  = "23503"
	pgErrCheckViolation       = "23514"
	pgErrNotNullViolation     = "23502"
)

// mapError translates integrity errors into domain errors. The constraint
// name stays in the error for logs. Other errors, retryable ones included,
// pass through unchanged.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrUniqueViolation:
		switch {
		case strings.HasSuffix(pgErr.ConstraintName, "_code_key"):
			return fmt.Errorf("%w (%s)", domain.ErrDuplicateCode, pgErr.ConstraintName)
		case strings.HasSuffix(pgErr.ConstraintName, "_name_lower_idx"):
			return fmt.Errorf("%w (%s)", domain.ErrDuplicateName, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: %s", domain.ErrConstraintViolation, pgErr.ConstraintName)
	case pgErrForeignKeyViolation, pgErrCheckViolation, pgErrNotNullViolation:
		return fmt.Errorf("%w: %s", domain.ErrConstraintViolation, pgErr.ConstraintName)
	}

	return err
}
